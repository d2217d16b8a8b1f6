package domain

import (
	"time"
)

// Taxonomy names known to the query engine.
const (
	TaxonomyCategory = "category"
	TaxonomyTag      = "post_tag"
)

// Term is a taxonomy term attached to a post.
type Term struct {
	ID       int64  `json:"id"`
	Taxonomy string `json:"taxonomy"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
}

// Post is a single content entry held by the content store.
type Post struct {
	ID         int64
	AuthorID   int64
	AuthorName string // nicename of the author
	Slug       string
	Title      string
	Content    string
	Excerpt    string
	Status     string
	Type       string
	MimeType   string
	ParentID   int64
	Password   string
	MenuOrder  int
	Sticky     bool
	Lang       string
	Date       time.Time
	Modified   time.Time

	Meta  map[string][]string
	Terms []Term
}

// IsPasswordProtected reports whether the post requires a password to read.
func (p *Post) IsPasswordProtected() bool {
	return p.Password != ""
}

// TermIDs returns the ids of the post's terms in the given taxonomy.
func (p *Post) TermIDs(taxonomy string) []int64 {
	ids := make([]int64, 0)
	for _, t := range p.Terms {
		if t.Taxonomy == taxonomy {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// MetaValues returns the stored values for a meta key.
func (p *Post) MetaValues(key string) []string {
	if p.Meta == nil {
		return nil
	}
	return p.Meta[key]
}

// QueryResult is what the content query engine returns for a query.
type QueryResult struct {
	Posts []*Post
	Found int64 // total matches, independent of pagination
}

// EmptyResult is the result reported when a query cannot be answered.
func EmptyResult() *QueryResult {
	return &QueryResult{Posts: []*Post{}, Found: 0}
}

// Execution pairs an effective query with the result it produced.
type Execution struct {
	Args   Args
	Result *QueryResult
}

// TotalPages computes the page count for the response headers.
// A page size of 0 (or below) reports a single page.
func TotalPages(found int64, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	if found <= 0 {
		return 0
	}
	pages := found / int64(perPage)
	if found%int64(perPage) > 0 {
		pages++
	}
	return int(pages)
}
