package domain

import (
	"context"
	"errors"
	"slices"
)

// Sentinel errors returned by adapters.
var (
	ErrBackendUnavailable = errors.New("search backend unavailable")
)

// QueryEngine executes an Effective Query against the content store.
// Implementations: internal/infra/postgres/engine.go
type QueryEngine interface {
	// Query returns the matching page of posts and the total match count
	// independent of pagination.
	Query(ctx context.Context, args Args) (*QueryResult, error)
}

// PostTypeSource lists the content types that are exposed publicly.
// Implementations: internal/infra/postgres/posttypes.go, StaticPostTypes
type PostTypeSource interface {
	PublicPostTypes(ctx context.Context) ([]string, error)
}

// PostStore loads posts by id, used to hydrate results from alternate
// search backends and to feed the search index.
type PostStore interface {
	// GetByIDs returns the posts with the given ids. Missing ids are skipped;
	// order of the returned slice is unspecified.
	GetByIDs(ctx context.Context, ids []int64) ([]*Post, error)

	// ListAfter returns up to limit posts with id > afterID, ordered by id.
	ListAfter(ctx context.Context, afterID int64, limit int) ([]*Post, error)
}

// SearchQuery is the subset of an Effective Query understood by search backends.
type SearchQuery struct {
	Text             string
	Types            []string
	Statuses         []string
	Lang             []string
	Authors          []int64
	NotAuthors       []int64
	ExcludeProtected bool

	Page    int
	PerPage int
	Skip    int // explicit offset, wins over Page
}

// Offset returns the zero-based offset of the first hit on the page.
func (q SearchQuery) Offset() int {
	if q.Skip > 0 {
		return q.Skip
	}
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}

// Admits reports whether p satisfies the query's non-text filters. Backends
// may hold stale documents, so hydrated posts are checked again.
func (q SearchQuery) Admits(p *Post) bool {
	if q.ExcludeProtected && p.IsPasswordProtected() {
		return false
	}
	if len(q.Types) > 0 && !slices.Contains(q.Types, p.Type) {
		return false
	}
	if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, p.Status) {
		return false
	}
	if len(q.Lang) > 0 && !slices.Contains(q.Lang, p.Lang) {
		return false
	}
	if len(q.Authors) > 0 && !slices.Contains(q.Authors, p.AuthorID) {
		return false
	}
	return !slices.Contains(q.NotAuthors, p.AuthorID)
}

// SearchHits is an ordered page of post ids plus the total hit count.
type SearchHits struct {
	IDs   []int64
	Total int64
}

// SearchBackend is an alternate full-text search provider.
// Implementations: internal/infra/search/bleve, internal/infra/search/remote
type SearchBackend interface {
	Name() string
	Search(ctx context.Context, q SearchQuery) (*SearchHits, error)
}

// StaticPostTypes is a fixed PostTypeSource.
type StaticPostTypes []string

// PublicPostTypes returns a copy of the configured list.
func (s StaticPostTypes) PublicPostTypes(context.Context) ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}
