// Package fulltext implements an embedded search backend on top of bleve.
package fulltext

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"content-query-service/internal/domain"
)

// Name identifies the backend in logs and metrics.
const Name = "bleve"

// maxHits bounds unpaged searches.
const maxHits = 1000

// document is the indexed form of a post.
type document struct {
	Title   string   `json:"title"`
	Excerpt string   `json:"excerpt"`
	Content string   `json:"content"`
	Slug    string   `json:"slug"`
	Type    string   `json:"type"`
	Status  string   `json:"status"`
	Lang    string   `json:"lang"`
	Author  string   `json:"author"`
	Terms   []string `json:"terms"`

	Protected bool `json:"protected"`
}

func newDocument(p *domain.Post) document {
	terms := make([]string, 0, len(p.Terms))
	for _, t := range p.Terms {
		terms = append(terms, t.Name)
	}
	return document{
		Title:   p.Title,
		Excerpt: p.Excerpt,
		Content: p.Content,
		Slug:    p.Slug,
		Type:    p.Type,
		Status:  p.Status,
		Lang:    p.Lang,
		Author:  strconv.FormatInt(p.AuthorID, 10),
		Terms:   terms,

		Protected: p.IsPasswordProtected(),
	}
}

// Index is a bleve index of posts. It implements domain.SearchBackend.
type Index struct {
	index  bleve.Index
	logger *zap.Logger
}

// Open opens the index at path, creating it when missing. An empty path
// creates an in-memory index.
func Open(path string, logger *zap.Logger) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(defineMapping())
		if err != nil {
			return nil, fmt.Errorf("creating in-memory index: %w", err)
		}
		return &Index{index: idx, logger: logger}, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		logger.Debug("creating new bleve index", zap.String("path", path))
		idx, err = bleve.New(path, defineMapping())
		if err != nil {
			return nil, fmt.Errorf("creating bleve index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("opening bleve index: %w", err)
	}

	return &Index{index: idx, logger: logger}, nil
}

func defineMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	text := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = "en"
		return fm
	}
	keyword := func() *mapping.FieldMapping {
		fm := bleve.NewKeywordFieldMapping()
		fm.IncludeInAll = false
		return fm
	}

	docMapping.AddFieldMappingsAt("title", text())
	docMapping.AddFieldMappingsAt("excerpt", text())
	docMapping.AddFieldMappingsAt("content", text())
	docMapping.AddFieldMappingsAt("terms", text())
	docMapping.AddFieldMappingsAt("slug", keyword())
	docMapping.AddFieldMappingsAt("type", keyword())
	docMapping.AddFieldMappingsAt("status", keyword())
	docMapping.AddFieldMappingsAt("lang", keyword())
	docMapping.AddFieldMappingsAt("author", keyword())

	protected := bleve.NewBooleanFieldMapping()
	protected.IncludeInAll = false
	docMapping.AddFieldMappingsAt("protected", protected)

	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = "en"

	return indexMapping
}

// Name returns the backend identifier.
func (i *Index) Name() string {
	return Name
}

// IDs returns the ids of every indexed post.
func (i *Index) IDs(ctx context.Context) ([]int64, error) {
	count, err := i.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	if count == 0 {
		return []int64{}, nil
	}

	request := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	result, err := i.index.SearchInContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	ids := make([]int64, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if id, err := strconv.ParseInt(hit.ID, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// IndexPosts adds or replaces posts in a single batch.
func (i *Index) IndexPosts(_ context.Context, posts []*domain.Post) error {
	batch := i.index.NewBatch()
	for _, p := range posts {
		if err := batch.Index(strconv.FormatInt(p.ID, 10), newDocument(p)); err != nil {
			return fmt.Errorf("indexing post %d: %w", p.ID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("writing index batch: %w", err)
	}
	return nil
}

// DeletePosts removes posts from the index in a single batch.
func (i *Index) DeletePosts(_ context.Context, ids []int64) error {
	batch := i.index.NewBatch()
	for _, id := range ids {
		batch.Delete(strconv.FormatInt(id, 10))
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("writing delete batch: %w", err)
	}
	return nil
}

// Delete removes a post from the index.
func (i *Index) Delete(_ context.Context, id int64) error {
	return i.index.Delete(strconv.FormatInt(id, 10))
}

// Count returns the number of indexed posts.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

// Search returns post ids ranked by relevance.
func (i *Index) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchHits, error) {
	size := q.PerPage
	if size <= 0 {
		size = maxHits
	}
	request := bleve.NewSearchRequestOptions(buildQuery(q), size, q.Offset(), false)
	request.SortBy([]string{"-_score", "_id"})

	result, err := i.index.SearchInContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	hits := &domain.SearchHits{
		IDs:   make([]int64, 0, len(result.Hits)),
		Total: int64(result.Total),
	}
	for _, hit := range result.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			i.logger.Warn("skipping hit with invalid id", zap.String("id", hit.ID))
			continue
		}
		hits.IDs = append(hits.IDs, id)
	}

	return hits, nil
}

// Close releases the index.
func (i *Index) Close() error {
	return i.index.Close()
}

func buildQuery(q domain.SearchQuery) query.Query {
	title := bleve.NewMatchQuery(q.Text)
	title.SetField("title")
	title.SetBoost(3)
	excerpt := bleve.NewMatchQuery(q.Text)
	excerpt.SetField("excerpt")
	excerpt.SetBoost(2)
	content := bleve.NewMatchQuery(q.Text)
	content.SetField("content")
	terms := bleve.NewMatchQuery(q.Text)
	terms.SetField("terms")

	must := []query.Query{bleve.NewDisjunctionQuery(title, excerpt, content, terms)}
	for _, filter := range []query.Query{
		anyTerm("type", q.Types),
		anyTerm("status", q.Statuses),
		anyTerm("lang", q.Lang),
		anyTerm("author", idStrings(q.Authors)),
	} {
		if filter != nil {
			must = append(must, filter)
		}
	}
	if q.ExcludeProtected {
		public := bleve.NewBoolFieldQuery(false)
		public.SetField("protected")
		must = append(must, public)
	}

	var mustNot []query.Query
	if filter := anyTerm("author", idStrings(q.NotAuthors)); filter != nil {
		mustNot = append(mustNot, filter)
	}

	return query.NewBooleanQuery(must, nil, mustNot)
}

func idStrings(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}

func anyTerm(field string, values []string) query.Query {
	if len(values) == 0 {
		return nil
	}
	terms := make([]query.Query, len(values))
	for i, v := range values {
		tq := bleve.NewTermQuery(v)
		tq.SetField(field)
		terms[i] = tq
	}
	return bleve.NewDisjunctionQuery(terms...)
}
