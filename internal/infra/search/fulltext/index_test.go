package fulltext

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"content-query-service/internal/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()

	idx, err := Open("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	err = idx.IndexPosts(context.Background(), []*domain.Post{
		{ID: 1, Title: "Gophers in the wild", Content: "Field notes.", Type: "post", Status: "publish"},
		{ID: 2, Title: "Cooking", Content: "A recipe gophers would love.", Type: "post", Status: "publish"},
		{ID: 3, Title: "Gopher care", Type: "page", Status: "publish"},
		{ID: 4, Title: "Gopher drafts", Type: "post", Status: "draft"},
		{ID: 5, Title: "Unrelated", Content: "Nothing to see", Type: "post", Status: "publish",
			Terms: []domain.Term{{ID: 1, Taxonomy: domain.TaxonomyTag, Name: "gophers"}}},
	})
	require.NoError(t, err)

	return idx
}

func TestIndex_SearchMatchesTitleContentAndTerms(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), domain.SearchQuery{
		Text:     "gophers",
		Types:    []string{"post"},
		Statuses: []string{"publish"},
		Page:     1,
		PerPage:  10,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), hits.Total)
	assert.ElementsMatch(t, []int64{1, 2, 5}, hits.IDs)
}

func TestIndex_SearchFiltersTypeAndStatus(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	pages, err := idx.Search(ctx, domain.SearchQuery{Text: "gopher", Types: []string{"page"}, Statuses: []string{"publish"}, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, pages.IDs)

	drafts, err := idx.Search(ctx, domain.SearchQuery{Text: "gopher", Types: []string{"post"}, Statuses: []string{"draft"}, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, drafts.IDs)
}

func TestIndex_SearchPaging(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), domain.SearchQuery{
		Text:     "gophers",
		Types:    []string{"post"},
		Statuses: []string{"publish"},
		Page:     2,
		PerPage:  2,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), hits.Total)
	assert.Len(t, hits.IDs, 1)
}

func TestIndex_SearchFiltersLanguageAuthorAndProtection(t *testing.T) {
	idx, err := Open("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	ctx := context.Background()
	require.NoError(t, idx.IndexPosts(ctx, []*domain.Post{
		{ID: 1, AuthorID: 1, Title: "gophers", Type: "post", Status: "publish", Lang: "fi"},
		{ID: 2, AuthorID: 1, Title: "gophers", Type: "post", Status: "publish", Lang: "fi", Password: "pw"},
		{ID: 3, AuthorID: 2, Title: "gophers", Type: "post", Status: "publish", Lang: "en"},
		{ID: 4, AuthorID: 2, Title: "gophers", Type: "post", Status: "publish", Lang: "fi"},
	}))

	base := domain.SearchQuery{Text: "gophers", Types: []string{"post"}, Statuses: []string{"publish"}, PerPage: 10}

	tests := []struct {
		name   string
		modify func(q *domain.SearchQuery)
		want   []int64
	}{
		{"no filters", func(*domain.SearchQuery) {}, []int64{1, 2, 3, 4}},
		{"language", func(q *domain.SearchQuery) { q.Lang = []string{"fi"} }, []int64{1, 2, 4}},
		{"protected excluded", func(q *domain.SearchQuery) { q.ExcludeProtected = true }, []int64{1, 3, 4}},
		{"author", func(q *domain.SearchQuery) { q.Authors = []int64{2} }, []int64{3, 4}},
		{"author excluded", func(q *domain.SearchQuery) { q.NotAuthors = []int64{2} }, []int64{1, 2}},
		{"combined", func(q *domain.SearchQuery) {
			q.Lang = []string{"fi"}
			q.ExcludeProtected = true
			q.NotAuthors = []int64{2}
		}, []int64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := base
			tt.modify(&q)

			hits, err := idx.Search(ctx, q)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, hits.IDs)
			assert.Equal(t, int64(len(tt.want)), hits.Total)
		})
	}
}

func TestIndex_SearchExplicitOffset(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), domain.SearchQuery{
		Text:     "gophers",
		Types:    []string{"post"},
		Statuses: []string{"publish"},
		Page:     1,
		PerPage:  10,
		Skip:     2,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), hits.Total)
	assert.Len(t, hits.IDs, 1)
}

func TestIndex_IDsAndDeletePosts(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	ids, err := idx.IDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3, 4, 5}, ids)

	require.NoError(t, idx.DeletePosts(ctx, []int64{2, 4}))

	ids, err = idx.IDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3, 5}, ids)
}

func TestIndex_DeleteAndCount(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)

	require.NoError(t, idx.Delete(ctx, 1))

	count, err = idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)
}

func TestOpen_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.bleve")

	idx, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, idx.IndexPosts(context.Background(), []*domain.Post{{ID: 9, Title: "Persisted", Type: "post", Status: "publish"}}))
	require.NoError(t, idx.Close())

	reopened, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}
