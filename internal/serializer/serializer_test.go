package serializer

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-query-service/internal/domain"
)

func newTestSerializer(render bool) *Serializer {
	return New(Config{
		SiteURL:        "https://example.com/",
		RenderMarkdown: render,
		MetaKeys: map[string][]string{
			"post":    {"subtitle"},
			"product": {"price", "sizes"},
		},
	})
}

func samplePost() *domain.Post {
	return &domain.Post{
		ID:       42,
		AuthorID: 5,
		Slug:     "hello-world",
		Title:    "Hello & welcome",
		Content:  "# Heading\n\nSome *markdown* text.",
		Status:   "publish",
		Type:     "post",
		Date:     time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Modified: time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC),
		Meta:     map[string][]string{"subtitle": {"A subtitle"}, "price": {"10"}},
		Terms: []domain.Term{
			{ID: 3, Taxonomy: domain.TaxonomyCategory, Slug: "news"},
			{ID: 9, Taxonomy: domain.TaxonomyTag, Slug: "go"},
		},
	}
}

func TestSerializer_Serialize(t *testing.T) {
	s := newTestSerializer(true)
	post := samplePost()

	resp, err := s.Serialize(post, s.ContextFor("post"))
	require.NoError(t, err)

	assert.Equal(t, int64(42), resp.ID)
	assert.Equal(t, "2024-03-01T12:30:00", resp.Date)
	assert.Equal(t, "https://example.com/hello-world/", resp.Link)
	assert.Equal(t, "https://example.com/?p=42", resp.GUID.Rendered)
	assert.Equal(t, "Hello &amp; welcome", resp.Title.Rendered)
	assert.Contains(t, resp.Content.Rendered, "<h1 id=\"heading\">Heading</h1>")
	assert.Contains(t, resp.Content.Rendered, "<em>markdown</em>")
	assert.Equal(t, []int64{3}, resp.Categories)
	assert.Equal(t, []int64{9}, resp.Tags)
	assert.Equal(t, map[string]any{"subtitle": "A subtitle"}, resp.Meta)
	require.NotNil(t, resp.Content.Protected)
	assert.False(t, *resp.Content.Protected)
}

func TestSerializer_ContextControlsMeta(t *testing.T) {
	s := newTestSerializer(false)
	post := samplePost()
	post.Meta["sizes"] = []string{"S", "M"}

	resp, err := s.Serialize(post, s.ContextFor("product"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"price": "10", "sizes": []string{"S", "M"}}, resp.Meta)

	resp, err = s.Serialize(post, s.DefaultContext())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"subtitle": "A subtitle"}, resp.Meta)

	resp, err = s.Serialize(post, s.ContextFor("page"))
	require.NoError(t, err)
	assert.Empty(t, resp.Meta)
}

func TestSerializer_PasswordProtected(t *testing.T) {
	s := newTestSerializer(true)
	post := samplePost()
	post.Password = "secret"

	resp, err := s.Serialize(post, s.DefaultContext())
	require.NoError(t, err)

	assert.Empty(t, resp.Content.Rendered)
	assert.Empty(t, resp.Excerpt.Rendered)
	require.NotNil(t, resp.Content.Protected)
	assert.True(t, *resp.Content.Protected)
}

func TestSerializer_ExcerptFallback(t *testing.T) {
	s := newTestSerializer(false)
	post := samplePost()
	post.Content = "<p>" + strings.Repeat("word ", 60) + "</p>"

	resp, err := s.Serialize(post, s.DefaultContext())
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(resp.Excerpt.Rendered, " [&hellip;]</p>\n"))
	assert.Equal(t, 55, strings.Count(resp.Excerpt.Rendered, "word"))
}

func TestSerializer_LinkForCustomType(t *testing.T) {
	s := newTestSerializer(false)
	post := samplePost()
	post.Type = "product"

	resp, err := s.Serialize(post, s.ContextFor(post.Type))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/product/hello-world/", resp.Link)
}

func TestSerializer_JSONShape(t *testing.T) {
	s := newTestSerializer(false)
	resp, err := s.Serialize(samplePost(), s.DefaultContext())
	require.NoError(t, err)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, key := range []string{"id", "date", "guid", "slug", "status", "type", "link", "title", "content", "excerpt", "author", "meta", "categories", "tags"} {
		assert.Contains(t, decoded, key)
	}
	assert.NotContains(t, decoded, "lang")
}

func TestSerializer_NilPost(t *testing.T) {
	_, err := newTestSerializer(false).Serialize(nil, Context{})
	assert.Error(t, err)
}
