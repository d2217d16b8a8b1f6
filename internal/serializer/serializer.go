// Package serializer renders result items in the REST posts shape.
package serializer

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"content-query-service/internal/domain"
)

const (
	dateLayout    = "2006-01-02T15:04:05"
	excerptLength = 55
	excerptMore   = " [&hellip;]"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Config holds serializer settings.
type Config struct {
	SiteURL         string
	RenderMarkdown  bool
	DefaultPostType string
	MetaKeys        map[string][]string // exposed meta keys per post type
}

// Context carries the per-item settings the serializer needs. It is built
// for each item and never shared between items.
type Context struct {
	PostType string
	MetaKeys []string
}

// Rendered is a rendered text field.
type Rendered struct {
	Rendered  string `json:"rendered"`
	Protected *bool  `json:"protected,omitempty"`
}

// PostResponse is the serialized form of one item.
type PostResponse struct {
	ID          int64          `json:"id"`
	Date        string         `json:"date"`
	DateGMT     string         `json:"date_gmt"`
	GUID        Rendered       `json:"guid"`
	Modified    string         `json:"modified"`
	ModifiedGMT string         `json:"modified_gmt"`
	Slug        string         `json:"slug"`
	Status      string         `json:"status"`
	Type        string         `json:"type"`
	Link        string         `json:"link"`
	Title       Rendered       `json:"title"`
	Content     Rendered       `json:"content"`
	Excerpt     Rendered       `json:"excerpt"`
	Author      int64          `json:"author"`
	Parent      int64          `json:"parent"`
	MenuOrder   int            `json:"menu_order"`
	Sticky      bool           `json:"sticky"`
	Meta        map[string]any `json:"meta"`
	Categories  []int64        `json:"categories"`
	Tags        []int64        `json:"tags"`
	Lang        string         `json:"lang,omitempty"`
}

// Serializer converts posts into PostResponse values.
type Serializer struct {
	cfg Config
	md  goldmark.Markdown
}

// New creates a Serializer.
func New(cfg Config) *Serializer {
	if cfg.DefaultPostType == "" {
		cfg.DefaultPostType = domain.FallbackPostType
	}
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithUnsafe(),
		),
	)

	return &Serializer{cfg: cfg, md: md}
}

// ContextFor builds the context of an item of the given post type.
func (s *Serializer) ContextFor(postType string) Context {
	keys := s.cfg.MetaKeys[postType]
	out := make([]string, len(keys))
	copy(out, keys)
	return Context{PostType: postType, MetaKeys: out}
}

// DefaultContext is the context of the endpoint itself.
func (s *Serializer) DefaultContext() Context {
	return s.ContextFor(s.cfg.DefaultPostType)
}

// Serialize renders post using sctx.
func (s *Serializer) Serialize(post *domain.Post, sctx Context) (*PostResponse, error) {
	if post == nil {
		return nil, fmt.Errorf("serialize: nil post")
	}

	protected := post.IsPasswordProtected()

	resp := &PostResponse{
		ID:          post.ID,
		Date:        formatDate(post.Date),
		DateGMT:     formatDate(post.Date.UTC()),
		GUID:        Rendered{Rendered: fmt.Sprintf("%s/?p=%d", s.cfg.SiteURL, post.ID)},
		Modified:    formatDate(post.Modified),
		ModifiedGMT: formatDate(post.Modified.UTC()),
		Slug:        post.Slug,
		Status:      post.Status,
		Type:        post.Type,
		Link:        s.link(post),
		Title:       Rendered{Rendered: html.EscapeString(post.Title)},
		Content:     Rendered{Protected: &protected},
		Excerpt:     Rendered{Protected: &protected},
		Author:      post.AuthorID,
		Parent:      post.ParentID,
		MenuOrder:   post.MenuOrder,
		Sticky:      post.Sticky,
		Meta:        metaFor(post, sctx.MetaKeys),
		Categories:  post.TermIDs(domain.TaxonomyCategory),
		Tags:        post.TermIDs(domain.TaxonomyTag),
		Lang:        post.Lang,
	}

	if protected {
		return resp, nil
	}

	content, err := s.render(post.Content)
	if err != nil {
		return nil, fmt.Errorf("render content of post %d: %w", post.ID, err)
	}
	resp.Content.Rendered = content

	if post.Excerpt != "" {
		excerpt, err := s.render(post.Excerpt)
		if err != nil {
			return nil, fmt.Errorf("render excerpt of post %d: %w", post.ID, err)
		}
		resp.Excerpt.Rendered = excerpt
	} else {
		resp.Excerpt.Rendered = "<p>" + trimWords(content, excerptLength) + "</p>\n"
	}

	return resp, nil
}

func (s *Serializer) render(text string) (string, error) {
	if !s.cfg.RenderMarkdown {
		return text, nil
	}

	var buf bytes.Buffer
	if err := s.md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Serializer) link(post *domain.Post) string {
	if post.Type == domain.FallbackPostType {
		return fmt.Sprintf("%s/%s/", s.cfg.SiteURL, post.Slug)
	}
	return fmt.Sprintf("%s/%s/%s/", s.cfg.SiteURL, post.Type, post.Slug)
}

func metaFor(post *domain.Post, keys []string) map[string]any {
	meta := make(map[string]any, len(keys))
	for _, key := range keys {
		values := post.MetaValues(key)
		switch len(values) {
		case 0:
			meta[key] = ""
		case 1:
			meta[key] = values[0]
		default:
			meta[key] = values
		}
	}
	return meta
}

// trimWords strips markup and keeps the first n words.
func trimWords(text string, n int) string {
	words := strings.Fields(tagPattern.ReplaceAllString(text, " "))
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + excerptMore
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
