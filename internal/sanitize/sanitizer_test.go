package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"content-query-service/internal/allowlist"
	"content-query-service/internal/domain"
)

var testRules = Rules{
	PostTypes:  []string{"post", "page", "product"},
	Statuses:   []string{"publish"},
	MaxPerPage: 50,
}

func TestRestrictPostType(t *testing.T) {
	tests := []struct {
		name        string
		value       domain.Value
		expected    domain.Value
		wantChanged bool
	}{
		{
			name:     "single allowed",
			value:    domain.String("page"),
			expected: domain.String("page"),
		},
		{
			name:        "single disallowed",
			value:       domain.String("secret_cpt"),
			expected:    domain.String("post"),
			wantChanged: true,
		},
		{
			name:        "any expands to allowed set",
			value:       domain.String("any"),
			expected:    domain.List("post", "page", "product"),
			wantChanged: true,
		},
		{
			name:     "list all allowed",
			value:    domain.List("post", "page"),
			expected: domain.List("post", "page"),
		},
		{
			name:        "list with one disallowed collapses",
			value:       domain.List("post", "secret_cpt"),
			expected:    domain.String("post"),
			wantChanged: true,
		},
		{
			name:        "list containing any collapses",
			value:       domain.List("page", "any"),
			expected:    domain.String("post"),
			wantChanged: true,
		},
		{
			name:        "empty list",
			value:       domain.List(),
			expected:    domain.String("post"),
			wantChanged: true,
		},
		{
			name:        "nested value in list",
			value:       domain.ListOf(domain.String("post"), domain.List("page")),
			expected:    domain.String("post"),
			wantChanged: true,
		},
		{
			name:     "mapping treated as list",
			value:    domain.Map(map[string]domain.Value{"a": domain.String("post"), "b": domain.String("page")}),
			expected: domain.Map(map[string]domain.Value{"a": domain.String("post"), "b": domain.String("page")}),
		},
		{
			name:        "mapping with disallowed member",
			value:       domain.Map(map[string]domain.Value{"a": domain.String("attachment")}),
			expected:    domain.String("post"),
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := RestrictPostType(tt.value, testRules.PostTypes)
			assert.True(t, tt.expected.Equal(got), "expected %v, got %v", tt.expected.Raw(), got.Raw())
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
}

func TestRestrictPostsPerPage(t *testing.T) {
	tests := []struct {
		name     string
		value    domain.Value
		expected domain.Value
	}{
		{"within range", domain.String("20"), domain.String("20")},
		{"at max", domain.String("50"), domain.String("50")},
		{"above max", domain.String("999"), domain.Int(50)},
		{"zero", domain.String("0"), domain.Int(50)},
		{"negative", domain.String("-1"), domain.Int(50)},
		{"not numeric", domain.String("lots"), domain.Int(50)},
		{"list", domain.List("5"), domain.Int(50)},
		{"one", domain.Int(1), domain.Int(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := RestrictPostsPerPage(tt.value, 50)
			assert.True(t, tt.expected.Equal(got), "expected %v, got %v", tt.expected.Raw(), got.Raw())

			n, ok := got.Int()
			assert.True(t, ok)
			assert.Greater(t, n, 0)
			assert.LessOrEqual(t, n, 50)
		})
	}
}

func TestSanitizer_DropsUnlisted(t *testing.T) {
	s := New()
	allowed := allowlist.NewSet("s", "post_type", "posts_per_page")

	params := domain.Params{
		"s":           domain.String("hello"),
		"post_status": domain.String("draft"),
		"perm":        domain.String("editable"),
		"suppress":    domain.String("1"),
	}

	got, report := s.Sanitize(params, allowed, testRules)

	assert.Equal(t, domain.Args{"s": domain.String("hello")}, got)
	assert.Equal(t, []string{"perm", "post_status", "suppress"}, report.Dropped)
	assert.Empty(t, report.Coerced)
}

func TestSanitizer_RestrictedParams(t *testing.T) {
	s := New()
	allowed := allowlist.NewSet("s", "post_type", "posts_per_page")

	params := domain.Params{
		"s":              domain.String("hello"),
		"posts_per_page": domain.String("999"),
		"post_type":      domain.List("post", "secret_cpt"),
	}

	got, report := s.Sanitize(params, allowed, testRules)

	assert.True(t, got["s"].Equal(domain.String("hello")))
	assert.True(t, got["posts_per_page"].Equal(domain.Int(50)))
	assert.True(t, got["post_type"].Equal(domain.String("post")))
	assert.Equal(t, []string{"post_type", "posts_per_page"}, report.Coerced)
}

func TestSanitizer_LegacyStatusKeyIsInert(t *testing.T) {
	s := New()
	allowed := allowlist.NewSet("post_status")

	got, report := s.Sanitize(domain.Params{"post_status": domain.String("draft")}, allowed, testRules)

	assert.True(t, got["post_status"].Equal(domain.String("draft")))
	assert.Empty(t, report.Coerced)
	assert.Equal(t, LegacyStatusKey, s.StatusKey())
}

func TestSanitizer_LegacyStatusKeyStillRestricts(t *testing.T) {
	s := New()
	allowed := allowlist.NewSet(LegacyStatusKey)

	got, _ := s.Sanitize(domain.Params{LegacyStatusKey: domain.String("draft")}, allowed, testRules)

	assert.True(t, got[LegacyStatusKey].Equal(domain.String("publish")))
}

func TestSanitizer_FixedStatusKey(t *testing.T) {
	s := New(WithPostStatusKey(domain.ArgPostStatus))
	allowed := allowlist.NewSet("post_status")

	tests := []struct {
		name     string
		value    domain.Value
		expected domain.Value
	}{
		{"disallowed", domain.String("draft"), domain.String("publish")},
		{"allowed", domain.String("publish"), domain.String("publish")},
		{"any", domain.String("any"), domain.List("publish")},
		{"list with private", domain.List("publish", "private"), domain.String("publish")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := s.Sanitize(domain.Params{"post_status": tt.value}, allowed, testRules)
			assert.True(t, tt.expected.Equal(got["post_status"]), "got %v", got["post_status"].Raw())
		})
	}
}

func TestSanitizer_PassThrough(t *testing.T) {
	s := New()
	allowed := allowlist.NewSet("date_query", "orderby")

	dateQuery := domain.ListOf(domain.Map(map[string]domain.Value{
		"after": domain.String("2020-01-01"),
	}))
	params := domain.Params{
		"date_query": dateQuery,
		"orderby":    domain.String("title"),
	}

	got, _ := s.Sanitize(params, allowed, testRules)

	assert.True(t, got["date_query"].Equal(dateQuery))
	assert.True(t, got["orderby"].Equal(domain.String("title")))
}

func TestSanitizer_EmptyAllowList(t *testing.T) {
	got, report := New().Sanitize(domain.Params{"s": domain.String("x")}, allowlist.NewSet(), testRules)

	assert.Empty(t, got)
	assert.Equal(t, []string{"s"}, report.Dropped)
}
