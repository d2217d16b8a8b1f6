package params

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected map[string]any
	}{
		{
			name:     "scalars",
			query:    "posts_per_page=5&s=hello+world",
			expected: map[string]any{"posts_per_page": "5", "s": "hello world"},
		},
		{
			name:     "empty brackets append",
			query:    "post_type[]=post&post_type[]=page",
			expected: map[string]any{"post_type": []any{"post", "page"}},
		},
		{
			name:  "nested mapping",
			query: "tax_query[0][taxonomy]=category&tax_query[0][terms][]=news&tax_query[relation]=OR",
			expected: map[string]any{"tax_query": map[string]any{
				"0":        map[string]any{"taxonomy": "category", "terms": []any{"news"}},
				"relation": "OR",
			}},
		},
		{
			name:     "indexed keys keep insertion order",
			query:    "post__in[2]=9&post__in[0]=3",
			expected: map[string]any{"post__in": []any{"9", "3"}},
		},
		{
			name:     "later pair overwrites",
			query:    "paged=1&paged=2",
			expected: map[string]any{"paged": "2"},
		},
		{
			name:     "scalar replaced by list",
			query:    "cat=1&cat[]=2",
			expected: map[string]any{"cat": []any{"2"}},
		},
		{
			name:     "percent encoded brackets",
			query:    "post_status%5B%5D=publish",
			expected: map[string]any{"post_status": []any{"publish"}},
		},
		{
			name:     "dots in name become underscores",
			query:    "meta.key=x",
			expected: map[string]any{"meta_key": "x"},
		},
		{
			name:     "unclosed bracket is part of the name",
			query:    "a[b=1",
			expected: map[string]any{"a[b": "1"},
		},
		{
			name:     "missing value is empty",
			query:    "s",
			expected: map[string]any{"s": ""},
		},
		{
			name:     "empty name and bad escapes dropped",
			query:    "[x]=1&%zz=2&ok=3",
			expected: map[string]any{"ok": "3"},
		},
		{
			name:     "empty query",
			query:    "",
			expected: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.query, DefaultLimits)

			out := make(map[string]any, len(got))
			for k, v := range got {
				out[k] = v.Raw()
			}
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestParse_MaxValues(t *testing.T) {
	pairs := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		pairs = append(pairs, fmt.Sprintf("k%d=%d", i, i))
	}

	got := Parse(strings.Join(pairs, "&"), Limits{MaxValues: 3, MaxDepth: 4})

	require.Len(t, got, 3)
	assert.Contains(t, got, "k0")
	assert.Contains(t, got, "k2")
	assert.NotContains(t, got, "k3")
}

func TestParse_MaxDepth(t *testing.T) {
	got := Parse("a[1][2][3]=deep&b[1]=shallow", Limits{MaxValues: 10, MaxDepth: 2})

	assert.NotContains(t, got, "a")
	require.Contains(t, got, "b")
	assert.Equal(t, []any{"shallow"}, got["b"].Raw())
}

func TestParse_ZeroLimitsUseDefaults(t *testing.T) {
	got := Parse("a[]=1", Limits{})

	require.Contains(t, got, "a")
	assert.Equal(t, []any{"1"}, got["a"].Raw())
}
