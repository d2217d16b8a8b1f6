// Package allowlist computes, per request, the set of parameter names that
// may influence the query. Anything not in the set never reaches the engine.
package allowlist

import (
	"context"
	"sort"

	"content-query-service/internal/domain"
	"content-query-service/internal/hook"
)

// Base is always permitted.
var Base = []string{
	"p",
	"name",
	"title",
	"page_id",
	"pagename",
	"post_parent",
	"post_parent__in",
	"post_parent__not_in",
	"post__in",
	"post__not_in",
	"post_name__in",
	"post_type",      // restricted
	"posts_per_page", // restricted
	"offset",
	"paged",
	"page",
	"ignore_sticky_posts",
	"order",
	"orderby",
	"year",
	"monthnum",
	"w",
	"day",
	"hour",
	"minute",
	"second",
	"m",
	"date_query",
	"inclusive",
	"compare",
	"column",
	"relation",
	"post_mime_type",
}

// Feature groups, each enabled by its own gate.
var (
	AuthorArgs = []string{"author", "author_name", "author__in", "author__not_in"}

	MetaArgs = []string{"meta_key", "meta_value", "meta_value_num", "meta_compare", "meta_query"}

	SearchArgs = []string{"s"}

	TaxonomyArgs = []string{
		"cat",
		"category_name",
		"category__and",
		"category__in",
		"category__not_in",
		"tag",
		"tag_id",
		"tag__and",
		"tag__in",
		"tag__not_in",
		"tag_slug__and",
		"tag_slug__in",
		"tax_query",
	}
)

// Set is a computed allow-list.
type Set map[string]struct{}

// NewSet creates a set from names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is permitted.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the permitted names in sorted order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Builder assembles the allow-list from the base set, the feature groups and
// the override stages.
type Builder struct {
	hooks *hook.Registry
}

// NewBuilder creates a Builder reading stages from hooks.
func NewBuilder(hooks *hook.Registry) *Builder {
	return &Builder{hooks: hooks}
}

type group struct {
	gate  hook.Gate[*domain.Request]
	names []string
}

var groups = []group{
	{hook.AllowAuthors, AuthorArgs},
	{hook.AllowMeta, MetaArgs},
	{hook.AllowSearch, SearchArgs},
	{hook.AllowTaxonomies, TaxonomyArgs},
}

// Build computes the allow-list for req. The result is fresh on every call.
func (b *Builder) Build(ctx context.Context, req *domain.Request) Set {
	names := make([]string, 0, len(Base)+len(TaxonomyArgs)+len(AuthorArgs)+len(MetaArgs)+1)
	names = append(names, Base...)

	for _, g := range groups {
		if g.gate.Check(ctx, b.hooks, true, req) {
			names = append(names, g.names...)
		}
	}

	names = hook.AllowedArgs.Apply(ctx, b.hooks, names)
	names = hook.CompatArgs.Apply(ctx, b.hooks, names)

	return NewSet(names...)
}
