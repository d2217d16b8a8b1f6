package allowlist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-query-service/internal/domain"
	"content-query-service/internal/hook"
)

func deny(_ context.Context, _ bool, _ *domain.Request) bool { return false }

func TestBuilder_Defaults(t *testing.T) {
	b := NewBuilder(hook.NewRegistry())
	set := b.Build(context.Background(), &domain.Request{})

	for _, name := range Base {
		assert.True(t, set.Has(name), "base name %q", name)
	}
	for _, names := range [][]string{AuthorArgs, MetaArgs, SearchArgs, TaxonomyArgs} {
		for _, name := range names {
			assert.True(t, set.Has(name), "group name %q", name)
		}
	}

	assert.False(t, set.Has("lang"), "lang is only added through compat_args")
	assert.False(t, set.Has("post_status"))
	assert.False(t, set.Has("perm"))
	assert.Len(t, set, len(Base)+len(AuthorArgs)+len(MetaArgs)+len(SearchArgs)+len(TaxonomyArgs))
}

func TestBuilder_GroupToggles(t *testing.T) {
	tests := []struct {
		name    string
		gate    hook.Gate[*domain.Request]
		removed []string
	}{
		{"authors", hook.AllowAuthors, AuthorArgs},
		{"meta", hook.AllowMeta, MetaArgs},
		{"search", hook.AllowSearch, SearchArgs},
		{"taxonomies", hook.AllowTaxonomies, TaxonomyArgs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := hook.NewRegistry()
			require.NoError(t, tt.gate.Add(r, deny))

			set := NewBuilder(r).Build(context.Background(), &domain.Request{})

			for _, name := range tt.removed {
				assert.False(t, set.Has(name), "%q should be removed", name)
			}
			assert.True(t, set.Has("post_type"))
		})
	}
}

func TestBuilder_AllowedArgsOverride(t *testing.T) {
	r := hook.NewRegistry()
	require.NoError(t, hook.AllowedArgs.Add(r, func(_ context.Context, names []string) []string {
		out := names[:0:0]
		for _, n := range names {
			if n != "orderby" {
				out = append(out, n)
			}
		}
		return append(out, "post_status")
	}))

	set := NewBuilder(r).Build(context.Background(), &domain.Request{})

	assert.False(t, set.Has("orderby"))
	assert.True(t, set.Has("post_status"))
}

func TestBuilder_CompatArgsRunAfterOverride(t *testing.T) {
	r := hook.NewRegistry()
	require.NoError(t, hook.AllowedArgs.Add(r, func(_ context.Context, _ []string) []string {
		return nil
	}))
	require.NoError(t, hook.CompatArgs.Add(r, func(_ context.Context, names []string) []string {
		return append(names, "lang")
	}))

	set := NewBuilder(r).Build(context.Background(), &domain.Request{})

	assert.Equal(t, []string{"lang"}, set.Names())
}

func TestBuilder_GateSeesRequest(t *testing.T) {
	r := hook.NewRegistry()
	require.NoError(t, hook.AllowSearch.Add(r, func(_ context.Context, allowed bool, req *domain.Request) bool {
		return allowed && req.HeaderValue("X-Search") != "off"
	}))

	b := NewBuilder(r)
	req := &domain.Request{Header: map[string][]string{"X-Search": {"off"}}}

	assert.False(t, b.Build(context.Background(), req).Has("s"))
	assert.True(t, b.Build(context.Background(), &domain.Request{}).Has("s"))
}

func TestBuilder_EmptyIsValid(t *testing.T) {
	r := hook.NewRegistry()
	require.NoError(t, hook.AllowedArgs.Add(r, func(_ context.Context, _ []string) []string {
		return []string{}
	}))

	set := NewBuilder(r).Build(context.Background(), &domain.Request{})
	assert.Empty(t, set)
	assert.Empty(t, set.Names())
}

func TestFeatures_Register(t *testing.T) {
	ctx := context.Background()

	r := hook.NewRegistry()
	require.NoError(t, Features{
		Authors: true,
		Meta:    true,
		Search:  true,
		Add:     []string{"post_status", "offset"},
		Remove:  []string{"orderby", "s"},
	}.Register(r))

	set := NewBuilder(r).Build(ctx, &domain.Request{})

	for _, name := range TaxonomyArgs {
		assert.False(t, set.Has(name), "%q should be removed", name)
	}
	for _, name := range AuthorArgs {
		assert.True(t, set.Has(name), "%q should stay", name)
	}
	assert.True(t, set.Has("post_status"))
	assert.True(t, set.Has("offset"))
	assert.False(t, set.Has("orderby"))
	assert.False(t, set.Has("s"), "remove wins over an enabled group")
}

func TestFeatures_AllEnabledRegistersNothing(t *testing.T) {
	r := hook.NewRegistry()
	require.NoError(t, AllFeatures().Register(r))

	for _, stage := range []string{
		hook.AllowAuthors.Name(),
		hook.AllowMeta.Name(),
		hook.AllowSearch.Name(),
		hook.AllowTaxonomies.Name(),
		hook.AllowedArgs.Name(),
	} {
		assert.Zero(t, r.Len(stage), stage)
	}
}
