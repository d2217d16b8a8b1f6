package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-query-service/internal/allowlist"
	"content-query-service/internal/config"
	"content-query-service/internal/domain"
	"content-query-service/internal/hook"
)

func TestApplication_FeaturesReachAllowList(t *testing.T) {
	app := &application{cfg: &config.Config{Query: config.QueryConfig{
		Features:    config.FeaturesConfig{Authors: true, Meta: true, Search: true, Taxonomies: false},
		AllowedArgs: config.ArgsOverride{Add: []string{"post_status"}, Remove: []string{"orderby"}},
	}}}

	hooks := hook.NewRegistry()
	require.NoError(t, app.features().Register(hooks))

	set := allowlist.NewBuilder(hooks).Build(context.Background(), &domain.Request{})

	for _, name := range []string{"cat", "tag", "tax_query"} {
		assert.False(t, set.Has(name), "%q should be disabled", name)
	}
	assert.True(t, set.Has("author"))
	assert.True(t, set.Has("s"))
	assert.True(t, set.Has("post_status"))
	assert.False(t, set.Has("orderby"))
}
