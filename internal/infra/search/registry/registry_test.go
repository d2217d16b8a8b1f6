package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"content-query-service/internal/config"
	"content-query-service/internal/infra/search/fulltext"
	"content-query-service/internal/infra/search/remote"
)

func TestNewBackend(t *testing.T) {
	logger := zap.NewNop()
	cfg := config.SearchConfig{
		Remote: config.RemoteConfig{BaseURL: "http://search.local", Timeout: time.Second},
	}

	none, err := NewBackend(KindNone, cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, none)

	bleve, err := NewBackend(KindBleve, cfg, logger)
	require.NoError(t, err)
	idx, ok := bleve.(*fulltext.Index)
	require.True(t, ok)
	defer idx.Close()
	assert.Equal(t, "bleve", bleve.Name())

	rem, err := NewBackend(KindRemote, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &remote.Client{}, rem)

	_, err = NewBackend("solr", cfg, logger)
	assert.Error(t, err)
}

func TestRemoteClientConfig(t *testing.T) {
	got := RemoteClientConfig(config.RemoteConfig{
		BaseURL: "http://search.local",
		APIKey:  "k",
		Timeout: 3 * time.Second,
		Retry:   config.RetryConfig{MaxAttempts: 2, WaitTime: time.Millisecond, MaxWaitTime: time.Second},
		CB:      config.CBConfig{MaxRequests: 4, Interval: time.Minute, Timeout: 30 * time.Second, FailureRatio: 0.5},
	})

	assert.Equal(t, "http://search.local", got.BaseURL)
	assert.Equal(t, "k", got.APIKey)
	assert.Equal(t, 2, got.Retry.MaxAttempts)
	assert.Equal(t, uint32(4), got.CB.MaxRequests)
	assert.InDelta(t, 0.5, got.CB.FailureRatio, 0.0001)
}
