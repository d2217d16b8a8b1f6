// Package registry builds the configured alternate search backend.
package registry

import (
	"fmt"

	"go.uber.org/zap"

	"content-query-service/internal/config"
	"content-query-service/internal/domain"
	"content-query-service/internal/infra/search"
	"content-query-service/internal/infra/search/fulltext"
	"content-query-service/internal/infra/search/remote"
)

// Backend kinds accepted by compat.search_backend.
const (
	KindNone   = "none"
	KindBleve  = "bleve"
	KindRemote = "remote"
)

// NewBackend creates the search backend selected by kind. It returns nil for
// KindNone. This is a factory function that centralizes backend
// initialization while keeping dependency injection in main.
func NewBackend(kind string, cfg config.SearchConfig, logger *zap.Logger) (domain.SearchBackend, error) {
	switch kind {
	case KindNone, "":
		return nil, nil
	case KindBleve:
		idx, err := fulltext.Open(cfg.Bleve.Path, logger.Named("bleve"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	case KindRemote:
		return remote.New(RemoteClientConfig(cfg.Remote), logger.Named("remote")), nil
	default:
		return nil, fmt.Errorf("unknown search backend %q", kind)
	}
}

// RemoteClientConfig maps configuration onto the HTTP client settings.
func RemoteClientConfig(cfg config.RemoteConfig) search.ClientConfig {
	return search.ClientConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
		Retry: search.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			WaitTime:    cfg.Retry.WaitTime,
			MaxWaitTime: cfg.Retry.MaxWaitTime,
		},
		CB: search.CBConfig{
			MaxRequests:  cfg.CB.MaxRequests,
			Interval:     cfg.CB.Interval,
			Timeout:      cfg.CB.Timeout,
			FailureRatio: cfg.CB.FailureRatio,
		},
	}
}
