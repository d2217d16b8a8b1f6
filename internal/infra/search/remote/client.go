// Package remote implements a search backend served by an external HTTP API.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"content-query-service/internal/domain"
	"content-query-service/internal/infra/search"
)

// Endpoint is the API path of the remote search endpoint.
const Endpoint = "/search"

// Name identifies the backend in logs and metrics.
const Name = "remote"

// Client implements domain.SearchBackend over HTTP.
type Client struct {
	client *resty.Client
	cb     *gobreaker.CircuitBreaker[*resty.Response]
	logger *zap.Logger
}

// New creates a new remote search client.
func New(cfg search.ClientConfig, logger *zap.Logger) *Client {
	return &Client{
		client: search.NewRestyClient(cfg),
		cb:     search.NewCircuitBreaker[*resty.Response](Name, cfg.CB, logger),
		logger: logger,
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string {
	return Name
}

// Search asks the remote API for matching post ids.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchHits, error) {
	resp, err := c.cb.Execute(func() (*resty.Response, error) {
		var result Response
		r, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(queryParams(q)).
			SetResult(&result).
			ForceContentType("application/json").
			Get(Endpoint)
		if err != nil {
			return nil, err
		}
		if r.IsError() {
			return nil, fmt.Errorf("remote search returned status %d", r.StatusCode())
		}

		return r, nil
	})

	if err != nil {
		c.logger.Warn("remote search failed",
			zap.Error(err),
			zap.String("state", c.cb.State().String()),
		)

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
		}
		return nil, fmt.Errorf("searching remote backend: %w", err)
	}

	hits := resp.Result().(*Response).ToDomain()

	c.logger.Debug("remote search completed",
		zap.Int("hits", len(hits.IDs)),
		zap.Int64("total", hits.Total),
	)

	return hits, nil
}

// queryParams encodes q for the remote API. Optional filters are only sent
// when set.
func queryParams(q domain.SearchQuery) map[string]string {
	params := map[string]string{
		"q":        q.Text,
		"type":     strings.Join(q.Types, ","),
		"status":   strings.Join(q.Statuses, ","),
		"page":     strconv.Itoa(q.Page),
		"per_page": strconv.Itoa(q.PerPage),
	}
	if len(q.Lang) > 0 {
		params["lang"] = strings.Join(q.Lang, ",")
	}
	if len(q.Authors) > 0 {
		params["author"] = joinIDs(q.Authors)
	}
	if len(q.NotAuthors) > 0 {
		params["author_exclude"] = joinIDs(q.NotAuthors)
	}
	if q.ExcludeProtected {
		params["exclude_protected"] = "1"
	}
	if q.Skip > 0 {
		params["offset"] = strconv.Itoa(q.Skip)
	}
	return params
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// HealthCheck verifies the remote API is accessible.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.client.R().
		SetContext(ctx).
		Get("/health")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("health check returned status %d", resp.StatusCode())
	}

	return nil
}
