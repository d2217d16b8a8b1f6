package compat

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"content-query-service/internal/domain"
	"content-query-service/internal/hook"
	"content-query-service/internal/metrics"
)

// SearchReplacement answers search queries from an alternate backend. The
// backend ranks; posts are loaded from the store in the backend's order.
type SearchReplacement struct {
	backend domain.SearchBackend
	store   domain.PostStore
	logger  *zap.Logger
}

// NewSearchReplacement creates a new SearchReplacement.
func NewSearchReplacement(backend domain.SearchBackend, store domain.PostStore, logger *zap.Logger) *SearchReplacement {
	return &SearchReplacement{backend: backend, store: store, logger: logger}
}

// Register hooks the replacement onto compat_after_query.
func (s *SearchReplacement) Register(hooks *hook.Registry) error {
	return hook.CompatAfterQuery.Add(hooks, s.replace)
}

func (s *SearchReplacement) replace(ctx context.Context, exec domain.Execution) domain.Execution {
	text := strings.TrimSpace(exec.Args.Text(domain.ArgSearch))
	if text == "" {
		return exec
	}

	name := s.backend.Name()
	start := time.Now()

	q := searchQuery(text, exec.Args)
	hits, err := s.backend.Search(ctx, q)
	if err != nil {
		status := "error"
		if errors.Is(err, domain.ErrBackendUnavailable) {
			status = "unavailable"
		}
		metrics.SearchBackendTotal.WithLabelValues(name, status).Inc()
		s.logger.Warn("search backend failed, keeping engine result",
			zap.String("backend", name),
			zap.Error(err),
		)
		return exec
	}

	posts, err := s.hydrate(ctx, q, hits.IDs)
	if err != nil {
		metrics.SearchBackendTotal.WithLabelValues(name, "error").Inc()
		s.logger.Warn("loading search hits failed, keeping engine result",
			zap.String("backend", name),
			zap.Error(err),
		)
		return exec
	}

	metrics.SearchBackendTotal.WithLabelValues(name, "ok").Inc()
	s.logger.Debug("search answered by backend",
		zap.String("backend", name),
		zap.Int("hits", len(posts)),
		zap.Int64("total", hits.Total),
		zap.Duration("duration", time.Since(start)),
	)

	return domain.Execution{
		Args:   exec.Args,
		Result: &domain.QueryResult{Posts: posts, Found: hits.Total},
	}
}

// hydrate loads posts and orders them like ids. Ids unknown to the store and
// posts the query does not admit are skipped.
func (s *SearchReplacement) hydrate(ctx context.Context, q domain.SearchQuery, ids []int64) ([]*domain.Post, error) {
	if len(ids) == 0 {
		return []*domain.Post{}, nil
	}

	loaded, err := s.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.Post, len(loaded))
	for _, p := range loaded {
		byID[p.ID] = p
	}

	posts := make([]*domain.Post, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		if !q.Admits(p) {
			s.logger.Debug("dropping search hit outside the query",
				zap.Int64("id", id),
				zap.String("backend", s.backend.Name()),
			)
			continue
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// searchQuery maps the Effective Query onto the backend query.
func searchQuery(text string, args domain.Args) domain.SearchQuery {
	q := domain.SearchQuery{
		Text:     text,
		Types:    listOf(args[domain.ArgPostType], domain.FallbackPostType),
		Statuses: listOf(args[domain.ArgPostStatus], domain.FallbackPostStatus),
		Page:     1,
		PerPage:  10,
	}

	if n, ok := args.Int(domain.ArgPostsPerPage); ok && n != 0 {
		q.PerPage = n
		if n < 0 {
			q.PerPage = 0
		}
	}
	if n, ok := args.Int("paged"); ok && n > 0 {
		q.Page = n
	} else if n, ok := args.Int("page"); ok && n > 0 {
		q.Page = n
	}
	if n, ok := args.Int("offset"); ok && n > 0 {
		q.Skip = n
	}

	if v, ok := args[domain.ArgLang]; ok {
		q.Lang = listOf(v, "")
	}
	if v, ok := args[domain.ArgExcludePasswordProtected]; ok && v.Truthy() {
		q.ExcludeProtected = true
	}
	if v, ok := args["has_password"]; ok && !v.Truthy() {
		q.ExcludeProtected = true
	}

	if v, ok := args["author"]; ok {
		for _, id := range intsOf(v) {
			if id < 0 {
				q.NotAuthors = append(q.NotAuthors, -id)
			} else if id > 0 {
				q.Authors = append(q.Authors, id)
			}
		}
	}
	if v, ok := args["author__in"]; ok {
		q.Authors = append(q.Authors, intsOf(v)...)
	}
	if v, ok := args["author__not_in"]; ok {
		q.NotAuthors = append(q.NotAuthors, intsOf(v)...)
	}

	return q
}

func intsOf(v domain.Value) []int64 {
	var out []int64
	for _, s := range listOf(v, "") {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func listOf(v domain.Value, fallback string) []string {
	var out []string
	if v.IsScalar() {
		for _, s := range strings.Split(v.Text(), ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	} else {
		out = v.Strings()
	}
	if len(out) == 0 && fallback != "" {
		return []string{fallback}
	}
	return out
}
