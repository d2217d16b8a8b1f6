// Package service provides application use cases.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"content-query-service/internal/allowlist"
	"content-query-service/internal/domain"
	"content-query-service/internal/hook"
	"content-query-service/internal/metrics"
	"content-query-service/internal/sanitize"
	"content-query-service/internal/serializer"
)

// DefaultArgs are the server-side defaults of every Effective Query.
func DefaultArgs() domain.Args {
	return domain.Args{
		domain.ArgPostStatus:               domain.String(domain.FallbackPostStatus),
		domain.ArgPostsPerPage:             domain.Int(10),
		domain.ArgExcludePasswordProtected: domain.Bool(true),
	}
}

// ItemSerializer renders admitted result items.
type ItemSerializer interface {
	ContextFor(postType string) serializer.Context
	DefaultContext() serializer.Context
	Serialize(post *domain.Post, sctx serializer.Context) (*serializer.PostResponse, error)
}

// Response is the outcome of one query request.
type Response struct {
	Items      []any
	Total      int64
	TotalPages int
	Args       domain.Args // the Effective Query
}

// QueryService runs the query pipeline: allow-list, sanitize, assemble,
// execute, post-filter and serialize.
type QueryService struct {
	hooks      *hook.Registry
	allowlist  *allowlist.Builder
	policy     *sanitize.Policy
	sanitizer  *sanitize.Sanitizer
	engine     domain.QueryEngine
	serializer ItemSerializer
	defaults   domain.Args
	logger     *zap.Logger
}

// NewQueryService creates a new QueryService. A nil defaults map means DefaultArgs.
func NewQueryService(
	hooks *hook.Registry,
	policy *sanitize.Policy,
	sanitizer *sanitize.Sanitizer,
	engine domain.QueryEngine,
	itemSerializer ItemSerializer,
	defaults domain.Args,
	logger *zap.Logger,
) *QueryService {
	if defaults == nil {
		defaults = DefaultArgs()
	}
	return &QueryService{
		hooks:      hooks,
		allowlist:  allowlist.NewBuilder(hooks),
		policy:     policy,
		sanitizer:  sanitizer,
		engine:     engine,
		serializer: itemSerializer,
		defaults:   defaults,
		logger:     logger,
	}
}

// Authorize runs the permission gate for req.
func (s *QueryService) Authorize(ctx context.Context, req *domain.Request) bool {
	return hook.PermissionsCheck.Check(ctx, s.hooks, true, req)
}

// EffectiveQuery builds the arguments submitted to the engine for req.
func (s *QueryService) EffectiveQuery(ctx context.Context, req *domain.Request) domain.Args {
	allowed := s.allowlist.Build(ctx, req)
	rules := s.policy.Resolve(ctx)

	sanitized, report := s.sanitizer.Sanitize(req.Params, allowed, rules)
	for _, key := range report.Dropped {
		metrics.ParamsDroppedTotal.WithLabelValues(key).Inc()
	}
	for _, key := range report.Coerced {
		metrics.ParamsCoercedTotal.WithLabelValues(key).Inc()
	}
	if len(report.Dropped) > 0 || len(report.Coerced) > 0 {
		s.logger.Debug("request parameters sanitized",
			zap.Strings("dropped", report.Dropped),
			zap.Strings("coerced", report.Coerced),
		)
	}

	defaults := hook.DefaultArgs.Apply(ctx, s.hooks, s.defaults.Clone())
	args := domain.Merge(sanitized, defaults)

	for _, key := range args.Keys() {
		args[key] = hook.ArgValue.Apply(ctx, s.hooks, domain.ArgValue{
			Key:   key,
			Value: args[key],
			Args:  args.Clone(),
		}).Value
	}

	s.enforce(args, rules)

	return args
}

// enforce re-applies the restricted-parameter policies to values produced
// by defaults and transforms.
func (s *QueryService) enforce(args domain.Args, rules sanitize.Rules) {
	var changed []string

	if v, ok := args[domain.ArgPostType]; ok {
		if restricted, c := sanitize.RestrictPostType(v, rules.PostTypes); c {
			args[domain.ArgPostType] = restricted
			changed = append(changed, domain.ArgPostType)
		}
	}
	if v, ok := args[domain.ArgPostStatus]; ok {
		if restricted, c := sanitize.RestrictPostStatus(v, rules.Statuses); c {
			args[domain.ArgPostStatus] = restricted
			changed = append(changed, domain.ArgPostStatus)
		}
	}
	if v, ok := args[domain.ArgPostsPerPage]; ok {
		if restricted, c := sanitize.RestrictPostsPerPage(v, rules.MaxPerPage); c {
			args[domain.ArgPostsPerPage] = restricted
			changed = append(changed, domain.ArgPostsPerPage)
		}
	} else {
		args[domain.ArgPostsPerPage] = domain.Int(rules.MaxPerPage)
		changed = append(changed, domain.ArgPostsPerPage)
	}

	for _, key := range changed {
		metrics.ParamsCoercedTotal.WithLabelValues(key).Inc()
	}
	if len(changed) > 0 {
		s.logger.Debug("effective query restricted",
			zap.Strings("keys", changed),
		)
	}
}

// Query answers req. Engine failures produce an empty response, never an error.
func (s *QueryService) Query(ctx context.Context, req *domain.Request) *Response {
	args := s.EffectiveQuery(ctx, req)

	hook.BeforeQuery.Do(ctx, s.hooks, args.Clone())

	result := s.execute(ctx, args)

	exec := hook.CompatAfterQuery.Apply(ctx, s.hooks, domain.Execution{Args: args.Clone(), Result: result})
	if exec.Result != nil {
		result = exec.Result
	}

	hook.AfterQuery.Do(ctx, s.hooks, domain.Execution{Args: args.Clone(), Result: result})

	items := s.collect(ctx, result)

	perPage, _ := args.Int(domain.ArgPostsPerPage)

	return &Response{
		Items:      items,
		Total:      result.Found,
		TotalPages: domain.TotalPages(result.Found, perPage),
		Args:       args,
	}
}

func (s *QueryService) execute(ctx context.Context, args domain.Args) *domain.QueryResult {
	start := time.Now()
	result, err := s.engine.Query(ctx, args)
	metrics.EngineDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.EngineErrorsTotal.Inc()
		s.logger.Warn("query engine failed",
			zap.Error(err),
			zap.Any("args", args.Raw()),
		)
		return domain.EmptyResult()
	}
	if result == nil {
		return domain.EmptyResult()
	}

	s.logger.Debug("query completed",
		zap.Int64("found", result.Found),
		zap.Int("count", len(result.Posts)),
	)

	return result
}

// collect post-filters result items against the live policy and serializes
// the admitted ones in engine order.
func (s *QueryService) collect(ctx context.Context, result *domain.QueryResult) []any {
	items := hook.DefaultData.Apply(ctx, s.hooks, []any{})
	rules := s.policy.Resolve(ctx)

	for _, post := range result.Posts {
		if !s.policy.IsPostAllowed(ctx, rules, post) {
			metrics.ItemsRejectedTotal.Inc()
			continue
		}

		hook.Item.Do(ctx, s.hooks, post)

		sctx := s.serializer.DefaultContext()
		if hook.UpdatePostTypeMeta.Check(ctx, s.hooks, true, post) {
			sctx = s.serializer.ContextFor(post.Type)
		}

		if !hook.UseSerializer.Check(ctx, s.hooks, true, post) {
			continue
		}

		item, err := s.serializer.Serialize(post, sctx)
		if err != nil {
			s.logger.Warn("failed to serialize item",
				zap.Int64("id", post.ID),
				zap.Error(err),
			)
			continue
		}
		items = append(items, item)
	}

	hook.AfterLoop.Do(ctx, s.hooks, items)

	return items
}
