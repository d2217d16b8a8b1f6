// Package sanitize turns untrusted request parameters into safe query
// arguments. Disallowed input is never an error: it is dropped, or replaced
// by the fail-closed fallback of the restricted parameter.
package sanitize

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"content-query-service/internal/domain"
	"content-query-service/internal/hook"
)

// Default policy values.
const (
	DefaultMaxPerPage = 50
)

// DefaultStatuses are the statuses readable when nothing else is configured.
var DefaultStatuses = []string{domain.FallbackPostStatus}

// PolicyConfig holds the configured starting points of the policy stages.
type PolicyConfig struct {
	AllowedStatuses []string
	MaxPerPage      int
}

// Rules is a policy resolved for one request.
type Rules struct {
	PostTypes  []string
	Statuses   []string
	MaxPerPage int
}

// TypeAllowed reports whether the post type may be returned.
func (r Rules) TypeAllowed(postType string) bool {
	return slices.Contains(r.PostTypes, postType)
}

// StatusAllowed reports whether the status may be returned.
func (r Rules) StatusAllowed(status string) bool {
	return slices.Contains(r.Statuses, status)
}

// Policy resolves the live allow-policy: permitted types, permitted statuses
// and the page-size bound. It is re-evaluated on every call.
type Policy struct {
	hooks  *hook.Registry
	types  domain.PostTypeSource
	cfg    PolicyConfig
	logger *zap.Logger
}

// NewPolicy creates a Policy.
func NewPolicy(hooks *hook.Registry, types domain.PostTypeSource, cfg PolicyConfig, logger *zap.Logger) *Policy {
	if len(cfg.AllowedStatuses) == 0 {
		cfg.AllowedStatuses = DefaultStatuses
	}
	if cfg.MaxPerPage <= 0 {
		cfg.MaxPerPage = DefaultMaxPerPage
	}
	return &Policy{
		hooks:  hooks,
		types:  types,
		cfg:    cfg,
		logger: logger,
	}
}

// Resolve evaluates the policy stages. A failing post type source yields no
// allowed types.
func (p *Policy) Resolve(ctx context.Context) Rules {
	types, err := p.types.PublicPostTypes(ctx)
	if err != nil {
		p.logger.Warn("failed to load public post types",
			zap.Error(err),
		)
		types = []string{}
	}

	statuses := make([]string, len(p.cfg.AllowedStatuses))
	copy(statuses, p.cfg.AllowedStatuses)

	limit := hook.MaxPostsPerPage.Apply(ctx, p.hooks, p.cfg.MaxPerPage)
	if limit < 1 {
		limit = 1
	}

	return Rules{
		PostTypes:  hook.AllowedPostTypes.Apply(ctx, p.hooks, types),
		Statuses:   hook.AllowedPostStatus.Apply(ctx, p.hooks, statuses),
		MaxPerPage: limit,
	}
}

// IsPostAllowed re-checks a result item against rules and the post_is_allowed gate.
func (p *Policy) IsPostAllowed(ctx context.Context, rules Rules, post *domain.Post) bool {
	if post == nil {
		return false
	}
	if !rules.StatusAllowed(post.Status) {
		return false
	}
	if !rules.TypeAllowed(post.Type) {
		return false
	}
	return hook.PostIsAllowed.Check(ctx, p.hooks, true, post)
}
