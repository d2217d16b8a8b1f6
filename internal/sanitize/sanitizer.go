package sanitize

import (
	"slices"
	"sort"

	"content-query-service/internal/allowlist"
	"content-query-service/internal/domain"
)

// LegacyStatusKey is the name the status restriction has always been keyed
// on. No caller sends it, so the restriction is inert unless re-keyed.
const LegacyStatusKey = "posts_status"

// Report lists what the sanitizer changed.
type Report struct {
	Dropped []string // keys not in the allow-list
	Coerced []string // keys replaced by a fallback or clamped
}

// Sanitizer filters request parameters against an allow-list and applies the
// restricted-parameter policies.
type Sanitizer struct {
	statusKey string
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithPostStatusKey re-keys the status restriction. Passing
// domain.ArgPostStatus makes it apply to real requests.
func WithPostStatusKey(key string) Option {
	return func(s *Sanitizer) {
		s.statusKey = key
	}
}

// New creates a Sanitizer.
func New(opts ...Option) *Sanitizer {
	s := &Sanitizer{statusKey: LegacyStatusKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StatusKey returns the parameter name the status restriction applies to.
func (s *Sanitizer) StatusKey() string {
	return s.statusKey
}

// Sanitize keeps allow-listed parameters and restricts post_type,
// posts_per_page and the status key.
func (s *Sanitizer) Sanitize(params domain.Params, allowed allowlist.Set, rules Rules) (domain.Args, Report) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(domain.Args, len(params))
	var report Report

	for _, key := range keys {
		if !allowed.Has(key) {
			report.Dropped = append(report.Dropped, key)
			continue
		}

		value := params[key]
		changed := false

		switch key {
		case domain.ArgPostType:
			value, changed = RestrictPostType(value, rules.PostTypes)
		case domain.ArgPostsPerPage:
			value, changed = RestrictPostsPerPage(value, rules.MaxPerPage)
		case s.statusKey:
			value, changed = RestrictPostStatus(value, rules.Statuses)
		}

		if changed {
			report.Coerced = append(report.Coerced, key)
		}
		out[key] = value
	}

	return out, report
}

// RestrictPostType applies the post type policy. A list survives only if
// every member is allowed; "any" expands to the allowed set; everything
// else disallowed becomes "post".
func RestrictPostType(v domain.Value, allowed []string) (domain.Value, bool) {
	return restrict(v, allowed, domain.FallbackPostType)
}

// RestrictPostStatus applies the status policy with "publish" as fallback.
func RestrictPostStatus(v domain.Value, allowed []string) (domain.Value, bool) {
	return restrict(v, allowed, domain.FallbackPostStatus)
}

func restrict(v domain.Value, allowed []string, fallback string) (domain.Value, bool) {
	if v.IsList() || v.IsMap() {
		items := v.Items()
		if len(items) == 0 {
			return domain.String(fallback), true
		}
		for _, item := range items {
			if !item.IsScalar() || !slices.Contains(allowed, item.Text()) {
				return domain.String(fallback), true
			}
		}
		return v, false
	}

	text := v.Text()
	if text == domain.WildcardAny {
		return domain.List(allowed...), true
	}
	if !slices.Contains(allowed, text) {
		return domain.String(fallback), true
	}
	return v, false
}

// RestrictPostsPerPage clamps the page size into (0, max]. Values outside
// the range or not numeric become the limit.
func RestrictPostsPerPage(v domain.Value, limit int) (domain.Value, bool) {
	n, ok := v.Int()
	if !ok || n <= 0 || n > limit {
		return domain.Int(limit), true
	}
	return v, false
}
