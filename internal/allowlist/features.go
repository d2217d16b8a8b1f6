package allowlist

import (
	"context"
	"slices"

	"content-query-service/internal/domain"
	"content-query-service/internal/hook"
)

// Features is the operator's static choice of feature groups and extra
// names. It is applied through the same stages integrations use.
type Features struct {
	Authors    bool
	Meta       bool
	Search     bool
	Taxonomies bool

	Add    []string // appended to the allow-list
	Remove []string // removed from the allow-list, after Add
}

// AllFeatures enables every group and changes nothing else.
func AllFeatures() Features {
	return Features{Authors: true, Meta: true, Search: true, Taxonomies: true}
}

// Register closes the disabled gates and hooks Add/Remove onto allowed_args.
// Enabled groups register nothing.
func (f Features) Register(hooks *hook.Registry) error {
	closed := func(_ context.Context, _ bool, _ *domain.Request) bool { return false }

	for _, g := range []struct {
		enabled bool
		gate    hook.Gate[*domain.Request]
	}{
		{f.Authors, hook.AllowAuthors},
		{f.Meta, hook.AllowMeta},
		{f.Search, hook.AllowSearch},
		{f.Taxonomies, hook.AllowTaxonomies},
	} {
		if g.enabled {
			continue
		}
		if err := g.gate.Add(hooks, closed); err != nil {
			return err
		}
	}

	if len(f.Add) == 0 && len(f.Remove) == 0 {
		return nil
	}

	add := slices.Clone(f.Add)
	remove := slices.Clone(f.Remove)
	return hook.AllowedArgs.Add(hooks, func(_ context.Context, names []string) []string {
		out := make([]string, 0, len(names)+len(add))
		for _, n := range append(slices.Clone(names), add...) {
			if !slices.Contains(remove, n) && !slices.Contains(out, n) {
				out = append(out, n)
			}
		}
		return out
	})
}
