// Package compat wires optional integrations into the query pipeline.
package compat

import (
	"context"
	"slices"

	"content-query-service/internal/domain"
	"content-query-service/internal/hook"
)

// RegisterLanguages allow-lists the lang parameter so multilingual content
// can be filtered by language.
func RegisterLanguages(hooks *hook.Registry) error {
	return hook.CompatArgs.Add(hooks, func(_ context.Context, names []string) []string {
		if slices.Contains(names, domain.ArgLang) {
			return names
		}
		return append(names, domain.ArgLang)
	})
}
