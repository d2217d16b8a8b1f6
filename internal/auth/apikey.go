// Package auth provides the API key permission gate of the query route.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"content-query-service/internal/domain"
	"content-query-service/internal/hook"
)

// HeaderAPIKey carries a key when no bearer token is sent.
const HeaderAPIKey = "X-API-Key"

// KeyGate admits requests presenting one of the configured keys.
type KeyGate struct {
	keys [][]byte
}

// NewKeyGate creates a gate for keys. Blank keys are ignored.
func NewKeyGate(keys []string) *KeyGate {
	g := &KeyGate{}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			g.keys = append(g.keys, []byte(k))
		}
	}
	return g
}

// Enabled reports whether any key is configured.
func (g *KeyGate) Enabled() bool {
	return len(g.keys) > 0
}

// Register adds the gate to permissions_check. It is a no-op without keys.
func (g *KeyGate) Register(hooks *hook.Registry) error {
	if !g.Enabled() {
		return nil
	}
	return hook.PermissionsCheck.Add(hooks, func(_ context.Context, allowed bool, req *domain.Request) bool {
		return allowed && g.Allows(req)
	})
}

// Allows checks the request credentials.
func (g *KeyGate) Allows(req *domain.Request) bool {
	presented := presentedKey(req)
	if presented == "" {
		return false
	}
	for _, k := range g.keys {
		if subtle.ConstantTimeCompare([]byte(presented), k) == 1 {
			return true
		}
	}
	return false
}

func presentedKey(req *domain.Request) string {
	if req == nil {
		return ""
	}
	if h := req.HeaderValue("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(req.HeaderValue(HeaderAPIKey))
}
