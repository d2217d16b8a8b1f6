// Package middleware provides HTTP middleware for the query route.
package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
)

// ReadinessFunc reports whether a dependency is ready to serve traffic.
type ReadinessFunc func(ctx context.Context) error

const readinessTimeout = 2 * time.Second

// NewHealthCheck creates a Fiber healthcheck middleware with Kubernetes-style endpoints.
//
// Endpoints:
//   - GET /livez  - Liveness probe (app is running)
//   - GET /readyz - Readiness probe (every check passes, e.g. DB ping)
//
// This middleware should be registered BEFORE other routes.
func NewHealthCheck(checks ...ReadinessFunc) fiber.Handler {
	return healthcheck.New(healthcheck.Config{
		LivenessEndpoint: "/livez",
		LivenessProbe: func(_ *fiber.Ctx) bool {
			return true
		},

		ReadinessEndpoint: "/readyz",
		ReadinessProbe: func(c *fiber.Ctx) bool {
			ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
			defer cancel()

			for _, check := range checks {
				if check == nil || check(ctx) != nil {
					return false
				}
			}
			return true
		},
	})
}
