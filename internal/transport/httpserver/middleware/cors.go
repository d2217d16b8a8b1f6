package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS returns a middleware allowing read-only cross-origin calls from
// origins, a comma separated list. Empty means any origin.
func CORS(origins string) fiber.Handler {
	origins = strings.TrimSpace(origins)
	if origins == "" {
		origins = "*"
	}

	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  strings.Join([]string{fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions}, ","),
		AllowHeaders:  "Authorization,Content-Type,X-API-Key",
		ExposeHeaders: "X-WP-Total,X-WP-TotalPages",
	})
}
