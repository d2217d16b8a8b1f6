// Package httpserver provides HTTP server and routing.
package httpserver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"content-query-service/internal/app/service"
	"content-query-service/internal/metrics"
	"content-query-service/internal/transport/httpserver/dto"
	"content-query-service/internal/transport/httpserver/handler"
	"content-query-service/internal/transport/httpserver/middleware"
	"content-query-service/internal/transport/httpserver/params"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         int
	Prefix       string // e.g. wp-json
	Namespace    string // e.g. wp_query
	Route        string // e.g. args
	Limits       params.Limits
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  string
}

// QueryPath returns the path of the query route.
func (c ServerConfig) QueryPath() string {
	parts := []string{}
	for _, p := range []string{c.Prefix, c.Namespace, c.Route} {
		if p = strings.Trim(p, "/"); p != "" {
			parts = append(parts, p)
		}
	}
	return "/" + strings.Join(parts, "/")
}

// Server wraps Fiber app with handlers.
type Server struct {
	App    *fiber.App
	Logger *zap.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	cfg ServerConfig,
	querySvc *service.QueryService,
	readiness []middleware.ReadinessFunc,
	logger *zap.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "content-query-service",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          errorHandler(logger),
		DisableStartupMessage: true,
	})

	// Health check middleware MUST be registered BEFORE other middleware
	// for Kubernetes probes to work even during high load
	app.Use(middleware.NewHealthCheck(readiness...))

	app.Use(requestid.New())
	app.Use(middleware.Recover(logger))
	app.Use(middleware.Logger(logger))
	app.Use(middleware.CORS(cfg.CORSOrigins))
	app.Use(metrics.Middleware())
	app.Use(compress.New())

	queryHandler := handler.NewQueryHandler(querySvc, cfg.Limits, logger)

	registerRoutes(app, cfg, queryHandler)

	return &Server{
		App:    app,
		Logger: logger,
	}
}

// registerRoutes sets up all routes.
func registerRoutes(app *fiber.App, cfg ServerConfig, queryHandler *handler.QueryHandler) {
	// Health checks are handled by middleware (/livez, /readyz)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get(cfg.QueryPath(), queryHandler.Query)
}

// errorHandler returns a custom error handler that logs based on HTTP status code.
// 404s are logged at DEBUG level (expected client behavior), 4xx at WARN, 5xx at ERROR.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		switch {
		case code == fiber.StatusNotFound:
			logger.Debug("resource not found",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
			)
		case code >= 500:
			logger.Error("server error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		case code >= 400:
			logger.Warn("client error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		default:
			logger.Error("unhandled error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		}

		return c.Status(code).JSON(dto.FromStatus(code, err.Error()))
	}
}

// Start starts the HTTP server.
func (s *Server) Start(port int) error {
	s.Logger.Info("starting HTTP server", zap.Int("port", port))

	return s.App.Listen(fmt.Sprintf(":%d", port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.Logger.Info("shutting down HTTP server")

	return s.App.Shutdown()
}
