package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/token-service/internal/api/http/handlers"
	"github.com/spec-kit/token-service/internal/auth"
	"github.com/spec-kit/token-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tokens  *handlers.TokenHandler
	Metrics *observability.Metrics
	// AuthMiddleware guards the token routes when set.
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	guard := func(c *fiber.Ctx) error { return c.Next() }
	if cfg.AuthMiddleware != nil {
		guard = cfg.AuthMiddleware.Handle
	}

	app.Get("/", guard, cfg.Tokens.Issue)
	app.Get("/token", guard, cfg.Tokens.Issue)
}
