package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/expert-desk/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Messages      *handlers.MessagesHandler
	Tickets       *handlers.TicketsHandler
	Configuration *handlers.ConfigurationHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/messages", cfg.Messages.Receive)

	if cfg.Tickets != nil {
		api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	}
	if cfg.Configuration != nil {
		api.Get("/configuration/:entityType", cfg.Configuration.Get)
		api.Put("/configuration/:entityType", cfg.Configuration.Put)
	}
}
