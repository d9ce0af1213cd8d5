package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/deskline/helpdesk/internal/api/http/handlers"
	"github.com/deskline/helpdesk/internal/auth"
	"github.com/deskline/helpdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimit      fiber.Handler
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	limit := cfg.RateLimit
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}

	user := app.Group("/user")
	user.Post("/signup", limit, cfg.Users.Signup)
	user.Post("/login", limit, cfg.Users.Login)
	user.Post("/forgot-password", limit, cfg.Users.ForgotPassword)
	user.Post("/reset-password", limit, cfg.Users.ResetPassword)
	user.Get("/profile", cfg.AuthMiddleware.Handle, cfg.Users.Profile)
	user.Put("/edit", cfg.AuthMiddleware.Handle, cfg.Users.Edit)
	user.Delete("/delete", cfg.AuthMiddleware.Handle, cfg.Users.Delete)

	ticket := app.Group("/ticket", cfg.AuthMiddleware.Handle)
	ticket.Post("/create", cfg.Tickets.Create)
	ticket.Get("/all", cfg.Tickets.ListAll)
	ticket.Get("/my-tickets", cfg.Tickets.ListMine)
	ticket.Post("/respond/:ticketId", cfg.Tickets.Respond)
	ticket.Patch("/update/:ticketId", cfg.Tickets.Update)
	ticket.Get("/:ticketId", cfg.Tickets.Get)
}
