package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/admin-ops-service/internal/api/http/handlers"
	"github.com/spec-kit/admin-ops-service/internal/auth"
	"github.com/spec-kit/admin-ops-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Staff          *handlers.StaffHandler
	Incidents      *handlers.IncidentsHandler
	Moderation     *handlers.ModerationHandler
	Autotune       *handlers.AutotuneHandler
	Tickets        *handlers.TicketsHandler
	Audit          *handlers.AuditHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Role checks here only gate whole areas;
// per-transition permissions are enforced by the workflows.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Staff.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireStaff(), cfg.Staff.ChangePassword)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireRole())

	incidents := api.Group("/incidents")
	incidents.Post("/", cfg.Incidents.Create)
	incidents.Get("/", cfg.Incidents.List)
	incidents.Get("/:id", cfg.Incidents.Get)
	incidents.Post("/:id/transitions", cfg.Incidents.Transition)
	incidents.Post("/:id/acknowledge", cfg.Incidents.Acknowledge)
	incidents.Post("/:id/rca", cfg.Incidents.CreateRCA)
	incidents.Get("/:id/rca", cfg.Incidents.GetRCA)
	incidents.Patch("/:id/rca/items/:itemId", cfg.Incidents.UpdateRCAActionItem)

	moderation := api.Group("/moderation")
	moderation.Post("/reports", cfg.Moderation.SubmitReport)
	moderation.Get("/reports", cfg.Moderation.ListReports)
	moderation.Get("/reports/:id", cfg.Moderation.GetReport)
	moderation.Post("/reports/:id/review", cfg.Moderation.Review)
	moderation.Post("/bans", cfg.Moderation.IssueBan)
	moderation.Get("/bans", cfg.Moderation.ListBans)
	moderation.Get("/bans/:id", cfg.Moderation.GetBan)
	moderation.Post("/bans/:id/lift", cfg.Moderation.LiftBan)
	moderation.Post("/bans/:id/appeals", cfg.Moderation.SubmitAppeal)
	moderation.Get("/appeals/:id", cfg.Moderation.GetAppeal)
	moderation.Post("/appeals/:id/review", cfg.Moderation.StartAppealReview)
	moderation.Post("/appeals/:id/resolve", cfg.Moderation.ResolveAppeal)

	autotune := api.Group("/autotune", auth.RequireRole(domain.StaffRoleAdmin, domain.StaffRoleSystem))
	autotune.Post("/batches", cfg.Autotune.Apply)
	autotune.Get("/batches/:batchId", cfg.Autotune.Get)
	autotune.Delete("/rollbacks/:actionId", cfg.Autotune.CancelRollback)
	autotune.Get("/reviews", cfg.Autotune.ManualReviews)
	autotune.Get("/parameters/:name", cfg.Autotune.Parameter)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/assignee", cfg.Tickets.Assign)
	tickets.Post("/:id/claim", cfg.Tickets.Claim)

	api.Get("/audit/transitions", auth.RequireRole(domain.StaffRoleAdmin, domain.StaffRoleIncidentManager, domain.StaffRoleModerator), cfg.Audit.List)

	staff := api.Group("/staff", auth.RequireStaff(), auth.RequireRole(domain.StaffRoleAdmin))
	staff.Post("/", cfg.Staff.CreateStaff)
	staff.Get("/", cfg.Staff.ListStaff)
	staff.Get("/:email", cfg.Staff.GetStaff)
	staff.Patch("/:email", cfg.Staff.UpdateStaff)
}
