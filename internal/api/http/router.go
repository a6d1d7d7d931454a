package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/did4510/Nexon/internal/api/http/handlers"
	"github.com/did4510/Nexon/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Staff          *handlers.StaffHandler
	Policies       *handlers.PolicyHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Staff routes accept staff and gateway tokens;
// the ticket service still checks duty and guild membership per action.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)
	staffOnly := auth.RequireStaff()

	tickets := api.Group("/tickets")
	tickets.Post("/", auth.RequireAny(), cfg.Tickets.CreateTicket)
	tickets.Get("/:id", auth.RequireAny(), cfg.Tickets.GetTicket)
	tickets.Post("/:id/close", auth.RequireAny(), cfg.Tickets.Close)
	tickets.Post("/:id/reopen", auth.RequireAny(), cfg.Tickets.Reopen)
	tickets.Post("/:id/feedback", auth.RequireAny(), cfg.Tickets.SubmitFeedback)

	tickets.Get("/:id/events", staffOnly, cfg.Tickets.ListEvents)
	tickets.Post("/:id/claim", staffOnly, cfg.Tickets.Claim)
	tickets.Post("/:id/auto-assign", staffOnly, cfg.Tickets.AutoAssign)
	tickets.Post("/:id/transfer", staffOnly, cfg.Tickets.Transfer)
	tickets.Post("/:id/pending", staffOnly, cfg.Tickets.SetPending)
	tickets.Post("/:id/resume", staffOnly, cfg.Tickets.Resume)
	tickets.Post("/:id/resolve", staffOnly, cfg.Tickets.Resolve)
	tickets.Post("/:id/notes", staffOnly, cfg.Tickets.AddNote)
	tickets.Post("/:id/followup", staffOnly, cfg.Tickets.ScheduleFollowup)
	tickets.Post("/:id/links", staffOnly, cfg.Tickets.Link)

	staff := api.Group("/staff", staffOnly)
	staff.Get("/", cfg.Staff.List)
	staff.Get("/candidates", cfg.Staff.Candidates)
	staff.Get("/:id", cfg.Staff.Get)
	staff.Put("/:id", cfg.Staff.Upsert)
	staff.Post("/:id/duty", cfg.Staff.SetDuty)

	policies := api.Group("/policies", staffOnly)
	policies.Get("/:category", cfg.Policies.Get)
	policies.Put("/:category", cfg.Policies.Put)
	api.Get("/performance", staffOnly, cfg.Policies.Performance)

	admin := api.Group("/admin", auth.RequireRole(auth.RoleGateway))
	admin.Post("/sla/tick", cfg.Admin.RunTick)
	admin.Post("/followups/run", cfg.Admin.RunFollowups)
	admin.Post("/workload/reconcile", cfg.Admin.Reconcile)
	admin.Get("/metrics", cfg.Admin.Metrics)
}
