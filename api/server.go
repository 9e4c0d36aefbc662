/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in 5xx logs
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests, origins from config

ROUTE GROUPS:
  /health               Store reachability
  /api/calculations/*   Stateless hour and pay arithmetic
  /api/entries/*        Time entries and their approval state
  /api/compliance/*     Validation of unsaved entries
  /api/employees/*      Profiles and per-employee period views
  /api/policies/*       Versioned labor policies
  /api/retention        Record retention rules
  /api/scenarios/*      Demo data (development only)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - app/app.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/labor-engine/config"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, c config.CORSConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: config.Split(c.AllowedOrigins),
		AllowedMethods: config.Split(c.AllowedMethods),
		AllowedHeaders: config.Split(c.AllowedHeaders),
		MaxAge:         c.MaxAge,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/calculations", func(r chi.Router) {
			r.Post("/daily-hours", h.CalculateDailyHours)
			r.Post("/overtime-pay", h.CalculateOvertimePay)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Post("/", h.CreateEntry)
			r.Get("/{id}", h.GetEntry)
			r.Post("/{id}/approve", h.ApproveEntry)
			r.Post("/{id}/reject", h.RejectEntry)
			r.Post("/{id}/complete", h.CompleteEntry)
			r.Get("/{id}/compliance", h.EntryCompliance)
		})

		r.Post("/compliance/validate", h.ValidateEntry)

		r.Route("/employees", func(r chi.Router) {
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/overtime", h.GetOvertime)
			r.Get("/{id}/work-hours", h.GetWorkHours)
			r.Get("/{id}/consecutive-days", h.GetConsecutiveDays)
			r.Post("/{id}/rest-period", h.CheckRestPeriod)
			r.Get("/{id}/summary", h.GetSummary)
		})

		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.CreatePolicy)
		})

		r.Get("/retention", h.GetRetention)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
