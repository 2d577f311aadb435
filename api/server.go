/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the bursar frontend

ROUTE GROUPS:
  /api/schedules/*      Fee schedule management
  /api/payments/*       Payment intake, validation, cancellation
  /api/students/*       Per-student lookups

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.
  Authentication is expected to be terminated by the gateway in front.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Schedule routes
		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", h.CreateSchedule)
			r.Get("/", h.ListSchedules)
			r.Get("/{id}/journal", h.GetScheduleJournal)
			r.Post("/{id}/recompute", h.RecomputeStatus)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", h.RecordPayment)
			r.Get("/{id}", h.GetPayment)
			r.Post("/{id}/validate", h.ValidatePayment)
			r.Post("/{id}/cancel", h.CancelPayment)
		})

		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/{studentID}/schedules/{year}", h.GetSchedule)
			r.Get("/{studentID}/payments/{year}", h.ListStudentPayments)
		})
	})

	return r
}
