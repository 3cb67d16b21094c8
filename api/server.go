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
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/sales/*          Sales and installment schedules
  /api/payments/*       Payment reports and exports
  /api/availability/*   Resource availability and reservations
  /api/warehouses       Warehouse catalog
  /api/fixtures/*       Demo data (dev only)
  /api/reset            Database reset (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
		// Sales routes
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Post("/", h.CreateSale)
			r.Get("/{id}", h.GetSale)
			r.Get("/{id}/schedule", h.GetSchedule)
			r.Post("/{id}/payments", h.RegisterPayment)
		})

		// Payment report routes
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPaidPayments)
			r.Get("/export", h.ExportPaidPayments)
			r.Get("/pending", h.ListPendingPayments)
			r.Get("/pending/export", h.ExportPendingPayments)
		})

		// Availability routes
		r.Route("/availability", func(r chi.Router) {
			r.Get("/", h.GetAvailability)
			r.Post("/reservations", h.ReserveSlot)
		})

		// Catalog routes
		r.Get("/warehouses", h.ListWarehouses)

		// Fixture routes
		r.Route("/fixtures", func(r chi.Router) {
			r.Post("/load", h.LoadFixtures)
		})

		// Database reset (dev only)
		r.Post("/reset", h.ResetDatabase)
	})

	return r
}
