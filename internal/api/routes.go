// Package api is the operator HTTP surface: task control over the scrape
// manager plus read access to alerts and run history.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"condo-watch/internal/scrape"
	"condo-watch/internal/store"
)

// NewRouter creates and configures the Chi router
func NewRouter(manager *scrape.Manager, st *store.Store, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(Logger(log))
	r.Use(CORS)

	// Create handlers
	h := NewHandlers(manager, st, log)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", h.CreateTask)
			r.Get("/", h.ListTasks)
			r.Get("/{id}", h.GetTask)
			r.Post("/{id}/pause", h.PauseTask)
			r.Post("/{id}/resume", h.ResumeTask)
			r.Post("/{id}/cancel", h.CancelTask)
			r.Get("/{id}/errors", h.TaskErrors)
		})
		r.Get("/alerts", h.ListAlerts)
		r.Post("/alerts/{id}/resolve", h.ResolveAlert)
		r.Get("/jobs", h.ListJobs)
		r.Get("/listings/{id}/prices", h.ListPriceHistory)
	})

	return r
}
