package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		r.Route("/storage", func(r chi.Router) {
			r.Get("/metrics", h.GetStorageMetrics)
			r.Get("/analysis", h.GetPatternAnalysis)
		})

		r.Post("/lifecycle/run", h.RunLifecycle)

		r.Route("/records/{type}/{id}", func(r chi.Router) {
			r.Get("/", h.GetRecord)
			r.Put("/", h.PutRecord)
			r.Delete("/", h.DeleteRecord)
		})
	})
}
