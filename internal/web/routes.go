package web

import (
	"encoding/json"
	"net/http"

	"github.com/buemura/safeurl/internal/auth"
	"github.com/buemura/safeurl/internal/ratelimit"
	"github.com/buemura/safeurl/internal/web/api"
	"github.com/go-chi/chi/v5"
)

// registerRoutes mounts all route groups on the server's router.
func (s *Server) registerRoutes() {
	h := api.NewHandlers(s.deps.Scanner, s.manager, s.deps.Allowlist, s.deps.Store, s.deps.Analyzer, s.deps.Log.WithField("component", "api"))

	// Health check
	s.router.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics.Handler())
	}

	// REST API
	s.router.Route("/api/v1", func(r chi.Router) {
		if s.deps.Verifier != nil {
			r.Use(auth.Optional(s.deps.Verifier))
		}

		r.With(ratelimit.Middleware(s.scans, ratelimit.ClientIP)).Post("/scans", h.CreateScan)
		r.With(ratelimit.Middleware(s.analyze, ratelimit.ClientIP)).Post("/analyze", h.Analyze)

		r.Route("/batches", func(r chi.Router) {
			r.With(ratelimit.Middleware(s.scans, ratelimit.ClientIP)).Post("/", h.CreateBatch)
			r.Get("/", h.ListBatches)
			r.Get("/{id}", h.GetBatch)
			r.Get("/{id}/report", h.GetBatchReport)
			r.Delete("/{id}", h.DeleteBatch)
		})

		r.Get("/allowlist", h.ListAllowlist)

		// Session required
		r.Group(func(r chi.Router) {
			r.Use(auth.Required)
			r.Post("/allowlist", h.AddAllowlist)
			r.Delete("/allowlist/{domain}", h.RemoveAllowlist)
			r.Get("/history", h.ListHistory)
			r.Delete("/history/{id}", h.DeleteHistory)
			r.Get("/stats", h.Stats)
		})
	})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
