package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the chi mux with all routes wired.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleIndex())
	r.Get("/health", s.handleHealth())
	r.Get("/status", s.handleStatus())
	r.Get("/metrics", s.metrics.Handler().ServeHTTP)

	r.Post("/chat", s.handleChat())

	r.Route("/session/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetSession())
		r.Delete("/", s.handleClearSession())
	})

	return r
}

// writeJSON serializes v with the given status. Encoding failures after the
// header is written can only be logged.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
