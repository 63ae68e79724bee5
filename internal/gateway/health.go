package gateway

import "net/http"

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// handleHealth is a liveness probe; it never touches the backing stores.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, HealthResponse{
			Status:  "healthy",
			Service: "weathergate",
			Version: s.version,
		})
	}
}

// handleIndex lists the API surface for humans poking at the root path.
func (s *Server) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"service": "weathergate",
			"version": s.version,
			"endpoints": map[string]string{
				"POST /chat":           "ask a question",
				"GET /health":          "liveness probe",
				"GET /status":          "concurrency, cache, and session stats",
				"GET /session/{id}":    "inspect session history",
				"DELETE /session/{id}": "clear session history",
				"GET /metrics":         "prometheus metrics",
			},
		})
	}
}
