package gateway

import (
	"net/http"
	"time"

	"github.com/weathergate/weathergate/internal/admission"
	"github.com/weathergate/weathergate/internal/cache"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Service       string          `json:"service"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Concurrency   admission.Stats `json:"concurrency"`
	Cache         cache.Stats     `json:"cache"`
	Sessions      SessionStats    `json:"sessions"`
}

// SessionStats summarizes the session store for /status.
type SessionStats struct {
	ActiveSessions int `json:"active_sessions"`
	MaxTurns       int `json:"max_history_turns"`
	IdleTTLSeconds int `json:"idle_ttl_seconds"`
}

// handleStatus reports live service stats.
func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, StatusResponse{
			Service:       "weathergate",
			Version:       s.version,
			UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
			Concurrency:   s.limiter.Stats(),
			Cache:         s.cache.Stats(r.Context()),
			Sessions: SessionStats{
				ActiveSessions: s.sessions.ActiveSessions(r.Context()),
				MaxTurns:       s.config.MaxTurns,
				IdleTTLSeconds: int(s.config.IdleTTL.Seconds()),
			},
		})
	}
}
