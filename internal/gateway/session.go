package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/weathergate/weathergate/internal/session"
)

// SessionResponse is the JSON response for GET /session/{id}. An unknown or
// expired id reports an empty history, not a 404; the id stays usable.
type SessionResponse struct {
	SessionID  string         `json:"session_id"`
	Turns      []session.Turn `json:"turns"`
	Count      int            `json:"count"`
	TTLSeconds int            `json:"ttl_seconds,omitempty"`
}

func (s *Server) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		turns, err := s.sessions.History(r.Context(), id)
		if err != nil {
			s.logger.Warn("session read failed", "session", id, "error", err)
			turns = nil
		}
		if turns == nil {
			turns = []session.Turn{}
		}

		resp := SessionResponse{SessionID: id, Turns: turns, Count: len(turns)}
		if ttl, ok := s.sessions.TTL(r.Context(), id); ok {
			resp.TTLSeconds = int(ttl.Seconds())
		}
		s.writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleClearSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := s.sessions.Clear(r.Context(), id); err != nil {
			s.logger.Warn("session clear failed", "session", id, "error", err)
			s.writeError(w, &apiError{
				status: http.StatusInternalServerError,
				body: errorBody{
					Error:   "session_clear_failed",
					Message: "the session store rejected the delete",
				},
			})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"session_id": id,
			"cleared":    true,
		})
	}
}
