package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/weathergate/weathergate/internal/admission"
	"github.com/weathergate/weathergate/internal/pipeline"
	"github.com/weathergate/weathergate/internal/session"
)

// ChatRequest is the JSON body of POST /chat. ChatHistory holds
// [user, assistant] pairs and seeds the upstream call only when the named
// session has no stored turns.
type ChatRequest struct {
	Message     string      `json:"message"`
	SessionID   string      `json:"session_id,omitempty"`
	ChatHistory [][2]string `json:"chat_history,omitempty"`
}

// ChatResponse is the JSON response of POST /chat. Status distinguishes a
// fresh answer from a cached one.
type ChatResponse struct {
	Response     string `json:"response"`
	SessionID    string `json:"session_id"`
	Status       string `json:"status"` // "success" or "success_cached"
	HistoryTurns int    `json:"history_turns"`
}

// handleChat runs one query through the pipeline.
func (s *Server) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, &apiError{
				status: http.StatusBadRequest,
				body: errorBody{
					Error:   "invalid_request",
					Message: "request body is not valid JSON",
				},
			})
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			s.writeError(w, &apiError{
				status: http.StatusUnprocessableEntity,
				body: errorBody{
					Error:   "invalid_request",
					Message: "message must not be empty",
				},
			})
			return
		}

		apiKey, authErr := s.resolveAPIKey(r)
		if authErr != nil {
			s.writeError(w, authErr)
			return
		}

		fallback := make([]session.Turn, 0, len(req.ChatHistory))
		for _, pair := range req.ChatHistory {
			fallback = append(fallback, session.Turn{User: pair[0], Assistant: pair[1]})
		}

		s.metrics.inFlight.Inc()
		start := time.Now()
		result, err := s.pipe.Handle(r.Context(), pipeline.Request{
			Message:         req.Message,
			SessionID:       req.SessionID,
			APIKey:          apiKey,
			FallbackHistory: fallback,
		})
		s.metrics.duration.Observe(time.Since(start).Seconds())
		s.metrics.inFlight.Dec()

		if err != nil {
			if errors.Is(err, admission.ErrTimeout) {
				s.metrics.admissionTimeouts.Inc()
				s.metrics.requests.WithLabelValues("rejected").Inc()
				s.writeError(w, &apiError{
					status: http.StatusServiceUnavailable,
					body: errorBody{
						Error:   "service_busy",
						Message: "all slots are busy and the wait timed out",
						Hint:    "retry shortly with backoff",
					},
				})
				return
			}
			s.logger.Error("chat failed", "error", err)
			s.metrics.requests.WithLabelValues("error").Inc()
			s.writeError(w, &apiError{
				status: http.StatusInternalServerError,
				body: errorBody{
					Error:   "answer_failed",
					Message: err.Error(),
				},
			})
			return
		}

		status := "success"
		if result.Cached {
			status = "success_cached"
			s.metrics.cacheHits.Inc()
		} else {
			s.metrics.cacheMisses.Inc()
		}
		s.metrics.requests.WithLabelValues(status).Inc()

		s.writeJSON(w, http.StatusOK, ChatResponse{
			Response:     result.Reply,
			SessionID:    result.SessionID,
			Status:       status,
			HistoryTurns: result.HistoryTurns,
		})
	}
}
