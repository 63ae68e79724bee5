package gateway

import (
	"net/http"
	"strings"
)

// minKeyLength rejects obviously truncated bearer keys before they reach
// the upstream and fail there with a less actionable error.
const minKeyLength = 10

// apiError is a JSON error response body, shaped as {"detail": {...}}.
type apiError struct {
	status int
	body   errorBody
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

type errorResponse struct {
	Detail errorBody `json:"detail"`
}

// resolveAPIKey picks the credential for one request: a bearer key in the
// Authorization header wins over the server-configured key. With neither,
// the request is rejected.
func (s *Server) resolveAPIKey(r *http.Request) (string, *apiError) {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		token = strings.TrimSpace(token)
		if len(token) < minKeyLength {
			return "", &apiError{
				status: http.StatusUnauthorized,
				body: errorBody{
					Error:   "invalid_api_key",
					Message: "the provided API key is too short to be valid",
					Hint:    "send the full key: Authorization: Bearer <key>",
				},
			}
		}
		return token, nil
	}

	if s.config.APIKey != "" {
		return s.config.APIKey, nil
	}

	return "", &apiError{
		status: http.StatusUnauthorized,
		body: errorBody{
			Error:   "missing_api_key",
			Message: "no API key is configured and the request did not provide one",
			Hint:    "set answer.api_key in the config or send Authorization: Bearer <key>",
		},
	}
}

func (s *Server) writeError(w http.ResponseWriter, apiErr *apiError) {
	if apiErr.status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	s.writeJSON(w, apiErr.status, errorResponse{Detail: apiErr.body})
}
