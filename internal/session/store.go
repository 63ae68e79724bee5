// Package session manages per-conversation history: a bounded sliding
// window of turns with an idle TTL. The Redis-backed store is shared across
// processes; the in-process fallback keeps conversations working for a
// single-process deployment when Redis is unreachable, but does not survive
// a restart and is not shared between processes.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Turn is one user/assistant exchange.
type Turn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	At        time.Time `json:"at"`
}

// Store manages session history. Implementations must be safe for
// concurrent use and must serialize mutations per session id without
// blocking operations on other ids.
type Store interface {
	// History returns the retained turns in append order. An unknown or
	// idle-expired id yields an empty history under the same id; reading
	// counts as access and slides the idle clock.
	History(ctx context.Context, sessionID string) ([]Turn, error)

	// AppendTurn adds a turn at the tail, evicting from the head beyond
	// the configured window, and slides the idle clock.
	AppendTurn(ctx context.Context, sessionID, userText, replyText string) error

	// Clear removes all history for the session.
	Clear(ctx context.Context, sessionID string) error

	// TTL reports the remaining idle time for the session, or false when
	// the session does not exist.
	TTL(ctx context.Context, sessionID string) (time.Duration, bool)

	// ActiveSessions returns the number of live sessions.
	ActiveSessions(ctx context.Context) int
}

// NewID generates a globally unique session id.
func NewID() string {
	return uuid.NewString()
}

// trimWindow drops the oldest turns so at most maxTurns remain.
func trimWindow(turns []Turn, maxTurns int) []Turn {
	if maxTurns <= 0 || len(turns) <= maxTurns {
		return turns
	}
	return turns[len(turns)-maxTurns:]
}
