// Package answer defines the boundary to the reply-generating subsystem.
// Everything behind it — intent handling, tool dispatch, external lookups —
// is opaque to the serving layer, which only throttles, caches, and adds
// conversational context around a single call.
package answer

import (
	"context"

	"github.com/weathergate/weathergate/internal/session"
)

// Request carries one generation call across the boundary.
type Request struct {
	// Query is the user's message.
	Query string

	// History is the conversational context, oldest first.
	History []session.Turn

	// APIKey is the credential resolved for this request. A per-request
	// key takes precedence over the server-wide one.
	APIKey string
}

// Answerer produces a reply for a query in its conversational context.
// Errors are surfaced to the caller as-is and are never cached or recorded
// as history.
type Answerer interface {
	Answer(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to the Answerer interface.
type Func func(ctx context.Context, req Request) (string, error)

// Answer implements Answerer.
func (f Func) Answer(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
