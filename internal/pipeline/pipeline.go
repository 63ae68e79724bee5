// Package pipeline orchestrates one chat request: admission, session
// context, cache lookup, the answer call, and the writes that follow it.
// The admission slot is held from acquisition to the end of the request on
// every exit path.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/weathergate/weathergate/internal/admission"
	"github.com/weathergate/weathergate/internal/answer"
	"github.com/weathergate/weathergate/internal/cache"
	"github.com/weathergate/weathergate/internal/session"
)

// Request is one inbound chat message with its resolved credential.
type Request struct {
	Message   string
	SessionID string
	APIKey    string

	// FallbackHistory seeds the answer call when the session store has
	// nothing for this id (client-supplied history).
	FallbackHistory []session.Turn
}

// Result is the pipeline's reply.
type Result struct {
	Reply        string
	SessionID    string
	Cached       bool
	HistoryTurns int
}

// Pipeline wires the serving-layer services around the answer boundary.
type Pipeline struct {
	limiter  *admission.Limiter
	cache    cache.Cache
	sessions session.Store
	answerer answer.Answerer
	cacheTTL time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New assembles a pipeline from already-constructed services.
func New(limiter *admission.Limiter, c cache.Cache, sessions session.Store, answerer answer.Answerer, cacheTTL time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		limiter:  limiter,
		cache:    c,
		sessions: sessions,
		answerer: answerer,
		cacheTTL: cacheTTL,
		logger:   logger.With("component", "pipeline"),
		tracer:   otel.Tracer("github.com/weathergate/weathergate/internal/pipeline"),
	}
}

// Handle runs one request through admission, cache, and the answer call.
// It returns admission.ErrTimeout when the queue wait expires, and answer
// errors unmodified; a failed answer is neither cached nor appended to the
// session.
func (p *Pipeline) Handle(ctx context.Context, req Request) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "chat.request")
	defer span.End()

	slot, err := p.limiter.Acquire(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "admission timeout")
		return Result{}, err
	}
	defer slot.Release()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = session.NewID()
		p.logger.Info("new session", "session", sessionID)
	}
	span.SetAttributes(attribute.String("chat.session_id", sessionID))

	history, err := p.sessions.History(ctx, sessionID)
	if err != nil {
		// Session storage is a convenience, never a correctness
		// dependency; proceed without context.
		p.logger.Warn("history load failed, continuing without context",
			"session", sessionID, "error", err)
		history = nil
	}
	if len(history) == 0 && len(req.FallbackHistory) > 0 {
		history = req.FallbackHistory
	}

	if reply, hit := p.cache.Get(ctx, req.Message); hit {
		span.SetAttributes(attribute.Bool("chat.cached", true))
		p.recordTurn(ctx, sessionID, req.Message, reply)
		return Result{
			Reply:        reply,
			SessionID:    sessionID,
			Cached:       true,
			HistoryTurns: len(history) + 1,
		}, nil
	}
	span.SetAttributes(attribute.Bool("chat.cached", false))

	reply, err := p.answerer.Answer(ctx, answer.Request{
		Query:   req.Message,
		History: history,
		APIKey:  req.APIKey,
	})
	if err != nil {
		span.SetStatus(codes.Error, "answer failed")
		span.RecordError(err)
		return Result{}, err
	}

	p.cache.Put(ctx, req.Message, reply, p.cacheTTL)
	p.recordTurn(ctx, sessionID, req.Message, reply)

	return Result{
		Reply:        reply,
		SessionID:    sessionID,
		HistoryTurns: len(history) + 1,
	}, nil
}

// recordTurn appends to the session, absorbing storage failures.
func (p *Pipeline) recordTurn(ctx context.Context, sessionID, user, reply string) {
	if err := p.sessions.AppendTurn(ctx, sessionID, user, reply); err != nil {
		p.logger.Warn("turn append failed", "session", sessionID, "error", err)
	}
}
