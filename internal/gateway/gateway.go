// Package gateway is the HTTP surface: the chat endpoint plus health,
// status, session inspection, and Prometheus metrics.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/weathergate/weathergate/internal/admission"
	"github.com/weathergate/weathergate/internal/cache"
	"github.com/weathergate/weathergate/internal/pipeline"
	"github.com/weathergate/weathergate/internal/session"
)

// Deps are the already-constructed services the server exposes.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Limiter  *admission.Limiter
	Cache    cache.Cache
	Sessions session.Store
	Logger   *slog.Logger
	Version  string
}

// Server is the HTTP gateway. It owns no business logic; every handler
// delegates to the pipeline or reads service stats.
type Server struct {
	config    Config
	logger    *slog.Logger
	pipe      *pipeline.Pipeline
	limiter   *admission.Limiter
	cache     cache.Cache
	sessions  session.Store
	metrics   *Metrics
	version   string
	server    *http.Server
	startedAt time.Time
}

// New builds a server; it does not bind until Start.
func New(cfg Config, deps Deps) *Server {
	cfg.defaults()
	return &Server{
		config:   cfg,
		logger:   deps.Logger.With("component", "gateway"),
		pipe:     deps.Pipeline,
		limiter:  deps.Limiter,
		cache:    deps.Cache,
		sessions: deps.Sessions,
		metrics:  NewMetrics(),
		version:  deps.Version,
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	s.startedAt = time.Now()

	s.server = &http.Server{
		Addr:         s.config.Bind,
		Handler:      s.buildRouter(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", s.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		s.logger.Info("gateway listening", "addr", s.config.Bind)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop drains in-flight requests within the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("gateway shutting down")
	return s.server.Shutdown(shutdownCtx)
}
