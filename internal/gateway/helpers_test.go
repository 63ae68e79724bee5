package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/weathergate/weathergate/internal/admission"
	"github.com/weathergate/weathergate/internal/answer"
	"github.com/weathergate/weathergate/internal/cache"
	"github.com/weathergate/weathergate/internal/pipeline"
	"github.com/weathergate/weathergate/internal/region"
	"github.com/weathergate/weathergate/internal/session"
)

// testEnv bundles a server and the stores behind it so tests can assert on
// both sides of a request.
type testEnv struct {
	server   *Server
	handler  http.Handler
	cache    *cache.MemoryCache
	sessions *session.MemoryStore
	limiter  *admission.Limiter
}

type envOption func(*envConfig)

type envConfig struct {
	capacity       int
	acquireTimeout time.Duration
	serverKey      string
	answerer       answer.Answerer
}

func withCapacity(capacity int, acquireTimeout time.Duration) envOption {
	return func(c *envConfig) {
		c.capacity = capacity
		c.acquireTimeout = acquireTimeout
	}
}

func withServerKey(key string) envOption {
	return func(c *envConfig) { c.serverKey = key }
}

func withAnswerer(a answer.Answerer) envOption {
	return func(c *envConfig) { c.answerer = a }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := envConfig{
		capacity:       5,
		acquireTimeout: time.Second,
		answerer: answer.Func(func(_ context.Context, req answer.Request) (string, error) {
			return "echo: " + req.Query, nil
		}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	limiter, err := admission.NewLimiter(cfg.capacity, cfg.acquireTimeout)
	if err != nil {
		t.Fatal(err)
	}
	memCache := cache.NewMemoryCache(region.New(nil), 30*time.Minute)
	sessions := session.NewMemoryStore(5, time.Hour)
	pipe := pipeline.New(limiter, memCache, sessions, cfg.answerer, 30*time.Minute, logger)

	srv := New(Config{
		APIKey:   cfg.serverKey,
		MaxTurns: 5,
		IdleTTL:  time.Hour,
	}, Deps{
		Pipeline: pipe,
		Limiter:  limiter,
		Cache:    memCache,
		Sessions: sessions,
		Logger:   logger,
		Version:  "test",
	})
	srv.startedAt = time.Now()

	return &testEnv{
		server:   srv,
		handler:  srv.buildRouter(),
		cache:    memCache,
		sessions: sessions,
		limiter:  limiter,
	}
}

// do executes a request against the router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequestWithContext(t.Context(), method, path, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals a recorder body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func bearer(key string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + key}
}
