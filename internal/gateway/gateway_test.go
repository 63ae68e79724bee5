package gateway

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
)

func TestHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var resp HealthResponse
	decode(t, rec, &resp)
	if resp.Status != "healthy" {
		t.Errorf("Status = %q, want %q", resp.Status, "healthy")
	}
	if resp.Service != "weathergate" {
		t.Errorf("Service = %q", resp.Service)
	}
}

func TestIndexListsEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var resp struct {
		Endpoints map[string]string `json:"endpoints"`
	}
	decode(t, rec, &resp)
	if _, ok := resp.Endpoints["POST /chat"]; !ok {
		t.Errorf("endpoints = %v, want POST /chat listed", resp.Endpoints)
	}
}

func TestStatusReportsServiceStats(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	// Populate one session and one cache entry through the front door.
	chat := env.do(t, http.MethodPost, "/chat",
		`{"message": "北京天气"}`, bearer("sk-test-key-long-enough"))
	if chat.Code != http.StatusOK {
		t.Fatalf("chat code = %d", chat.Code)
	}

	rec := env.do(t, http.MethodGet, "/status", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}

	var resp StatusResponse
	decode(t, rec, &resp)

	if resp.Concurrency.MaxConcurrency != 5 {
		t.Errorf("MaxConcurrency = %d, want 5", resp.Concurrency.MaxConcurrency)
	}
	if resp.Concurrency.Total != 1 {
		t.Errorf("Total = %d, want 1", resp.Concurrency.Total)
	}
	if !resp.Cache.Enabled || resp.Cache.TotalKeys != 1 {
		t.Errorf("Cache = %+v, want one key", resp.Cache)
	}
	if resp.Sessions.ActiveSessions != 1 {
		t.Errorf("ActiveSessions = %d, want 1", resp.Sessions.ActiveSessions)
	}
	if resp.Sessions.MaxTurns != 5 {
		t.Errorf("MaxTurns = %d, want 5", resp.Sessions.MaxTurns)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	chat := env.do(t, http.MethodPost, "/chat",
		`{"message": "hello there"}`, bearer("sk-test-key-long-enough"))
	var chatResp ChatResponse
	decode(t, chat, &chatResp)

	get := env.do(t, http.MethodGet, "/session/"+chatResp.SessionID, "", nil)
	if get.Code != http.StatusOK {
		t.Fatalf("get code = %d", get.Code)
	}
	var sess SessionResponse
	decode(t, get, &sess)
	if sess.Count != 1 || sess.Turns[0].User != "hello there" {
		t.Errorf("session = %+v, want the recorded turn", sess)
	}
	if sess.TTLSeconds <= 0 {
		t.Errorf("TTLSeconds = %d, want positive for a live session", sess.TTLSeconds)
	}

	del := env.do(t, http.MethodDelete, "/session/"+chatResp.SessionID, "", nil)
	if del.Code != http.StatusOK {
		t.Fatalf("delete code = %d", del.Code)
	}

	after := env.do(t, http.MethodGet, "/session/"+chatResp.SessionID, "", nil)
	var cleared SessionResponse
	decode(t, after, &cleared)
	if cleared.Count != 0 {
		t.Errorf("count after clear = %d, want 0", cleared.Count)
	}
}

func TestSessionUnknownIDIsEmptyNot404(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/session/never-seen", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	var sess SessionResponse
	decode(t, rec, &sess)
	if sess.SessionID != "never-seen" || sess.Count != 0 {
		t.Errorf("session = %+v, want empty history under the same id", sess)
	}
}

func TestMetricsExposition(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	chat := env.do(t, http.MethodPost, "/chat",
		`{"message": "hello"}`, bearer("sk-test-key-long-enough"))
	if chat.Code != http.StatusOK {
		t.Fatalf("chat code = %d", chat.Code)
	}

	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `weathergate_requests_total{status="success"} 1`) {
		t.Errorf("metrics missing success counter:\n%s", body)
	}
	if !strings.Contains(body, "weathergate_cache_misses_total 1") {
		t.Errorf("metrics missing cache miss counter:\n%s", body)
	}
}

func TestServerStartStop(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.server.config.Bind = freeAddr(t)

	if err := env.server.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet,
		"http://"+env.server.config.Bind+"/health", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("Status = %q", health.Status)
	}

	if err := env.server.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStopNilServer(t *testing.T) {
	t.Parallel()

	s := &Server{}
	s.config.defaults()
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop on never-started server: %v", err)
	}
}

// freeAddr returns a free TCP address on localhost.
func freeAddr(t *testing.T) string {
	t.Helper()
	var lc net.ListenConfig
	ln, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatal(err)
	}
	return addr
}
