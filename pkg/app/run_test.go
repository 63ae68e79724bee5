package app

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/weathergate/weathergate/internal/config"
)

func TestResolveConfigPath_XDG(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "weathergate")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(cfgDir, "weathergate.yaml")
	if err := os.WriteFile(cfgPath, []byte("server:\n  bind: 127.0.0.1:8000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("ResolveConfigPath: %v", err)
	}
	if got != cfgPath {
		t.Errorf("path = %q, want %q", got, cfgPath)
	}
}

func TestResolveConfigPath_CurrentDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir()) // no config there
	t.Chdir(t.TempDir())

	if err := os.WriteFile("weathergate.yaml", []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("ResolveConfigPath: %v", err)
	}
	if got != "weathergate.yaml" {
		t.Errorf("path = %q, want local file", got)
	}
}

func TestResolveConfigPath_NotFound(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	if _, err := ResolveConfigPath(); err == nil {
		t.Error("expected an error when no config exists")
	}
}

func TestBuildServices_InProcessFallback(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Defaults()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	svcs, err := buildServices(cfg, "test", logger)
	if err != nil {
		t.Fatalf("buildServices: %v", err)
	}

	if svcs.gateway == nil {
		t.Error("gateway should be constructed")
	}
	if svcs.sweeper == nil {
		t.Error("sweeper should be constructed")
	}
	if svcs.redis != nil {
		t.Error("redis client should be nil when not configured")
	}
}

func TestBuildServices_BadConcurrency(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Defaults()
	cfg.Concurrency.MaxConcurrent = -1

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	if _, err := buildServices(cfg, "test", logger); err == nil {
		t.Error("expected an error for negative concurrency")
	}
}
