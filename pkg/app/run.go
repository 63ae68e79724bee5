// Package app provides the shared entry point for the weathergate binary.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/weathergate/weathergate/internal/config"
	"github.com/weathergate/weathergate/internal/telemetry"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level
}

// Run loads configuration, starts the service, and blocks until a shutdown
// signal is received.
func Run(params RunParams) error {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: params.LogLevel,
	}))
	logger.Info("starting weathergate",
		"version", params.Version, "commit", params.Commit, "config", cfgPath)

	ctx := context.Background()

	shutdownTraces, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Service:  "weathergate",
		Version:  params.Version,
	}, logger)
	if err != nil {
		return err
	}

	svcs, err := buildServices(cfg, params.Version, logger)
	if err != nil {
		return err
	}

	if err := svcs.sweeper.Start(); err != nil {
		return err
	}
	if err := svcs.gateway.Start(); err != nil {
		svcs.sweeper.Stop()
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	logger.Info("shutdown signal received", "signal", sig.String())

	// Teardown in reverse start order: stop accepting requests, then the
	// background sweep, then flush traces and close the store.
	if err := svcs.gateway.Stop(ctx); err != nil {
		logger.Error("gateway stop failed", "error", err)
	}
	svcs.sweeper.Stop()

	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdownTraces(flushCtx); err != nil {
		logger.Warn("trace flush failed", "error", err)
	}
	if svcs.redis != nil {
		if err := svcs.redis.Close(); err != nil {
			logger.Warn("redis close failed", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/weathergate/weathergate.yaml →
// ~/.config/weathergate/weathergate.yaml → ./weathergate.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "weathergate", "weathergate.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "weathergate", "weathergate.yaml"))
	}

	candidates = append(candidates, "weathergate.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}
