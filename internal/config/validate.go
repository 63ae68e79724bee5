package config

import (
	"errors"
	"fmt"
	"net"

	"github.com/robfig/cron/v3"
)

// Validate checks the structural validity of a Config. All problems are
// reported at once, joined with errors.Join.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := net.ResolveTCPAddr("tcp", cfg.Server.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: invalid server.bind %q: %w", cfg.Server.Bind, err))
	}

	if cfg.Concurrency.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("config: concurrency.max_concurrent must be positive, got %d", cfg.Concurrency.MaxConcurrent))
	}
	if cfg.Concurrency.AcquireTimeout <= 0 {
		errs = append(errs, errors.New("config: concurrency.acquire_timeout must be positive"))
	}

	if cfg.Cache.TTL <= 0 {
		errs = append(errs, errors.New("config: cache.ttl must be positive"))
	}

	if cfg.Session.MaxTurns <= 0 {
		errs = append(errs, fmt.Errorf("config: session.max_turns must be positive, got %d", cfg.Session.MaxTurns))
	}
	if cfg.Session.IdleTTL <= 0 {
		errs = append(errs, errors.New("config: session.idle_ttl must be positive"))
	}

	for id, aliases := range cfg.Regions {
		if id == "" {
			errs = append(errs, errors.New("config: regions: empty canonical id"))
		}
		if len(aliases) == 0 {
			errs = append(errs, fmt.Errorf("config: regions[%s]: at least one alias is required", id))
		}
	}

	if cfg.Sweep.Schedule != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(cfg.Sweep.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("config: invalid sweep.schedule %q: %w", cfg.Sweep.Schedule, err))
		}
	}

	return errors.Join(errs...)
}
