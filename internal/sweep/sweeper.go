// Package sweep periodically reclaims expired entries from the in-process
// cache and session fallbacks. Redis-backed stores expire keys themselves
// and register no sweepables.
package sweep

import (
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/robfig/cron/v3"
)

// Sweepable is any store that can eagerly reclaim expired state.
type Sweepable interface {
	// Sweep removes expired entries and returns the number reclaimed.
	Sweep() int
}

// Sweeper runs registered sweeps on a cron schedule.
type Sweeper struct {
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron

	mu      sync.Mutex
	running bool
	targets map[string]Sweepable
}

// New creates a sweeper. The schedule is a five-field cron expression or a
// descriptor such as "@hourly" or "@every 30s".
func New(schedule string, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		schedule: schedule,
		logger:   logger.With("component", "sweep"),
		targets:  make(map[string]Sweepable),
	}
}

// Register adds a named store to the sweep. Must be called before Start.
func (s *Sweeper) Register(name string, target Sweepable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("sweep: register %q after start", name)
	}
	if _, exists := s.targets[name]; exists {
		return fmt.Errorf("sweep: duplicate target %q", name)
	}
	s.targets[name] = target
	return nil
}

// Start begins periodic sweeping. A sweeper with no targets is a no-op and
// starts nothing.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.targets) == 0 {
		return nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s.cron = cron.New(cron.WithParser(parser))

	// Registration is closed once running, so ticks sweep a snapshot.
	// A tick must never need s.mu: Stop waits for in-flight ticks.
	targets := maps.Clone(s.targets)
	if _, err := s.cron.AddFunc(s.schedule, func() { s.sweep(targets) }); err != nil {
		return fmt.Errorf("sweep: invalid schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("sweeper started", "schedule", s.schedule, "targets", len(s.targets))
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish. The wait
// happens outside the mutex so an in-flight tick can complete.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	c := s.cron
	s.running = false
	s.mu.Unlock()

	<-c.Stop().Done()
	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) sweep(targets map[string]Sweepable) {
	for name, t := range targets {
		if removed := t.Sweep(); removed > 0 {
			s.logger.Debug("swept expired entries", "target", name, "removed", removed)
		}
	}
}
