package sweep

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type fakeStore struct {
	calls atomic.Int64
}

func (f *fakeStore) Sweep() int {
	f.calls.Add(1)
	return 1
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterAfterStartFails(t *testing.T) {
	t.Parallel()

	s := New("* * * * *", discardLogger())
	if err := s.Register("cache", &fakeStore{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	if err := s.Register("sessions", &fakeStore{}); err == nil {
		t.Error("Register after Start did not fail")
	}
}

func TestDuplicateTarget(t *testing.T) {
	t.Parallel()

	s := New("* * * * *", discardLogger())
	if err := s.Register("cache", &fakeStore{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("cache", &fakeStore{}); err == nil {
		t.Error("duplicate Register did not fail")
	}
}

func TestStartWithoutTargetsIsNoop(t *testing.T) {
	t.Parallel()

	s := New("* * * * *", discardLogger())
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	s.Stop() // must not panic with nothing started
}

func TestInvalidSchedule(t *testing.T) {
	t.Parallel()

	s := New("often", discardLogger())
	if err := s.Register("cache", &fakeStore{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err == nil {
		t.Error("invalid schedule did not fail Start")
	}
}

func TestSweepVisitsEveryTarget(t *testing.T) {
	t.Parallel()

	s := New("* * * * *", discardLogger())
	a, b := &fakeStore{}, &fakeStore{}
	if err := s.Register("cache", a); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("sessions", b); err != nil {
		t.Fatal(err)
	}

	s.sweep(s.targets)

	if a.calls.Load() != 1 || b.calls.Load() != 1 {
		t.Errorf("sweep calls = %d/%d, want 1/1", a.calls.Load(), b.calls.Load())
	}
}

// sweepFunc adapts a function to Sweepable.
type sweepFunc func() int

func (f sweepFunc) Sweep() int { return f() }

func TestTickCompletesWhileMutexHeld(t *testing.T) {
	t.Parallel()

	s := New("@every 1s", discardLogger())
	swept := make(chan struct{}, 1)
	err := s.Register("cache", sweepFunc(func() int {
		select {
		case swept <- struct{}{}:
		default:
		}
		return 0
	}))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	// A tick must finish even while the sweeper mutex is held, otherwise
	// Stop waiting on in-flight ticks under the mutex would deadlock.
	s.mu.Lock()
	select {
	case <-swept:
	case <-time.After(5 * time.Second):
		s.mu.Unlock()
		t.Fatal("sweep tick blocked on the sweeper mutex")
	}
	s.mu.Unlock()
}

func TestStopWaitsForInFlightSweepWithoutHoldingMutex(t *testing.T) {
	t.Parallel()

	s := New("@every 1s", discardLogger())
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	err := s.Register("cache", sweepFunc(func() int {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return 0
	}))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	<-started // a tick is now blocked inside its target

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	// While Stop waits for the tick, the mutex must be free.
	locked := make(chan struct{})
	go func() {
		s.mu.Lock()
		s.mu.Unlock()
		close(locked)
	}()
	select {
	case <-locked:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop held the sweeper mutex while waiting for an in-flight sweep")
	}

	select {
	case <-stopped:
		t.Fatal("Stop returned before the in-flight sweep finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the sweep finished")
	}
}
