// Package admission bounds the number of requests concurrently admitted to
// the answer generator. Waiters past capacity queue in strict arrival order
// and give up when their deadline elapses.
package admission

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrTimeout is returned by Acquire when the wait exceeds the acquire
// timeout (or the caller's context deadline) before a slot frees. It carries
// no side effects; retrying later is always safe.
var ErrTimeout = errors.New("admission: queue wait timed out")

// Limiter is a fixed-capacity concurrency gate with a FIFO wait queue.
// The mutex guards only the counter and queue bookkeeping; it is never held
// across a wait.
type Limiter struct {
	mu       sync.Mutex
	capacity int
	active   int
	waiters  *list.List // of *waiter, head = oldest

	acquireTimeout time.Duration
	total          int64
}

// waiter represents one caller blocked in Acquire.
type waiter struct {
	ready   chan struct{}
	granted bool
}

// NewLimiter creates a limiter admitting at most capacity concurrent holders.
// Waiters beyond capacity block up to acquireTimeout; zero or negative
// acquireTimeout means wait until the caller's context ends.
func NewLimiter(capacity int, acquireTimeout time.Duration) (*Limiter, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("admission: capacity must be positive, got %d", capacity)
	}
	return &Limiter{
		capacity:       capacity,
		waiters:        list.New(),
		acquireTimeout: acquireTimeout,
	}, nil
}

// Slot is the capacity token handed to an admitted request. It must be
// released exactly once.
type Slot struct {
	l        *Limiter
	released bool
}

// Acquire admits the caller or blocks until a slot frees or the deadline
// elapses. Slots free in strict arrival order: a releasing holder hands its
// capacity directly to the oldest waiter, so later arrivals can never jump
// the queue.
func (l *Limiter) Acquire(ctx context.Context) (*Slot, error) {
	if l.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.acquireTimeout)
		defer cancel()
	}

	l.mu.Lock()
	l.total++

	if err := ctx.Err(); err != nil {
		// Already-expired deadline never enters the queue.
		l.mu.Unlock()
		return nil, ErrTimeout
	}

	if l.active < l.capacity {
		l.active++
		l.mu.Unlock()
		return &Slot{l: l}, nil
	}

	w := &waiter{ready: make(chan struct{})}
	elem := l.waiters.PushBack(w)
	l.mu.Unlock()

	select {
	case <-w.ready:
		return &Slot{l: l}, nil
	case <-ctx.Done():
		l.mu.Lock()
		if w.granted {
			// A release granted us capacity before the timeout was
			// serialized; honor the grant.
			l.mu.Unlock()
			return &Slot{l: l}, nil
		}
		l.waiters.Remove(elem)
		l.mu.Unlock()
		return nil, ErrTimeout
	}
}

// Release returns the slot's capacity. If waiters are queued, capacity is
// transferred to the head waiter without decrementing the active count.
// Releasing a slot twice is a programming error and panics.
func (s *Slot) Release() {
	l := s.l
	l.mu.Lock()
	defer l.mu.Unlock()

	if s.released {
		panic("admission: slot released twice")
	}
	s.released = true

	if elem := l.waiters.Front(); elem != nil {
		w := l.waiters.Remove(elem).(*waiter)
		w.granted = true
		close(w.ready)
		return
	}

	if l.active <= 0 {
		panic("admission: release without a held slot")
	}
	l.active--
}

// Stats is a point-in-time view of the limiter.
type Stats struct {
	MaxConcurrency int   `json:"max_concurrency"`
	Active         int   `json:"active_requests"`
	Queued         int   `json:"queued_requests"`
	Total          int64 `json:"total_requests"`
}

// Stats reports current occupancy and queue depth.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		MaxConcurrency: l.capacity,
		Active:         l.active,
		Queued:         l.waiters.Len(),
		Total:          l.total,
	}
}

// Capacity returns the configured maximum concurrency.
func (l *Limiter) Capacity() int {
	return l.capacity
}
