package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Next returns the interval to use after a cycle completes.
// A failed cycle doubles current up to max; a clean cycle resets to base.
func Next(current, base, max time.Duration, cycleFailed bool) time.Duration {
	if !cycleFailed {
		return base
	}
	next := current * 2
	if next > max {
		next = max
	}
	if next < base {
		next = base
	}
	return next
}

// TickFunc runs one full refresh cycle and reports whether the cycle as a
// whole encountered a collection failure.
type TickFunc func(ctx context.Context) (cycleFailed bool)

// Scheduler owns the shared refresh cadence for the whole tracked set.
type Scheduler struct {
	base time.Duration
	max  time.Duration
	tick TickFunc

	mu        sync.Mutex
	current   time.Duration
	suspended bool
	timer     *time.Timer
	ctx       context.Context
	started   bool

	// inflight marks a cycle between tick entry and settle. A new cycle
	// is never started while one is in flight; wake records a Resume that
	// arrived mid-cycle so the next cycle fires as soon as this one
	// settles.
	inflight bool
	wake     bool
}

// New creates a Scheduler around tick. The cadence starts at base and is
// bounded by max.
func New(base, max time.Duration, tick TickFunc) *Scheduler {
	if max < base {
		max = base
	}
	return &Scheduler{
		base:    base,
		max:     max,
		tick:    tick,
		current: base,
	}
}

// Start runs the first cycle immediately and arms the timer loop.
// The loop stops for good when ctx is cancelled. Start is not blocking.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.ctx = ctx
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Suspend()
	}()

	s.arm(0)
}

// Suspend cancels the pending timer. In-flight work is not interrupted:
// a cycle that already started still settles and its observations are
// applied, but no further timer is armed while suspended.
func (s *Scheduler) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	s.suspended = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	slog.Info("scheduler: suspended")
}

// Resume lifts suspension and fires a cycle immediately, without waiting
// out the remainder of the previous interval. If a cycle is still settling
// when Resume is called, the immediate cycle starts right after it settles
// rather than overlapping it.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	if !s.suspended || s.ctx == nil || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.suspended = false
	inflight := s.inflight
	if inflight {
		s.wake = true
	}
	s.mu.Unlock()

	slog.Info("scheduler: resumed")
	if !inflight {
		s.arm(0)
	}
}

// Suspended reports whether the cadence is currently stopped.
func (s *Scheduler) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

// Interval returns the current cadence.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// arm schedules run after d, unless suspended or shut down.
func (s *Scheduler) arm(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended || s.ctx == nil || s.ctx.Err() != nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, s.run)
}

// run executes one cycle and re-arms the timer from its outcome. Cycles
// never overlap: the next one starts only after this one has settled.
func (s *Scheduler) run() {
	s.mu.Lock()
	if s.suspended || s.inflight || s.ctx == nil || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.inflight = true
	ctx := s.ctx
	s.mu.Unlock()

	failed := s.tick(ctx)

	s.mu.Lock()
	s.inflight = false
	prev := s.current
	s.current = Next(s.current, s.base, s.max, failed)
	changed := s.current != prev
	next := s.current
	immediate := s.wake
	s.wake = false
	s.mu.Unlock()

	if changed {
		slog.Info("scheduler: interval adjusted",
			"cycle_failed", failed,
			"previous", prev,
			"next", next,
		)
	}

	if immediate {
		next = 0
	}
	s.arm(next)
}
