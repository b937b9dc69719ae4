// Package sched is a small delayed-task queue with cancellation handles. It
// replaces ad hoc self-rescheduling timers: every pending task is tracked, can
// be cancelled individually, and shutdown waits for running tasks to finish.
package sched

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task is a unit of deferred work.
type Task func(ctx context.Context)

// Handle cancels one scheduled task.
type Handle struct {
	mu        sync.Mutex
	timer     *time.Timer
	fired     bool
	cancelled bool
	release   func()
}

// Cancel stops the task if it has not started. Returns true when the task was
// prevented from running.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	if h.fired || h.cancelled {
		h.mu.Unlock()
		return false
	}
	h.cancelled = true
	timer := h.timer
	release := h.release
	h.release = nil
	h.mu.Unlock()

	if timer != nil && !timer.Stop() {
		// The timer already fired; the task func owns the release.
		return false
	}
	if release != nil {
		release()
	}
	return true
}

// markFired claims the run. Returns false when the handle was cancelled first.
func (h *Handle) markFired() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		return false
	}
	h.fired = true
	h.release = nil
	return true
}

// Scheduler runs deferred and periodic tasks on its own goroutines, all bound
// to one root context.
type Scheduler struct {
	ctx     context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	pending map[*Handle]struct{}
	logger  zerolog.Logger
}

// New creates a scheduler bound to the parent context.
func New(parent context.Context, logger zerolog.Logger) *Scheduler {
	ctx, stop := context.WithCancel(parent)
	return &Scheduler{ctx: ctx, stop: stop, pending: make(map[*Handle]struct{}), logger: logger}
}

func (s *Scheduler) forget(h *Handle) {
	s.mu.Lock()
	delete(s.pending, h)
	s.mu.Unlock()
}

// After runs the task once after the delay. The returned handle cancels it.
func (s *Scheduler) After(delay time.Duration, name string, task Task) *Handle {
	h := &Handle{}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		h.cancelled = true
		return h
	}
	s.wg.Add(1)
	s.pending[h] = struct{}{}
	s.mu.Unlock()

	h.release = func() {
		s.wg.Done()
		s.forget(h)
	}
	h.timer = time.AfterFunc(delay, func() {
		defer func() {
			s.wg.Done()
			s.forget(h)
		}()
		if s.ctx.Err() != nil || !h.markFired() {
			return
		}
		task(s.ctx)
	})
	return h
}

// Every runs the task at the given interval until the handle is cancelled or
// the scheduler shuts down. The first run happens after one interval.
func (s *Scheduler) Every(interval time.Duration, name string, task Task) *Handle {
	h := &Handle{}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		h.cancelled = true
		return h
	}
	s.wg.Add(1)
	s.pending[h] = struct{}{}
	s.mu.Unlock()

	s.logger.Debug().Str("task", name).Dur("interval", interval).Msg("periodic task registered")
	go func() {
		defer func() {
			s.wg.Done()
			s.forget(h)
		}()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				h.mu.Lock()
				cancelled := h.cancelled
				h.mu.Unlock()
				if cancelled {
					return
				}
				task(s.ctx)
			}
		}
	}()
	return h
}

// Shutdown cancels pending work and waits for running tasks, bounded by ctx.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	handles := make([]*Handle, 0, len(s.pending))
	for h := range s.pending {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	s.stop()
	for _, h := range handles {
		h.Cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
