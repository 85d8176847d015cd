package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a submission throttle. Implementations decide whether an
// admission may happen now (Allow) or block until it may (Wait).
type Limiter interface {
	// Allow reports whether one admission may happen now.
	Allow() bool

	// Wait blocks until an admission may happen or ctx is done.
	Wait(ctx context.Context) error
}

// localWindow is a fixed-window counter limiter: at most limit
// admissions per window, counted in memory.
type localWindow struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	windowStart time.Time
	count       int
}

// NewLocalWindow creates an in-memory fixed-window limiter allowing at
// most limit admissions per window. Panics if limit or window is not
// positive.
func NewLocalWindow(limit int, window time.Duration) Limiter {
	if limit <= 0 {
		panic("ratelimit: limit must be positive")
	}
	if window <= 0 {
		panic("ratelimit: window must be positive")
	}
	return &localWindow{limit: limit, window: window}
}

func (lw *localWindow) Allow() bool {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	now := time.Now()
	if now.Sub(lw.windowStart) >= lw.window {
		lw.windowStart = now.Truncate(lw.window)
		lw.count = 0
	}

	if lw.count >= lw.limit {
		return false
	}
	lw.count++
	return true
}

func (lw *localWindow) Wait(ctx context.Context) error {
	for {
		if lw.Allow() {
			return nil
		}

		lw.mu.Lock()
		next := lw.windowStart.Add(lw.window)
		lw.mu.Unlock()

		wait := time.Until(next)
		if wait <= 0 {
			wait = time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
