// Package concurrency provides the permit semaphore that bounds how many
// operations run at once. The dispatcher keeps two of these: one counting
// available worker slots and one counting in-flight task permits.
package concurrency

import (
	"context"
	"sync"
)

// Limiter is a counted set of permits with blocking and non-blocking
// acquisition. All methods are safe for concurrent use.
type Limiter interface {
	// Acquire takes one permit without blocking, reporting success.
	Acquire() bool

	// Wait blocks until a permit is available or ctx is done.
	Wait(ctx context.Context) error

	// Release returns one permit. It panics if more permits are released
	// than were acquired.
	Release()

	// Capacity returns the total number of permits.
	Capacity() int

	// Available returns the number of permits currently free.
	Available() int

	// InUse returns the number of permits currently held.
	InUse() int
}

// limiter hands permits to waiters in FIFO order so no submitter is
// starved under contention.
type limiter struct {
	mu        sync.Mutex
	capacity  int
	available int
	waiters   []chan struct{}
}

// New creates a limiter with the given number of permits, all initially
// available. Panics if capacity is not positive.
func New(capacity int) Limiter {
	if capacity <= 0 {
		panic("concurrency: capacity must be positive")
	}
	return &limiter{capacity: capacity, available: capacity}
}

func (l *limiter) Acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.available > 0 {
		l.available--
		return true
	}
	return false
}

func (l *limiter) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	l.mu.Lock()
	if l.available > 0 {
		l.available--
		l.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	l.waiters = append(l.waiters, ready)
	l.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		l.abandon(ready)
		return ctx.Err()
	}
}

func (l *limiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.available >= l.capacity {
		panic("concurrency: released more permits than acquired")
	}

	// Hand the permit straight to the oldest waiter if any.
	if len(l.waiters) > 0 {
		ready := l.waiters[0]
		l.waiters = l.waiters[1:]
		close(ready)
		return
	}
	l.available++
}

func (l *limiter) Capacity() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capacity
}

func (l *limiter) Available() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available
}

func (l *limiter) InUse() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capacity - l.available
}

// abandon removes a cancelled waiter. If its permit was already handed
// over (the ready channel is closed), the permit is put back.
func (l *limiter) abandon(ready chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, w := range l.waiters {
		if w == ready {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			return
		}
	}

	// Not in the list: Release closed it concurrently. Give the permit
	// back so it is not leaked.
	select {
	case <-ready:
		if len(l.waiters) > 0 {
			next := l.waiters[0]
			l.waiters = l.waiters[1:]
			close(next)
		} else {
			l.available++
		}
	default:
	}
}
