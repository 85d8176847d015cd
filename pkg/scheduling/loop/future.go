package loop

import (
	"context"
	"sync"
	"sync/atomic"
)

// Future is the completion handle for a job submitted to a Loop. It is
// created by Submit and completed exactly once by the loop's hosting
// goroutine.
type Future struct {
	job Job

	mu     sync.Mutex
	cancel context.CancelFunc

	cancelled atomic.Bool
	done      chan struct{}
	once      sync.Once
	result    interface{}
	err       error
}

func newFuture(job Job) *Future {
	return &Future{job: job, done: make(chan struct{})}
}

// Wait blocks until the job completes or ctx is done, returning the
// job's result or error.
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done returns a channel closed on completion.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Cancel requests cancellation. A job that has not started is skipped
// and completes with ErrCancelled; a running job has its context
// cancelled and stops at its next yield point. Returns false if the
// job already completed.
func (f *Future) Cancel() bool {
	select {
	case <-f.done:
		return false
	default:
	}

	f.cancelled.Store(true)

	f.mu.Lock()
	cancel := f.cancel
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return true
}

// Cancelled reports whether Cancel has been called.
func (f *Future) Cancelled() bool {
	return f.cancelled.Load()
}

// arm records the running job's cancel func. Called by the hosting
// goroutine just before the job starts.
func (f *Future) arm(cancel context.CancelFunc) {
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()

	// Cancel raced with job start: make sure the context is cut.
	if f.cancelled.Load() {
		cancel()
	}
}

// complete stores the outcome and wakes all waiters. Subsequent calls
// are ignored.
func (f *Future) complete(result interface{}, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		close(f.done)
	})
}
