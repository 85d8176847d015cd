package loop

import (
	"context"
	"fmt"
	"sync/atomic"

	errs "github.com/vnykmshr/taskflow/pkg/common/errors"
)

// Job is a unit of cooperative work executed on the loop's hosting
// goroutine. The context is cancelled when the job's Future is cancelled
// or the loop shuts down; jobs must check it at their yield points.
type Job func(ctx context.Context) (interface{}, error)

// Loop is a single-goroutine cooperative runtime. All submitted jobs run
// serially on the goroutine that calls Run, so jobs never execute in
// parallel with each other; many caller goroutines may each block on a
// different in-flight Future concurrently.
//
// Loop state is only mutated from the hosting goroutine. Cross-goroutine
// requests (Submit, Shutdown) are funneled through channels rather than
// touching state directly.
type Loop struct {
	jobs   chan *Future
	ready  chan struct{}
	done   chan struct{}
	stop   chan struct{}
	closed atomic.Bool
}

// New creates a loop. The loop does not execute anything until Run is
// called on its hosting goroutine.
func New() *Loop {
	return &Loop{
		jobs:  make(chan *Future, 64),
		ready: make(chan struct{}),
		done:  make(chan struct{}),
		stop:  make(chan struct{}, 1),
	}
}

// Ready returns a channel closed once Run has taken ownership of the
// hosting goroutine and the loop accepts work.
func (l *Loop) Ready() <-chan struct{} {
	return l.ready
}

// Done returns a channel closed when Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run hosts the loop on the calling goroutine until Shutdown is
// requested. It must be called exactly once.
func (l *Loop) Run() {
	close(l.ready)
	defer close(l.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		select {
		case <-l.stop:
			// Processed here so teardown happens on the hosting
			// goroutine, never on the requester's.
			cancel()
			l.drain()
			return
		case fut := <-l.jobs:
			l.execute(ctx, fut)
		}
	}
}

// Submit hands a job to the loop from any goroutine and returns a Future
// whose completion can be awaited from any goroutine. Returns
// ErrLoopClosed once Shutdown has been requested.
func (l *Loop) Submit(job Job) (*Future, error) {
	if job == nil {
		return nil, fmt.Errorf("loop: %w: job is nil", errs.ErrInvalidConfiguration)
	}
	if l.closed.Load() {
		return nil, errs.ErrLoopClosed
	}

	fut := newFuture(job)
	select {
	case l.jobs <- fut:
		return fut, nil
	case <-l.done:
		return nil, errs.ErrLoopClosed
	}
}

// Shutdown asks the hosting goroutine to stop and waits for it to exit,
// or for ctx. Pending jobs that never started complete with ErrCancelled.
// Safe to call from any goroutine and idempotent.
func (l *Loop) Shutdown(ctx context.Context) error {
	if !l.closed.Swap(true) {
		l.stop <- struct{}{}
	}

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// execute runs one job, converting panics into errors on its Future.
func (l *Loop) execute(parent context.Context, fut *Future) {
	if fut.Cancelled() {
		fut.complete(nil, errs.ErrCancelled)
		return
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	fut.arm(cancel)

	var (
		res interface{}
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("loop: job panicked: %v", r)
			}
		}()
		res, err = fut.job(ctx)
	}()

	if err == nil && fut.Cancelled() {
		err = errs.ErrCancelled
	}
	fut.complete(res, err)
}

// drain fails jobs that were queued but never started.
func (l *Loop) drain() {
	for {
		select {
		case fut := <-l.jobs:
			fut.complete(nil, errs.ErrLoopClosed)
		default:
			return
		}
	}
}
