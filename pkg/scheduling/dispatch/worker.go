package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	errs "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/event"
)

// gate is a pause/awake switch. Open means the worker may proceed;
// waiting on a closed gate suspends without polling and wakes
// immediately on Awake.
type gate struct {
	mu sync.Mutex
	ch chan struct{} // closed channel = gate open
}

func newGate() *gate {
	g := &gate{ch: make(chan struct{})}
	close(g.ch)
	return g
}

func (g *gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
		// Open: swap in an unclosed channel.
		g.ch = make(chan struct{})
	default:
	}
}

func (g *gate) Awake() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
	default:
		close(g.ch)
	}
}

func (g *gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Worker is an execution goroutine bound to one dispatcher. It pulls
// tasks from the shared queue until the dispatcher stops, it is told to
// shut down, or it finds no work within the idle timeout — in which
// case it deregisters itself and exits, the pool's only automatic
// scale-down.
type Worker struct {
	name  string
	d     *Dispatcher
	trace bool

	gate     *gate
	shutdown atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func newWorker(d *Dispatcher, name string, trace bool) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		name:   name,
		d:      d,
		trace:  trace,
		gate:   newGate(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Name returns the worker's registry name.
func (w *Worker) Name() string {
	return w.name
}

// Pause closes the worker's gate; it suspends before dequeuing its next
// task. A task already executing is not interrupted.
func (w *Worker) Pause() {
	w.gate.Pause()
}

// Awake reopens the gate, waking the worker immediately.
func (w *Worker) Awake() {
	w.gate.Awake()
}

// Stop requests cooperative termination: the shutdown flag is set and
// the worker's context is cancelled, so it unwinds at its next checked
// point. A synchronous callable that ignores its context cannot be
// interrupted mid-flight; this is an accepted limitation, not a bug.
// Returns ErrWorkerStopped if the worker already terminated.
func (w *Worker) Stop() error {
	if w.shutdown.Swap(true) {
		return fmt.Errorf("worker %s: %w", w.name, errs.ErrWorkerStopped)
	}

	select {
	case <-w.done:
		return fmt.Errorf("worker %s: %w", w.name, errs.ErrWorkerStopped)
	default:
	}

	w.cancel()
	w.gate.Awake()
	return nil
}

// run is the worker loop. It deregisters the worker on every exit path.
func (w *Worker) run() {
	defer close(w.done)
	defer w.d.deregister(w.name)

	for w.d.IsRunning() && !w.shutdown.Load() {
		// Paused workers suspend here; resume wakes them immediately.
		if err := w.gate.Wait(w.ctx); err != nil {
			return
		}

		task, err := w.d.queue.Get(w.d.config.IdleTimeout)
		if err != nil {
			// Idle timeout or closed queue: self-terminate.
			return
		}

		if w.shutdown.Load() {
			// Stopped while blocked on the queue; hand the task back for
			// a live worker.
			w.requeue(task)
			return
		}

		if w.trace {
			// Trace mode adds a second checkpoint at the task boundary,
			// so pauses and stops take effect before execution begins.
			if err := w.gate.Wait(w.ctx); err != nil {
				w.requeue(task)
				return
			}
		}

		w.execute(task)
	}
}

// requeue hands an undequeued task back. If the queue already closed
// (dispatcher shutdown), the task is cancelled so its waiters wake.
func (w *Worker) requeue(t *Task) {
	if err := w.d.queue.Put(t); err != nil {
		t.terminate(Cancelled, nil, errs.ErrCancelled)
	}
}

// execute runs one task and stores its outcome. Errors never propagate
// to the worker loop: they land on the task and are published once to
// the event bus.
func (w *Worker) execute(t *Task) {
	t.setWorker(w.name)
	defer t.clearWorker()

	start := time.Now()
	var (
		res interface{}
		err error
	)

	if t.IsAsync() {
		res, err = w.executeAsync(t)
	} else {
		res, err = w.executeSync(t)
	}

	if err != nil {
		t.SetError(err)
		w.reportError(err)
	} else {
		t.SetResult(res)
	}

	w.d.observeTask(t, err, time.Since(start))
}

// executeSync invokes the callable inline on this goroutine, converting
// panics into errors.
func (w *Worker) executeSync(t *Task) (res interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch: task panicked: %v", r)
		}
	}()
	return t.invoke(w.ctx)
}

// executeAsync hands the callable to the shared run loop and blocks
// until its future completes, propagating result or error.
func (w *Worker) executeAsync(t *Task) (interface{}, error) {
	fut, err := w.d.CreateFuture(t)
	if err != nil {
		return nil, err
	}
	t.setFuture(fut)
	return fut.Wait(w.ctx)
}

// reportError publishes one structured error notification per uncaught
// task error. Cancellations are not errors and are not reported.
func (w *Worker) reportError(err error) {
	if errors.Is(err, errs.ErrCancelled) || errors.Is(err, context.Canceled) {
		return
	}

	w.d.logger().Error("task failed",
		slog.String("worker", w.name),
		slog.String("error", err.Error()),
	)
	w.d.emit(event.Event{
		Phase:  event.ErrorOccurred,
		Err:    err,
		Source: w.name,
	})
}
