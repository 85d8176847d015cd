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
	"github.com/vnykmshr/taskflow/pkg/metrics"
	"github.com/vnykmshr/taskflow/pkg/ratelimit"
	"github.com/vnykmshr/taskflow/pkg/ratelimit/concurrency"
	"github.com/vnykmshr/taskflow/pkg/scheduling/loop"
)

// Unbounded submits a task without acquiring a concurrency permit. The
// caller trades backpressure for throughput and accepts unbounded queue
// growth.
const Unbounded time.Duration = -1

// DispatcherState tracks the dispatcher lifecycle:
// created → starting → running → stopping → stopped.
type DispatcherState int32

const (
	StateCreated DispatcherState = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s DispatcherState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// startTimeout bounds how long Start waits for the run loop to come up
// and Stop waits for it to come down.
const startTimeout = 5 * time.Second

// Config holds dispatcher configuration.
type Config struct {
	// MaxWorkers bounds both the worker pool and, under bounded
	// submission, the number of in-flight tasks. Defaults to 1; panics
	// if negative.
	MaxWorkers int

	// Trace adds a pause/stop checkpoint at every task boundary, at a
	// small scheduling cost.
	Trace bool

	// IdleTimeout is how long a worker waits for a task before
	// self-terminating. Defaults to 5 seconds.
	IdleTimeout time.Duration

	// Name labels the dispatcher in logs, events, and metrics.
	// Defaults to "dispatcher".
	Name string

	// Logger receives structured lifecycle and error logs. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Events receives lifecycle and error notifications. Defaults to a
	// fresh bus, reachable via Events().
	Events *event.Bus

	// Metrics, if set, records dispatcher metrics. Nil disables
	// instrumentation.
	Metrics *metrics.Registry

	// Throttle, if set, gates task admission rate. Submit blocks until
	// the throttle admits the task.
	Throttle ratelimit.Limiter
}

// Dispatcher owns the task queue, the worker registry, the concurrency
// permits, and the shared cooperative run loop. It is the scheduler: it
// admits tasks, grows the pool to match demand, and tears everything
// down on Stop.
type Dispatcher struct {
	config Config
	queue  *taskQueue
	loop   *loop.Loop

	// slots counts free worker positions; permits counts bounded
	// in-flight task capacity. Both start at MaxWorkers.
	slots   concurrency.Limiter
	permits concurrency.Limiter

	workersMu sync.Mutex
	workers   map[string]*Worker

	counter atomic.Uint64
	state   atomic.Int32
}

// New creates a dispatcher. It does nothing until Start is called.
func New(config Config) *Dispatcher {
	if config.MaxWorkers < 0 {
		panic("dispatch: MaxWorkers must not be negative")
	}
	if config.MaxWorkers == 0 {
		config.MaxWorkers = 1
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 5 * time.Second
	}
	if config.Name == "" {
		config.Name = "dispatcher"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Events == nil {
		config.Events = event.NewBus()
	}

	return &Dispatcher{
		config:  config,
		queue:   newTaskQueue(),
		loop:    loop.New(),
		slots:   concurrency.New(config.MaxWorkers),
		permits: concurrency.New(config.MaxWorkers),
		workers: make(map[string]*Worker),
	}
}

// Events returns the dispatcher's notification bus.
func (d *Dispatcher) Events() *event.Bus {
	return d.config.Events
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() DispatcherState {
	return DispatcherState(d.state.Load())
}

// IsRunning reports whether the dispatcher accepts work.
func (d *Dispatcher) IsRunning() bool {
	return d.State() == StateRunning
}

// Running returns the number of tasks currently in flight or queued.
func (d *Dispatcher) Running() int {
	return d.slots.InUse() + d.queue.Len()
}

// Start spawns the dispatcher's background goroutine, which hosts the
// shared run loop, and returns once the loop confirms readiness. It
// returns an error if readiness is not confirmed within a bounded wait,
// or if the dispatcher was already started.
func (d *Dispatcher) Start() error {
	if !d.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("dispatch: start from state %s", d.State())
	}

	d.emit(event.Event{Phase: event.BeforeStart, Source: d.config.Name})

	go d.loop.Run()

	select {
	case <-d.loop.Ready():
	case <-time.After(startTimeout):
		return fmt.Errorf("dispatch: run loop did not become ready within %s", startTimeout)
	}

	d.state.Store(int32(StateRunning))
	d.logger().Info("dispatcher started",
		slog.String("dispatcher", d.config.Name),
		slog.Int("max_workers", d.config.MaxWorkers),
	)
	return nil
}

// Stop stops every registered worker, shuts the run loop down through
// its own hosting goroutine, and clears the running flag. Stopped
// dispatchers cannot be restarted.
func (d *Dispatcher) Stop() error {
	if !d.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return fmt.Errorf("dispatch: stop from state %s", d.State())
	}

	d.emit(event.Event{Phase: event.BeforeClose, Source: d.config.Name})

	d.workersMu.Lock()
	names := make([]string, 0, len(d.workers))
	for name := range d.workers {
		names = append(names, name)
	}
	d.workersMu.Unlock()

	if err := d.StopWorker(names...); err != nil && !errors.Is(err, errs.ErrWorkerStopped) {
		d.logger().Warn("worker shutdown", slog.String("error", err.Error()))
	}

	d.queue.Close()

	// The shutdown request is scheduled onto the loop's own goroutine;
	// mutating it from here would race its single-writer state.
	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := d.loop.Shutdown(ctx); err != nil {
		d.state.Store(int32(StateStopped))
		return fmt.Errorf("dispatch: run loop shutdown: %w", err)
	}

	d.state.Store(int32(StateStopped))
	d.logger().Info("dispatcher stopped", slog.String("dispatcher", d.config.Name))
	return nil
}

// Submit admits a task. The dispatcher must be running; submitting to a
// stopped dispatcher is a programming error and panics.
//
// With timeout == Unbounded the task is enqueued without a concurrency
// permit. Otherwise the submitting goroutine first acquires a permit —
// blocking while MaxWorkers tasks are already in flight, bounded by
// timeout if positive — and the permit is released when the task
// reaches a terminal state. After enqueueing, the pool is grown to
// match pending demand. Returns the task handle.
func (d *Dispatcher) Submit(task *Task, timeout time.Duration) (*Task, error) {
	if !d.IsRunning() {
		panic("dispatch: dispatcher is not running")
	}

	task.bind(d)

	if d.config.Throttle != nil {
		if err := d.config.Throttle.Wait(context.Background()); err != nil {
			return nil, fmt.Errorf("dispatch: %w: %v", errs.ErrRateLimited, err)
		}
	}

	bounded := timeout != Unbounded
	if bounded {
		if err := d.acquirePermit(timeout); err != nil {
			return nil, err
		}
		task.addDoneHook(func(*Task) {
			d.permits.Release()
			if m := d.config.Metrics; m != nil {
				m.PermitsInUse.WithLabelValues(d.config.Name).Set(float64(d.permits.InUse()))
			}
		})
	}

	if err := d.queue.Put(task); err != nil {
		if bounded {
			d.permits.Release()
		}
		return nil, fmt.Errorf("dispatch: enqueue: %w", err)
	}

	d.observeSubmit(bounded)
	d.AdjustWorkers()
	return task, nil
}

// acquirePermit blocks until a concurrency permit frees, bounded by
// timeout when positive.
func (d *Dispatcher) acquirePermit(timeout time.Duration) error {
	start := time.Now()

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := d.permits.Wait(ctx); err != nil {
		return fmt.Errorf("dispatch: acquire permit: %w", errs.ErrTimeout)
	}

	if m := d.config.Metrics; m != nil {
		m.SubmitWait.WithLabelValues(d.config.Name).Observe(time.Since(start).Seconds())
		m.PermitsInUse.WithLabelValues(d.config.Name).Set(float64(d.permits.InUse()))
	}
	return nil
}

// CreateWorker spawns and registers n workers, consuming one free slot
// per spawn. Spawning stops early if no slots remain.
func (d *Dispatcher) CreateWorker(n int) {
	for i := 0; i < n; i++ {
		if !d.slots.Acquire() {
			return
		}

		name := fmt.Sprintf("worker-%d", d.counter.Add(1)-1)
		w := newWorker(d, name, d.config.Trace)

		d.workersMu.Lock()
		d.workers[name] = w
		d.workersMu.Unlock()

		go w.run()

		d.logger().Debug("worker spawned",
			slog.String("dispatcher", d.config.Name),
			slog.String("worker", name),
		)
		d.observeWorkers()
	}
}

// StopWorker deregisters the named workers, releases their slots, and
// requests their termination. Unknown names are ignored. Errors from
// workers that already terminated are joined and returned.
func (d *Dispatcher) StopWorker(names ...string) error {
	var firstErr error
	for _, name := range names {
		d.workersMu.Lock()
		w, ok := d.workers[name]
		if ok {
			delete(d.workers, name)
		}
		d.workersMu.Unlock()

		if !ok {
			continue
		}

		d.slots.Release()
		if err := w.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}

		d.logger().Debug("worker stopped",
			slog.String("dispatcher", d.config.Name),
			slog.String("worker", name),
		)
	}
	d.observeWorkers()
	return firstErr
}

// PauseWorker closes the named workers' gates. Unknown names are no-ops.
func (d *Dispatcher) PauseWorker(names ...string) {
	d.eachWorker(names, (*Worker).Pause)
}

// AwakeWorker reopens the named workers' gates. Unknown names are no-ops.
func (d *Dispatcher) AwakeWorker(names ...string) {
	d.eachWorker(names, (*Worker).Awake)
}

func (d *Dispatcher) eachWorker(names []string, fn func(*Worker)) {
	d.workersMu.Lock()
	defer d.workersMu.Unlock()
	for _, name := range names {
		if w, ok := d.workers[name]; ok {
			fn(w)
		}
	}
}

// Workers returns the names of all registered workers.
func (d *Dispatcher) Workers() []string {
	d.workersMu.Lock()
	defer d.workersMu.Unlock()
	names := make([]string, 0, len(d.workers))
	for name := range d.workers {
		names = append(names, name)
	}
	return names
}

// AdjustWorkers grows the pool by min(free slots, pending tasks). It
// never shrinks: scale-down happens only through worker idle timeouts.
func (d *Dispatcher) AdjustWorkers() {
	idle := d.slots.Available()
	pending := d.queue.Len()

	n := idle
	if pending < n {
		n = pending
	}
	if n > 0 {
		d.CreateWorker(n)
	}
}

// CancelTask cancels the task cheaply if it is still queued — removing
// it with no worker involvement — and otherwise escalates to stopping
// its executing worker entirely. Already-completed tasks are left alone.
func (d *Dispatcher) CancelTask(task *Task) {
	if d.queue.Remove(task) {
		task.terminate(Cancelled, nil, errs.ErrCancelled)
		d.observeCancel()
		return
	}

	// The Cancelled transition must win before the stopped worker's own
	// error lands on the task, so terminate first, then stop.
	name := task.Worker()
	if name == "" || !task.terminate(Cancelled, nil, errs.ErrCancelled) {
		return
	}
	if err := d.StopWorker(name); err != nil {
		d.logger().Warn("cancel: stop worker",
			slog.String("worker", name),
			slog.String("error", err.Error()),
		)
	}
	d.observeCancel()
}

// CreateFuture schedules the task's callable onto the shared run loop
// from the calling goroutine and returns a handle awaitable from any
// goroutine. Calling it for a non-async task is a programming error and
// panics; a dispatcher that is no longer running returns an error.
func (d *Dispatcher) CreateFuture(task *Task) (*loop.Future, error) {
	if !task.IsAsync() {
		panic("dispatch: CreateFuture wants an async task")
	}
	if !d.IsRunning() {
		return nil, fmt.Errorf("dispatch: dispatcher is not running: %w", errs.ErrLoopClosed)
	}

	return d.loop.Submit(func(ctx context.Context) (interface{}, error) {
		return task.invoke(ctx)
	})
}

// deregister removes a worker that terminated on its own and frees its
// slot. Idempotent with StopWorker.
func (d *Dispatcher) deregister(name string) {
	d.workersMu.Lock()
	_, ok := d.workers[name]
	if ok {
		delete(d.workers, name)
	}
	d.workersMu.Unlock()

	if !ok {
		return
	}

	d.slots.Release()
	d.logger().Debug("worker idle, deregistered",
		slog.String("dispatcher", d.config.Name),
		slog.String("worker", name),
	)
	d.observeWorkers()
}

func (d *Dispatcher) logger() *slog.Logger {
	return d.config.Logger
}

// emit publishes an event on the bus and counts it.
func (d *Dispatcher) emit(evt event.Event) {
	if m := d.config.Metrics; m != nil {
		m.EventsEmitted.WithLabelValues(string(evt.Phase)).Inc()
	}
	d.config.Events.Emit(evt)
}

func (d *Dispatcher) observeSubmit(bounded bool) {
	m := d.config.Metrics
	if m == nil {
		return
	}
	mode := "bounded"
	if !bounded {
		mode = "unbounded"
	}
	m.TasksSubmitted.WithLabelValues(d.config.Name, mode).Inc()
	m.QueueDepth.WithLabelValues(d.config.Name).Set(float64(d.queue.Len()))
	m.TasksInFlight.WithLabelValues(d.config.Name).Set(float64(d.Running()))
}

func (d *Dispatcher) observeCancel() {
	m := d.config.Metrics
	if m == nil {
		return
	}
	m.TasksCancelled.WithLabelValues(d.config.Name).Inc()
	m.QueueDepth.WithLabelValues(d.config.Name).Set(float64(d.queue.Len()))
}

func (d *Dispatcher) observeWorkers() {
	m := d.config.Metrics
	if m == nil {
		return
	}
	d.workersMu.Lock()
	live := len(d.workers)
	d.workersMu.Unlock()
	m.WorkersLive.WithLabelValues(d.config.Name).Set(float64(live))
}

// observeTask records one finished execution.
func (d *Dispatcher) observeTask(t *Task, err error, took time.Duration) {
	m := d.config.Metrics
	if m == nil {
		return
	}

	kind := "sync"
	if t.IsAsync() {
		kind = "async"
	}
	m.TaskDuration.WithLabelValues(d.config.Name, kind).Observe(took.Seconds())

	switch {
	case err == nil:
		m.TasksCompleted.WithLabelValues(d.config.Name).Inc()
	case errors.Is(err, errs.ErrCancelled) || errors.Is(err, context.Canceled):
		// Counted by observeCancel.
	default:
		m.TasksFailed.WithLabelValues(d.config.Name).Inc()
	}

	m.QueueDepth.WithLabelValues(d.config.Name).Set(float64(d.queue.Len()))
	m.TasksInFlight.WithLabelValues(d.config.Name).Set(float64(d.Running()))
}
