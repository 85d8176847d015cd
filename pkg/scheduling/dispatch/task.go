package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	errs "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/scheduling/loop"
)

// Func is a synchronous callable. It runs inline on an OS-level worker
// goroutine; many of them execute genuinely in parallel. The context is
// the executing worker's and is cancelled when that worker is stopped —
// long-running callables should check it between units of work, since a
// callable that ignores it cannot be interrupted.
type Func func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error)

// AsyncFunc is a cooperative callable. It is handed to the dispatcher's
// shared run loop and serialized with all other cooperative work; it
// must yield by checking its context. The worker that dequeued it blocks
// until it completes.
type AsyncFunc func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error)

// State is a task's completion state.
type State int32

const (
	Pending State = iota
	Running
	Done
	Errored
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Errored:
		return "errored"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == Done || s == Errored || s == Cancelled
}

// Callback is invoked exactly once when a task reaches a terminal state.
type Callback func(*Task)

// Task is a future-like handle binding a callable, its arguments, and
// its completion state. Callers keep the handle returned by Submit and
// read the outcome through Result; the executing worker completes it
// through SetResult or SetError exactly once.
type Task struct {
	fn     interface{} // Func or AsyncFunc, fixed at construction
	async  bool
	args   []interface{}
	kwargs map[string]interface{}

	mu       sync.Mutex
	state    State
	result   interface{}
	err      error
	worker   string // name of the executing worker, "" when none
	future   *loop.Future
	disp     *Dispatcher
	callback Callback
	hooks    []func(*Task) // internal completion hooks (permit release, metrics)
	done     chan struct{}
}

// NewTask builds a task from a callable and its arguments. The callable
// must be a Func or an AsyncFunc; the sync/async classification is
// decided here, once. Panics on any other callable type.
func NewTask(fn interface{}, args []interface{}, kwargs map[string]interface{}, callback Callback) *Task {
	t := &Task{
		args:     args,
		kwargs:   kwargs,
		callback: callback,
		done:     make(chan struct{}),
	}
	if t.args == nil {
		t.args = []interface{}{}
	}
	if t.kwargs == nil {
		t.kwargs = map[string]interface{}{}
	}

	switch f := fn.(type) {
	case Func:
		t.fn = f
	case AsyncFunc:
		t.fn = f
		t.async = true
	case func(context.Context, []interface{}, map[string]interface{}) (interface{}, error):
		t.fn = Func(f)
	default:
		panic(fmt.Sprintf("dispatch: unsupported callable type %T", fn))
	}
	return t
}

// IsAsync reports whether the callable runs on the shared run loop.
func (t *Task) IsAsync() bool {
	return t.async
}

// State returns the task's current completion state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Terminal reports whether the task has reached a final state.
func (t *Task) Terminal() bool {
	return t.State().Terminal()
}

// Completion returns a channel closed when the task reaches a terminal
// state.
func (t *Task) Completion() <-chan struct{} {
	return t.done
}

// Result blocks until the task is terminal or timeout elapses. A zero or
// negative timeout waits indefinitely. Returns the stored value, the
// stored error, ErrCancelled for a cancelled task, or ErrTimeout if the
// wait gave up — giving up does not affect the task's own execution.
func (t *Task) Result(timeout time.Duration) (interface{}, error) {
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-t.done:
		case <-timer.C:
			return nil, errs.ErrTimeout
		}
	} else {
		<-t.done
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}

// SetResult transitions the task to Done and fires its callback. Called
// by the executing worker; ignored if the task is already terminal
// (for example when cancellation won the race).
func (t *Task) SetResult(v interface{}) {
	t.terminate(Done, v, nil)
}

// SetError transitions the task to Errored and fires its callback.
// Ignored if the task is already terminal.
func (t *Task) SetError(err error) {
	t.terminate(Errored, nil, err)
}

// Cancel requests cancellation and reports whether it was accepted. A
// task still sitting in the queue is removed at no cost; a task already
// executing escalates to stopping its worker entirely, and its run-loop
// future, if any, is asked to cancel. Returns false if the task already
// completed.
func (t *Task) Cancel() bool {
	if t.Terminal() {
		return false
	}

	t.mu.Lock()
	d := t.disp
	fut := t.future
	t.mu.Unlock()

	if d != nil {
		d.CancelTask(t)
	}
	if fut != nil {
		fut.Cancel()
	}

	t.terminate(Cancelled, nil, errs.ErrCancelled)
	return true
}

// Worker returns the name of the worker currently executing the task,
// or "" if it is not being executed.
func (t *Task) Worker() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.worker
}

// terminate performs the single transition to a terminal state. Exactly
// one call wins; callback and hooks fire once, after the state change,
// outside the lock.
func (t *Task) terminate(state State, result interface{}, err error) bool {
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return false
	}
	t.state = state
	t.result = result
	t.err = err
	cb := t.callback
	hooks := t.hooks
	t.mu.Unlock()

	close(t.done)
	for _, h := range hooks {
		h(t)
	}
	if cb != nil {
		cb(t)
	}
	return true
}

// addDoneHook registers an internal completion hook. Hooks added after
// the task completed run immediately.
func (t *Task) addDoneHook(h func(*Task)) {
	t.mu.Lock()
	if !t.state.Terminal() {
		t.hooks = append(t.hooks, h)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	h(t)
}

func (t *Task) bind(d *Dispatcher) {
	t.mu.Lock()
	t.disp = d
	t.mu.Unlock()
}

func (t *Task) setWorker(name string) {
	t.mu.Lock()
	t.worker = name
	if t.state == Pending {
		t.state = Running
	}
	t.mu.Unlock()
}

func (t *Task) clearWorker() {
	t.mu.Lock()
	t.worker = ""
	t.mu.Unlock()
}

func (t *Task) setFuture(f *loop.Future) {
	t.mu.Lock()
	t.future = f
	cancelled := t.state == Cancelled
	t.mu.Unlock()

	// Cancel raced with dispatch to the run loop.
	if cancelled {
		f.Cancel()
	}
}

func (t *Task) invoke(ctx context.Context) (interface{}, error) {
	switch f := t.fn.(type) {
	case Func:
		return f(ctx, t.args, t.kwargs)
	case AsyncFunc:
		return f(ctx, t.args, t.kwargs)
	default:
		return nil, fmt.Errorf("dispatch: unsupported callable type %T", t.fn)
	}
}
