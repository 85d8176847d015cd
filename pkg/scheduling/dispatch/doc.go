/*
Package dispatch implements a dynamic task dispatching engine: a bounded
pool of workers executing a mix of synchronous and asynchronous
(cooperative) callables behind one future-like handle.

Basic usage:

	d := dispatch.New(dispatch.Config{MaxWorkers: 4})
	if err := d.Start(); err != nil {
		log.Fatal(err)
	}
	defer d.Stop()

	task := dispatch.MakeTask(dispatch.Descriptor{
		Func: dispatch.Func(func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
			return args[0].(int) * 2, nil
		}),
		Args: 21,
	})

	if _, err := d.Submit(task, 0); err != nil {
		log.Fatal(err)
	}

	res, err := task.Result(time.Second)

Execution model:

Two execution styles coexist. Synchronous callables (Func) run inline on
independent worker goroutines and are genuinely parallel with each
other. Asynchronous callables (AsyncFunc) are multiplexed onto one
shared cooperative run loop and never run in parallel with each other,
though many workers may each be blocked on a different in-flight
cooperative callable at once. The classification is decided once, at
task construction, from the callable's type.

Admission and backpressure:

Admission into the queue is FIFO; completion order across workers is
unordered. Bounded submission (the default) acquires a concurrency
permit per task and blocks the submitter once MaxWorkers tasks are in
flight, until one completes:

	d.Submit(task, 0)                   // block for a permit as long as it takes
	d.Submit(task, time.Second)         // give up after a second
	d.Submit(task, dispatch.Unbounded)  // no permit: unbounded in-flight count

The pool grows lazily: each submission spawns up to min(free slots,
pending tasks) workers. There is no proactive scale-down; a worker that
finds no work within IdleTimeout deregisters itself and exits.

Cancellation has two granularities only. A task still sitting in the
queue is removed for free. A task already executing escalates to
stopping its whole worker — cooperatively, via the context passed to the
callable; a synchronous callable that never checks its context cannot be
interrupted, which is an accepted limitation. For cooperative callables
the run-loop future is cancelled as well.

Errors from callables (returned or panicked) never propagate to the
worker: they are stored on the task, visible through Result, and emitted
exactly once per error on the dispatcher's event bus as an
ErrorOccurred notification — even if no caller ever inspects the task.
*/
package dispatch
