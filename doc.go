/*
Package taskflow provides a dynamic task dispatching engine for Go: a
bounded worker pool executing synchronous and cooperative tasks behind
future-like handles, with scheduling, admission control, and
observability built around it.

Task Dispatching (pkg/scheduling):
  - dispatch: Bounded worker pool with FIFO admission, backpressure,
    two-granularity cancellation, and idle scale-down
  - loop: Shared single-goroutine run loop for cooperative tasks
  - scheduler: Time, interval, and cron based submission
  - pipeline: Stage chains runnable as one dispatched task

Admission Control (pkg/ratelimit):
  - concurrency: FIFO concurrency permits
  - distributed: Redis-backed submission throttling with local fallback

Observability:
  - event: Lifecycle and error notification bus
  - metrics: Prometheus instrumentation

Example usage:

	import (
		"github.com/vnykmshr/taskflow/pkg/scheduling/dispatch"
	)

	d := dispatch.New(dispatch.Config{MaxWorkers: 4})
	d.Start()
	defer d.Stop()

	task, _ := d.Submit(dispatch.MakeTask(dispatch.Descriptor{
		Func: process,
		Args: payload,
	}), 0)

	result, err := task.Result(time.Minute)
*/
package taskflow
