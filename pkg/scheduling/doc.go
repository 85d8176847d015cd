/*
Package scheduling provides task dispatching and scheduling primitives.

This package groups the components that decide when and where tasks run:

  - dispatch: Bounded worker pool executing sync and cooperative tasks
  - loop: Shared run loop multiplexing cooperative tasks
  - scheduler: Time-based and cron-based task submission
  - pipeline: Stage composition running as one dispatched task

Dispatcher:

The dispatcher is the core execution engine:

	d := dispatch.New(dispatch.Config{MaxWorkers: 4})
	d.Start()
	defer d.Stop()

	task := dispatch.MakeTask(dispatch.Descriptor{Func: work, Args: input})
	d.Submit(task, 0) // blocks once MaxWorkers tasks are in flight

	result, err := task.Result(time.Minute)

Scheduler:

The scheduler feeds the dispatcher on a schedule:

	s := scheduler.NewWithConfig(scheduler.Config{Dispatcher: d})
	s.Start()
	defer func() { <-s.Stop() }()

	s.ScheduleRepeating("heartbeat", desc, 30*time.Second)
	s.ScheduleCron("nightly", "0 0 2 * * *", desc)

Pipeline:

Pipelines compose stages into a single dispatched unit:

	p := pipeline.New().
		AddStageFunc("validate", validate).
		AddStageFunc("process", process)

	task, _ := p.Submit(d, inputData)

All scheduling components are safe for concurrent use and propagate
context cancellation to running tasks.
*/
package scheduling
