/*
Package scheduler submits task descriptors to a dispatcher at chosen
times: once at a fixed time, after a delay, on a fixed interval, or on a
cron expression.

Basic usage:

	s := scheduler.New()
	s.Start()
	defer func() { <-s.Stop() }()

	desc := dispatch.Descriptor{
		Func: dispatch.Func(func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
			fmt.Println("triggered")
			return nil, nil
		}),
	}

	// One-time entries
	s.Schedule("report", desc, time.Now().Add(time.Minute))
	s.ScheduleAfter("cleanup", desc, 5*time.Minute)

	// Recurring entries
	s.ScheduleRepeating("heartbeat", desc, 30*time.Second)
	s.ScheduleCron("nightly", "0 0 2 * * *", desc)

Execution:

The scheduler itself never runs callables. On each tick it finds due
entries and submits them to its dispatcher unbounded, so a slow task
backlog never stalls the tick loop; the dispatcher's own worker pool
bounds actual parallelism. Pass a shared dispatcher through Config to
pool scheduled work with directly-submitted work, or leave it nil and
the scheduler owns a private one.

Cron expressions use the six-field form with a leading seconds field,
plus the usual descriptors such as @hourly and @daily. Use the
CronScheduler interface for cron-specific management: UpdateCron,
CronNext, ListCron, ValidateCron.

Transient failures can be retried inside a single trigger with
BackoffFunc, which wraps a callable in capped exponential backoff:

	retry := scheduler.BackoffFunc{
		Func:         flaky,
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
	}
	s.ScheduleRepeating("sync", dispatch.Descriptor{Func: retry.Callable()}, time.Minute)
*/
package scheduler
