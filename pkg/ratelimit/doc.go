/*
Package ratelimit provides admission control primitives for the
dispatcher.

The Limiter interface covers rate-based admission; implementations:

  - NewLocalWindow: in-process fixed-window counter
  - distributed: Redis-backed window shared across instances, with a
    local fallback when Redis is unreachable

The concurrency subpackage provides FIFO concurrency permits, the
mechanism behind the dispatcher's worker slots and submission
backpressure.

Example usage:

	throttle := ratelimit.NewLocalWindow(100, time.Second)

	d := dispatch.New(dispatch.Config{
		MaxWorkers: 4,
		Throttle:   throttle,
	})
*/
package ratelimit
