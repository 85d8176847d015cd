/*
Package event provides the in-memory notification bus used by taskflow
components to surface lifecycle and error events.

The dispatcher emits one ErrorOccurred event per uncaught task error,
whether or not any caller ever inspects the task's result:

	bus := event.NewBus()
	bus.Subscribe(event.ErrorOccurred, func(evt event.Event) {
		log.Printf("task failed in %s: %v", evt.Source, evt.Err)
	})

	d := dispatch.New(dispatch.Config{MaxWorkers: 4, Events: bus})

Delivery is synchronous and exactly-once per subscriber; the bus defines
no persistence, retry, or cross-process semantics.
*/
package event
