package event

import (
	"sync"
	"time"
)

// Handler consumes events delivered by a Bus.
type Handler func(Event)

// Bus is an in-memory publish/subscribe bus keyed by phase. Emission is
// synchronous: Emit invokes every matching handler on the caller's
// goroutine before returning, so an emitter observes exactly-once
// delivery per subscriber with no queueing.
//
// All methods are safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Phase][]Handler
	all      []Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Phase][]Handler)}
}

// Subscribe registers a handler for one phase.
func (b *Bus) Subscribe(phase Phase, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[phase] = append(b.handlers[phase], h)
}

// SubscribeAll registers a handler for every phase.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Emit delivers the event to all handlers subscribed to its phase.
// A zero At field is stamped with the current time.
func (b *Bus) Emit(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}

	b.mu.RLock()
	phased := b.handlers[evt.Phase]
	all := b.all
	b.mu.RUnlock()

	for _, h := range phased {
		h(evt)
	}
	for _, h := range all {
		h(evt)
	}
}
