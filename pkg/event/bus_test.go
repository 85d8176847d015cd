package event

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vnykmshr/taskflow/internal/testutil"
)

func TestEmitDeliversToPhaseSubscribers(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe(ErrorOccurred, func(evt Event) {
		got = append(got, evt)
	})

	cause := errors.New("boom")
	bus.Emit(Event{Phase: ErrorOccurred, Err: cause, Source: "worker-0"})

	testutil.AssertEqual(t, len(got), 1)
	testutil.AssertEqual(t, got[0].Err, cause)
	testutil.AssertEqual(t, got[0].Source, "worker-0")
	if got[0].At.IsZero() {
		t.Error("emit should stamp event time")
	}
}

func TestEmitSkipsOtherPhases(t *testing.T) {
	bus := NewBus()

	var errorEvents, startEvents int
	bus.Subscribe(ErrorOccurred, func(Event) { errorEvents++ })
	bus.Subscribe(BeforeStart, func(Event) { startEvents++ })

	bus.Emit(Event{Phase: BeforeStart})

	testutil.AssertEqual(t, errorEvents, 0)
	testutil.AssertEqual(t, startEvents, 1)
}

func TestSubscribeAll(t *testing.T) {
	bus := NewBus()

	var seen []Phase
	bus.SubscribeAll(func(evt Event) { seen = append(seen, evt.Phase) })

	bus.Emit(Event{Phase: BeforeStart})
	bus.Emit(Event{Phase: ErrorOccurred})
	bus.Emit(Event{Phase: BeforeClose})

	testutil.AssertEqual(t, len(seen), 3)
	testutil.AssertEqual(t, seen[1], ErrorOccurred)
}

func TestConcurrentEmitAndSubscribe(t *testing.T) {
	bus := NewBus()

	var delivered int64
	bus.Subscribe(ErrorOccurred, func(Event) { atomic.AddInt64(&delivered, 1) })

	const emitters = 8
	const perEmitter = 100

	var wg sync.WaitGroup
	for i := 0; i < emitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perEmitter; j++ {
				bus.Emit(Event{Phase: ErrorOccurred})
			}
		}()
	}
	wg.Wait()

	testutil.AssertEqual(t, atomic.LoadInt64(&delivered), int64(emitters*perEmitter))
}
