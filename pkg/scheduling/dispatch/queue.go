package dispatch

import (
	"sync"
	"time"

	errs "github.com/vnykmshr/taskflow/pkg/common/errors"
)

// taskQueue is a FIFO queue with bounded-wait dequeue and arbitrary
// removal. Removal is what makes cancelling a still-queued task free:
// the task leaves the queue without any worker touching it. Admission
// order is preserved; completion order is up to the workers.
type taskQueue struct {
	mu      sync.Mutex
	items   []*Task
	waiters []chan *Task
	closed  bool
}

func newTaskQueue() *taskQueue {
	return &taskQueue{}
}

// Put appends a task, or hands it directly to the oldest blocked waiter.
func (q *taskQueue) Put(t *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return errs.ErrQueueClosed
	}

	if len(q.waiters) > 0 {
		w := q.waiters[0]
		q.waiters = q.waiters[1:]
		w <- t
		return nil
	}

	q.items = append(q.items, t)
	return nil
}

// Get removes and returns the oldest task, blocking up to timeout.
// Returns ErrTimeout if nothing arrived in time and ErrQueueClosed once
// the queue is closed and drained.
func (q *taskQueue) Get(timeout time.Duration) (*Task, error) {
	q.mu.Lock()
	if len(q.items) > 0 {
		t := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()
		return t, nil
	}
	if q.closed {
		q.mu.Unlock()
		return nil, errs.ErrQueueClosed
	}

	w := make(chan *Task, 1)
	q.waiters = append(q.waiters, w)
	q.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case t, ok := <-w:
		if !ok {
			return nil, errs.ErrQueueClosed
		}
		return t, nil
	case <-timer.C:
		return q.expire(w)
	}
}

// expire withdraws a timed-out waiter, keeping a task that was handed
// over in the same instant.
func (q *taskQueue) expire(w chan *Task) (*Task, error) {
	q.mu.Lock()
	for i, other := range q.waiters {
		if other == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			q.mu.Unlock()
			return nil, errs.ErrTimeout
		}
	}
	q.mu.Unlock()

	// Not in the list: Put or Close already resolved this waiter.
	t, ok := <-w
	if !ok {
		return nil, errs.ErrQueueClosed
	}
	return t, nil
}

// Remove deletes the task from the queue if it is still physically
// present, reporting whether it was.
func (q *taskQueue) Remove(t *Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item == t {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of queued tasks.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close wakes all blocked waiters with ErrQueueClosed. Queued tasks stay
// retrievable via Get until drained.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	for _, w := range q.waiters {
		close(w)
	}
	q.waiters = nil
}
