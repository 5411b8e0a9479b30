// Package queue provides the dispatcher's two event queues: a live FIFO
// and a lower-priority catch-up FIFO.
//
// Neither queue applies backpressure: if event arrival outpaces
// processing, both grow without bound. That is an accepted design
// limitation of the single-instance deployment, not something this
// package papers over.
package queue

import (
	"sync"
	"time"

	"github.com/flairward/flairward/internal/domain/model"
	"github.com/flairward/flairward/pkg/metrics"
)

// Event is the payload type flowing through the queues.
type Event = model.ContentEvent

// PriorityQueue holds live and catch-up events. Take never returns a
// catch-up event while a live event is queued.
type PriorityQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	live    []Event
	catchUp []Event
	closed  bool
}

// NewPriorityQueue creates an empty queue pair.
func NewPriorityQueue() *PriorityQueue {
	q := &PriorityQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// EnqueueLive appends a live event. It never blocks; it reports false only
// after Close.
func (q *PriorityQueue) EnqueueLive(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.live = append(q.live, e)
	metrics.UpdateLiveQueueDepth(len(q.live))
	q.cond.Signal()
	return true
}

// EnqueueCatchUp appends a catch-up event. It never blocks; it reports
// false only after Close.
func (q *PriorityQueue) EnqueueCatchUp(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.catchUp = append(q.catchUp, e)
	metrics.UpdateCatchUpQueueDepth(len(q.catchUp))
	q.cond.Signal()
	return true
}

// Take removes the next event: live first, then catch-up, else it blocks
// up to timeout for a live or catch-up arrival. The second return is false
// when the timeout expired or the queue is closed and drained.
func (q *PriorityQueue) Take(timeout time.Duration) (Event, bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if len(q.live) > 0 {
			e := q.live[0]
			q.live = q.live[1:]
			metrics.UpdateLiveQueueDepth(len(q.live))
			return e, true
		}
		if len(q.catchUp) > 0 {
			e := q.catchUp[0]
			q.catchUp = q.catchUp[1:]
			metrics.UpdateCatchUpQueueDepth(len(q.catchUp))
			return e, true
		}
		if q.closed {
			return Event{}, false
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Event{}, false
		}

		// sync.Cond has no timed wait; arm a wakeup and wait.
		timer := time.AfterFunc(remaining, q.cond.Broadcast)
		q.cond.Wait()
		timer.Stop()
	}
}

// LiveLen returns the current live backlog.
func (q *PriorityQueue) LiveLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.live)
}

// CatchUpLen returns the current catch-up backlog.
func (q *PriorityQueue) CatchUpLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.catchUp)
}

// Close stops further enqueues and wakes any blocked Take.
func (q *PriorityQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	q.cond.Broadcast()
	return nil
}

// IsClosed reports whether Close was called.
func (q *PriorityQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
