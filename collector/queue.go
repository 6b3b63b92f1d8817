package collector

import (
	"errors"
	"sync"

	"github.com/robertof/go-hibouair-exporter/bleuio"
)

var ErrQueueClosed = errors.New("command queue closed")

// CommandQueue is an unbounded queue of requests from outside the session, e.g. a UI.
// Submit never blocks. Closing the queue tells the session its consumer has gone away.
type CommandQueue struct {
	mu      sync.Mutex
	pending []bleuio.Request
	closed  bool

	ready chan struct{}
}

func NewCommandQueue() *CommandQueue {
	return &CommandQueue{
		ready: make(chan struct{}, 1),
	}
}

func (q *CommandQueue) Submit(r bleuio.Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.pending = append(q.pending, r)
	q.notify()

	return nil
}

// Close is idempotent. Requests submitted before Close are still delivered.
func (q *CommandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		q.notify()
	}
}

func (q *CommandQueue) notify() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready fires after Submit or Close. Call Drain to collect the work.
func (q *CommandQueue) Ready() <-chan struct{} {
	return q.ready
}

// Drain takes every pending request. closed reports whether the queue was closed.
func (q *CommandQueue) Drain() (requests []bleuio.Request, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	requests, q.pending = q.pending, nil

	return requests, q.closed
}
