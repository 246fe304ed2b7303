package rebuild

import (
	"sync"
)

// request is one queued edit and the channel its result is delivered on.
type request struct {
	edit  Edit
	reply chan EditResult
}

// editQueue is the unbounded FIFO feeding the Workspace writer loop.
//
// Enqueue may be called from any goroutine; only Run dequeues. The signal
// channel (buffered, size 1) lets the loop wait on it next to ctx.Done().
type editQueue struct {
	mu     sync.Mutex
	items  []request
	closed bool
	signal chan struct{}
}

func newEditQueue() *editQueue {
	return &editQueue{
		items:  make([]request, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds r to the back of the queue. Returns false once closed.
func (q *editQueue) Enqueue(r request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, r)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front request without blocking.
func (q *editQueue) TryDequeue() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return request{}, false
	}
	r := q.items[0]
	q.items[0] = request{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return r, true
}

// Wait signals that requests may be available. A token may be stale: the
// request it announced can already have been dequeued. It is closed by
// Close.
func (q *editQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued requests.
func (q *editQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *editQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops further enqueues and wakes the waiter. Requests still queued
// are returned so the caller can fail them.
func (q *editQueue) Close() []request {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.signal)
	rest := q.items
	q.items = nil
	return rest
}
