package eventlog

import "sync"

// lineQueue is a thread-safe unbounded FIFO of log lines.
//
// The queue uses a buffered (size 1) channel for signaling so the writer
// can wait on it together with a context.
type lineQueue struct {
	mu     sync.Mutex
	lines  []string
	closed bool
	signal chan struct{}
}

func newLineQueue() *lineQueue {
	return &lineQueue{
		lines:  make([]string, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends a line. Returns false if the queue is closed.
func (q *lineQueue) Enqueue(line string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.lines = append(q.lines, line)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// DrainInto moves every queued line into buf and returns it.
// Returns buf unchanged if the queue is empty.
func (q *lineQueue) DrainInto(buf []string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.lines) == 0 {
		return buf
	}
	buf = append(buf, q.lines...)

	// Clear references so drained strings can be collected.
	clear(q.lines)
	q.lines = q.lines[:0]
	return buf
}

// Wait returns a channel that signals when lines may be available.
// It is closed once the queue is closed.
func (q *lineQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued lines.
func (q *lineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}

// Close stops accepting lines and wakes any waiter.
func (q *lineQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *lineQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
