package eventlog

import (
	"context"
	"io"
)

// StreamSink pushes lines into a continuously drained stream.
//
// Record only enqueues onto an unbounded in-memory FIFO; a single writer
// goroutine (Run) copies lines to the consumer in call order. A slow or
// failing consumer delays delivery but never blocks or fails Record.
type StreamSink struct {
	reporter

	w io.Writer
	q *lineQueue
}

var _ Recorder = (*StreamSink)(nil)

// NewStreamSink creates a sink delivering to w. Call Run to start delivery.
func NewStreamSink(w io.Writer, opts ...Option) *StreamSink {
	s := &StreamSink{
		w: w,
		q: newLineQueue(),
	}
	s.init(opts)
	return s
}

// Record enqueues line for delivery.
func (s *StreamSink) Record(line string) {
	if !s.q.Enqueue(terminate(line)) {
		s.fail(&WriteError{Op: "record", Err: ErrClosed})
	}
}

// Pending returns the number of lines not yet handed to the consumer.
func (s *StreamSink) Pending() int {
	return s.q.Len()
}

// Close stops accepting lines. Run delivers whatever is queued, then returns.
func (s *StreamSink) Close() error {
	s.q.Close()
	return nil
}

// Run is the writer loop. It must be called from exactly one goroutine and
// returns once the sink is closed (by Close or ctx) and the queue is empty.
func (s *StreamSink) Run(ctx context.Context) error {
	var buf []string

	for {
		buf = s.q.DrainInto(buf[:0])
		for i, line := range buf {
			s.write(line)
			buf[i] = ""
		}

		if s.q.Closed() && s.q.Len() == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			s.q.Close()
		case <-s.q.Wait():
		}
	}
}

func (s *StreamSink) write(line string) {
	if _, err := io.WriteString(s.w, line); err != nil {
		s.fail(&WriteError{Op: "write", Err: err})
		return
	}
	s.recorded.Add(1)
}
