package eventlog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
)

// DefaultErrorBuffer is the capacity of a sink's Errors channel.
const DefaultErrorBuffer = 16

// ErrClosed is reported when a line is recorded after the sink was closed.
var ErrClosed = errors.New("event log closed")

// Recorder accepts log lines. Record never fails from the caller's view.
type Recorder interface {
	Record(line string)
}

// WriteError describes a failed sink operation.
type WriteError struct {
	Op   string // "mkdir", "open", "write", "record"
	Path string // file or directory, empty for streams
	Err  error
}

func (e *WriteError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("event log %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("event log %s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Stats counts lines handled by a sink.
type Stats struct {
	Recorded int64 // lines delivered to the destination
	Failed   int64 // lines lost to a write failure
}

// Option configures a sink.
type Option func(*reporter)

// WithLogger sets the logger used to report failures. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *reporter) {
		r.logger = logger
	}
}

// WithErrorBuffer sets the capacity of the Errors channel.
func WithErrorBuffer(n int) Option {
	return func(r *reporter) {
		if n < 0 {
			n = 0
		}
		r.errs = make(chan error, n)
	}
}

// reporter holds the failure channel and counters shared by both sinks.
type reporter struct {
	logger   *slog.Logger
	errs     chan error
	recorded atomic.Int64
	failed   atomic.Int64
}

func (r *reporter) init(opts []Option) {
	r.errs = make(chan error, DefaultErrorBuffer)
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
}

// fail logs err and publishes it without blocking. If nobody drains the
// Errors channel the error is only logged.
func (r *reporter) fail(err *WriteError) {
	r.failed.Add(1)
	r.logger.Error("event log write failed", "op", err.Op, "path", err.Path, "error", err.Err)

	select {
	case r.errs <- err:
	default:
	}
}

// Errors returns failures the sink could not deliver. Each value is a *WriteError.
func (r *reporter) Errors() <-chan error {
	return r.errs
}

// Stats returns the sink's counters.
func (r *reporter) Stats() Stats {
	return Stats{
		Recorded: r.recorded.Load(),
		Failed:   r.failed.Load(),
	}
}

// terminate makes sure every entry is exactly one line.
func terminate(line string) string {
	if strings.HasSuffix(line, "\n") {
		return line
	}
	return line + "\n"
}
