package eventlog

import (
	"os"
	"path/filepath"
	"sync"
)

// FileName is the log file created inside the output directory.
const FileName = "chain.txt"

// FileSink appends lines to <dir>/chain.txt.
//
// The directory is created recursively on first use and only then. Every
// physical operation (mkdir, open, write) happens under one mutex, and each
// line goes out in a single Write, so concurrent Record calls never tear.
type FileSink struct {
	reporter

	dir  string
	path string

	mu       sync.Mutex
	prepared bool
	file     *os.File

	mkdirAll func(string, os.FileMode) error
}

var _ Recorder = (*FileSink)(nil)

// NewFileSink creates a sink writing to dir/chain.txt. Nothing touches the
// filesystem until Prepare or the first Record.
func NewFileSink(dir string, opts ...Option) *FileSink {
	s := &FileSink{
		dir:      dir,
		path:     filepath.Join(dir, FileName),
		mkdirAll: os.MkdirAll,
	}
	s.init(opts)
	return s
}

// Dir returns the output directory.
func (s *FileSink) Dir() string {
	return s.dir
}

// Path returns the log file path.
func (s *FileSink) Path() string {
	return s.path
}

// Prepare creates the output directory if it does not exist yet.
// It is idempotent; only the first successful call touches the filesystem.
func (s *FileSink) Prepare() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prepareLocked()
}

func (s *FileSink) prepareLocked() error {
	if s.prepared {
		return nil
	}
	if err := s.mkdirAll(s.dir, 0755); err != nil {
		werr := &WriteError{Op: "mkdir", Path: s.dir, Err: err}
		s.fail(werr)
		return werr
	}
	s.prepared = true
	return nil
}

// Record appends line to the log file. Failures are reported, not returned,
// and the line is not retried.
func (s *FileSink) Record(line string) {
	line = terminate(line)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepareLocked(); err != nil {
		return
	}

	if s.file == nil {
		f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			s.fail(&WriteError{Op: "open", Path: s.path, Err: err})
			return
		}
		s.file = f
	}

	if _, err := s.file.WriteString(line); err != nil {
		s.fail(&WriteError{Op: "write", Path: s.path, Err: err})
		// Reopen on the next line in case the file was rotated away.
		_ = s.file.Close()
		s.file = nil
		return
	}
	s.recorded.Add(1)
}

// Close closes the log file. Lines recorded afterwards reopen it.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
