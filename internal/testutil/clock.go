package testutil

import "sync"

// SteppingClock is a deterministic wall clock for tests.
//
// The first call to NowMillis returns start, and every later call advances
// by step. This keeps golden logs byte-identical between runs.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu    sync.Mutex
	start int64
	step  int64
	calls int64
}

// NewSteppingClock creates a clock starting at start and advancing by step.
func NewSteppingClock(start, step int64) *SteppingClock {
	return &SteppingClock{start: start, step: step}
}

// NowMillis returns the next timestamp.
func (c *SteppingClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.start + c.calls*c.step
	c.calls++
	return now
}

// Calls returns how many timestamps have been handed out.
func (c *SteppingClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock so the next call returns start again.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
