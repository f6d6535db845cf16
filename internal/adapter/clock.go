package adapter

import "time"

// Clock stamps log lines with wall-clock milliseconds.
type Clock interface {
	NowMillis() int64
}

// SystemClock reads the system time.
type SystemClock struct{}

// NowMillis returns milliseconds since the Unix epoch.
func (SystemClock) NowMillis() int64 {
	return time.Now().UnixMilli()
}
