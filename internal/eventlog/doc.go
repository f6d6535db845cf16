// Package eventlog implements the append-only event log sinks.
//
// Two delivery strategies satisfy Recorder:
//
//   - FileSink appends each line to <dir>/chain.txt, creating dir lazily
//     and exactly once. Writes are serialized by a mutex.
//   - StreamSink enqueues lines onto an unbounded FIFO drained by a single
//     writer goroutine, so a slow consumer never stalls the caller.
//
// Record never returns an error. Write failures are logged and published on
// the sink's Errors channel; they are never surfaced to the chain engine.
//
// Both sinks preserve call order and never interleave partial lines.
package eventlog
