// Package adapter binds a validated config and an event log to the chain
// engine's lifecycle callbacks.
//
// Log lines have the form
//
//	ONSTART <ms> <json>
//	ONMEMPOOL <ms> <tx hash> <json>
//	ONBLOCK <ms> <block hash> <json>
//
// where the JSON is the engine's payload, compacted but not re-ordered.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/oklog/run"

	"github.com/roach88/eventchain/internal/chain"
	"github.com/roach88/eventchain/internal/config"
	"github.com/roach88/eventchain/internal/eventlog"
)

// DirName is the directory created under the output root.
const DirName = "eventchain"

// Output modes.
const (
	ModeFile = "file"
	ModePipe = "pipe"
)

// Event type tags at the start of each log line.
const (
	TagStart   = "ONSTART"
	TagMempool = "ONMEMPOOL"
	TagBlock   = "ONBLOCK"
)

// Options selects the log destination. They are fixed for the adapter's
// lifetime.
type Options struct {
	// Pipe streams lines to Stdout instead of appending to a file.
	Pipe bool

	// DestRoot is the output root; DirName is created beneath it. Empty
	// falls back to the config's "dest"/"tape" field, then to WorkDir.
	DestRoot string

	// WorkDir resolves relative roots. Defaults to the process working directory.
	WorkDir string

	// Stdout receives lines in pipe mode. Defaults to os.Stdout.
	Stdout io.Writer

	// Clock stamps lines. Defaults to SystemClock.
	Clock Clock

	// Logger reports operational events. Defaults to slog.Default().
	Logger *slog.Logger

	// NoSignals disables SIGINT/SIGTERM handling in Run.
	NoSignals bool
}

// Adapter wires one config to one event log.
type Adapter struct {
	cfg    *config.Config
	clock  Clock
	logger *slog.Logger
	noSig  bool

	log    eventlog.Recorder
	file   *eventlog.FileSink   // set in file mode
	stream *eventlog.StreamSink // set in pipe mode
}

// New creates an adapter for a config that already passed validation.
func New(cfg *config.Config, opts Options) *Adapter {
	a := &Adapter{
		cfg:    cfg,
		clock:  opts.Clock,
		logger: opts.Logger,
		noSig:  opts.NoSignals,
	}
	if a.clock == nil {
		a.clock = SystemClock{}
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}

	sinkOpts := []eventlog.Option{eventlog.WithLogger(a.logger)}
	if opts.Pipe {
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		a.stream = eventlog.NewStreamSink(w, sinkOpts...)
		a.log = a.stream
	} else {
		root := opts.DestRoot
		if root == "" {
			root = cfg.Dest()
		}
		a.file = eventlog.NewFileSink(OutputDir(opts.WorkDir, root), sinkOpts...)
		a.log = a.file
	}
	return a
}

// OutputDir resolves <workDir>/<root>/eventchain. An absolute root ignores
// workDir; an empty root means workDir itself.
func OutputDir(workDir, root string) string {
	if root == "" {
		root = "."
	}
	if !filepath.IsAbs(root) {
		if workDir == "" {
			if wd, err := os.Getwd(); err == nil {
				workDir = wd
			}
		}
		root = filepath.Join(workDir, root)
	}
	return filepath.Join(root, DirName)
}

// Mode returns ModePipe or ModeFile.
func (a *Adapter) Mode() string {
	if a.stream != nil {
		return ModePipe
	}
	return ModeFile
}

// Destination returns the log file path, or "stdout" in pipe mode.
func (a *Adapter) Destination() string {
	if a.file != nil {
		return a.file.Path()
	}
	return "stdout"
}

// Errors reports log write failures for code embedding the adapter. The
// CLI does not read it; every failure is also logged at error level.
func (a *Adapter) Errors() <-chan error {
	if a.file != nil {
		return a.file.Errors()
	}
	return a.stream.Errors()
}

// Stats returns the event log counters.
func (a *Adapter) Stats() eventlog.Stats {
	if a.file != nil {
		return a.file.Stats()
	}
	return a.stream.Stats()
}

// Handlers returns the callbacks to register with the engine. They are safe
// for concurrent use and never panic into the engine.
func (a *Adapter) Handlers() chain.Handlers {
	return chain.Handlers{
		OnStart:   a.onStart,
		OnMempool: a.onMempool,
		OnBlock:   a.onBlock,
	}
}

func (a *Adapter) onStart(ev chain.StartEvent) {
	defer a.guard(TagStart)

	if a.file != nil {
		// Failure is already reported by the sink; Record will retry mkdir.
		_ = a.file.Prepare()
	}
	a.log.Record(fmt.Sprintf("%s %d %s", TagStart, a.clock.NowMillis(), a.compact(ev.Payload())))
}

func (a *Adapter) onMempool(ev chain.MempoolEvent) {
	defer a.guard(TagMempool)

	a.log.Record(fmt.Sprintf("%s %d %s %s", TagMempool, a.clock.NowMillis(), ev.Hash(), a.compact(ev.Tx)))
}

func (a *Adapter) onBlock(ev chain.BlockEvent) {
	defer a.guard(TagBlock)

	if ev.Len() == 0 {
		return
	}
	a.log.Record(fmt.Sprintf("%s %d %s %s", TagBlock, a.clock.NowMillis(), ev.BlockHash(), a.compact(ev.Tx)))
}

// compact strips insignificant whitespace so each entry stays on one line.
func (a *Adapter) compact(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		a.logger.Warn("event payload is not valid JSON", "error", err)
		return bytes.ReplaceAll(raw, []byte("\n"), []byte(" "))
	}
	return buf.Bytes()
}

func (a *Adapter) guard(tag string) {
	if r := recover(); r != nil {
		a.logger.Error("event callback failed", "event", tag, "panic", r)
	}
}

// Run starts the engine with the config as its filter and blocks until the
// engine stops, ctx is cancelled, or the process is signalled. In pipe mode
// every queued line is delivered before Run returns.
func (a *Adapter) Run(ctx context.Context, eng chain.Engine) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runID := uuid.Must(uuid.NewV7()).String()
	a.logger.Info("eventchain starting",
		"run_id", runID,
		"name", a.cfg.Name(),
		"source", a.cfg.Source,
		"mode", a.Mode(),
		"dest", a.Destination(),
	)

	var g run.Group

	// Engine.
	g.Add(func() error {
		return eng.Start(ctx, a.cfg.JSON(), a.Handlers())
	}, func(error) {
		cancel()
	})

	// Stream writer. It drains on Close, independent of ctx.
	if a.stream != nil {
		g.Add(func() error {
			return a.stream.Run(context.Background())
		}, func(error) {
			_ = a.stream.Close()
		})
	}

	// Signals.
	if !a.noSig {
		if a.stream != nil {
			// A closed stdout reader becomes a reported write error
			// instead of killing the process.
			signal.Ignore(syscall.SIGPIPE)
		}
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		g.Add(func() error {
			select {
			case sig := <-sigChan:
				a.logger.Info("received signal, shutting down", "signal", sig)
			case <-ctx.Done():
			}
			return nil
		}, func(error) {
			signal.Stop(sigChan)
			cancel()
		})
	}

	err := g.Run()

	if a.file != nil {
		if closeErr := a.file.Close(); closeErr != nil {
			a.logger.Error("error closing event log", "error", closeErr)
		}
	}

	stats := a.Stats()
	a.logger.Info("eventchain stopped", "run_id", runID, "recorded", stats.Recorded, "failed", stats.Failed)
	return err
}

// Start loads exactly one valid config and runs the engine with it.
// Config failures are returned before the engine starts.
func Start(ctx context.Context, load config.LoadOptions, opts Options, eng chain.Engine) error {
	cfg, err := config.Load(load)
	if err != nil {
		return err
	}
	if opts.WorkDir == "" {
		opts.WorkDir = load.Dir
	}
	return New(cfg, opts).Run(ctx, eng)
}
