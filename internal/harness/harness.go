package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/eventchain/internal/adapter"
	"github.com/roach88/eventchain/internal/config"
	"github.com/roach88/eventchain/internal/eventlog"
	"github.com/roach88/eventchain/internal/testutil"
)

// DefaultClockStart is the first timestamp when a scenario sets no clock.
const DefaultClockStart int64 = 1700000000000

// Result is the outcome of replaying a scenario.
type Result struct {
	// Log is the raw event log output.
	Log string

	// Lines is Log split into entries, without trailing newlines.
	Lines []string

	// Filter is what the engine received as its filter.
	Filter json.RawMessage

	// Stats are the event log counters after the run.
	Stats eventlog.Stats

	// LogPath is the chain.txt path in file mode.
	LogPath string
}

// Run replays a scenario. File-mode scenarios write under workDir, which
// must exist; pipe-mode scenarios ignore it.
func Run(scenario *Scenario, workDir string) (*Result, error) {
	cfg, err := config.Load(config.LoadOptions{InlineConfig: scenario.Config, Dir: workDir})
	if err != nil {
		return nil, err
	}

	clock := testutil.NewSteppingClock(DefaultClockStart, 1)
	if scenario.Clock != nil {
		clock = testutil.NewSteppingClock(scenario.Clock.Start, scenario.Clock.Step)
	}

	var out bytes.Buffer
	opts := adapter.Options{
		Pipe:      scenario.Mode != adapter.ModeFile,
		WorkDir:   workDir,
		Stdout:    &out,
		Clock:     clock,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		NoSignals: true,
	}
	a := adapter.New(cfg, opts)

	eng := &ReplayEngine{Events: scenario.Events, Concurrent: scenario.Concurrent}
	if err := a.Run(context.Background(), eng); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := &Result{
		Filter: eng.Filter(),
		Stats:  a.Stats(),
	}

	if a.Mode() == adapter.ModeFile {
		result.LogPath = a.Destination()
		data, err := os.ReadFile(result.LogPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read event log: %w", err)
		}
		result.Log = string(data)
	} else {
		result.Log = out.String()
	}

	if trimmed := strings.TrimSuffix(result.Log, "\n"); trimmed != "" {
		result.Lines = strings.Split(trimmed, "\n")
	}
	return result, nil
}

// RunFile loads a scenario file and replays it.
func RunFile(path, workDir string) (*Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return Run(scenario, workDir)
}

// LogDir returns where a file-mode scenario writes its log under workDir.
func LogDir(workDir string) string {
	return filepath.Join(workDir, adapter.DirName)
}
