package harness

import (
	"context"
	"path/filepath"
	"regexp"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventchain/internal/chain"
	"github.com/roach88/eventchain/internal/config"
	"github.com/roach88/eventchain/internal/eventlog"
)

func TestRun_BasicFlowLineShapes(t *testing.T) {
	result, err := RunFile("testdata/scenarios/basic_flow.yaml", t.TempDir())
	require.NoError(t, err)

	require.Len(t, result.Lines, 3)
	assert.Regexp(t, regexp.MustCompile(`^ONSTART \d+ \{\}$`), result.Lines[0])
	assert.Regexp(t, regexp.MustCompile(`^ONMEMPOOL \d+ abc \{"tx":\{"h":"abc"\},"extra":1\}$`), result.Lines[1])
	assert.Regexp(t, regexp.MustCompile(`^ONBLOCK \d+ xyz \[\{"blk":\{"h":"xyz"\}\}\]$`), result.Lines[2])
}

func TestRun_FilterIsTheConfig(t *testing.T) {
	result, err := RunFile("testdata/scenarios/basic_flow.yaml", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, `{"eventchain":1,"name":"t","q":{"find":{}}}`, string(result.Filter))
}

func TestRun_EmptyBlockProducesNoLine(t *testing.T) {
	s := &Scenario{
		Name:   "only_empty_block",
		Config: `{"eventchain": 1, "name": "t", "q": {"find": {}}}`,
		Events: []Event{{Type: EventBlock, Data: `{"tx": []}`}},
	}

	result, err := Run(s, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, result.Lines)
	assert.Equal(t, int64(0), result.Stats.Recorded)
}

func TestRun_FileModeWritesChainFile(t *testing.T) {
	dir := t.TempDir()
	result, err := RunFile("testdata/scenarios/file_mode.yaml", dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(LogDir(dir), eventlog.FileName), result.LogPath)
	assert.Len(t, result.Lines, 3)
}

func TestRun_FileModeHonorsConfigDest(t *testing.T) {
	dir := t.TempDir()
	s := &Scenario{
		Name:   "dest",
		Config: `{"eventchain": 1, "name": "t", "q": {"find": {}}, "dest": "tapes/main"}`,
		Mode:   "file",
		Events: []Event{{Type: EventStart, Data: `{}`}},
	}

	result, err := Run(s, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tapes", "main", "eventchain", eventlog.FileName), result.LogPath)
	assert.Len(t, result.Lines, 1)
}

func TestRun_ConcurrentDelivery(t *testing.T) {
	result, err := RunFile("testdata/scenarios/concurrent.yaml", t.TempDir())
	require.NoError(t, err)

	require.Len(t, result.Lines, 8)
	assert.Regexp(t, `^ONSTART \d+ \{\}$`, result.Lines[0])

	line := regexp.MustCompile(`^(ONMEMPOOL|ONBLOCK) \d+ (\w+) \S+$`)
	var ids []string
	for _, l := range result.Lines[1:] {
		m := line.FindStringSubmatch(l)
		require.NotNil(t, m, "malformed line %q", l)
		ids = append(ids, m[2])
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"b1", "b2", "m1", "m2", "m3", "m4", "m5"}, ids)
}

func TestRun_InvalidConfig(t *testing.T) {
	s := &Scenario{
		Name:   "invalid",
		Config: `{"eventchain": 1, "q": {}}`,
	}

	_, err := Run(s, t.TempDir())
	require.Error(t, err)
	assert.True(t, config.IsLoadError(err, config.ErrCodeValidation))
}

func TestReplayEngine_BadEventData(t *testing.T) {
	eng := &ReplayEngine{Events: []Event{{Type: EventMempool, Data: `[1, 2]`}}}
	err := eng.Start(context.Background(), nil, chain.Handlers{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event 0")
}

func TestReplayEngine_StopsOnCancel(t *testing.T) {
	var calls int
	eng := &ReplayEngine{Events: []Event{
		{Type: EventStart},
		{Type: EventStart},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	err := eng.Start(ctx, nil, chain.Handlers{
		OnStart: func(chain.StartEvent) {
			calls++
			cancel()
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
