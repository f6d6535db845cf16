package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventchain/internal/config"
)

func runValidateCmd(t *testing.T, format, dir string, args ...string) (string, error) {
	t.Helper()
	opts := &ValidateOptions{
		RootOptions: &RootOptions{Format: format},
		ConfigFlags: ConfigFlags{WorkDir: dir},
	}
	cmd := newValidateCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate_Valid(t *testing.T) {
	out, err := runValidateCmd(t, "text", t.TempDir(), "-j", validConfig)
	require.NoError(t, err)
	assert.Equal(t, "✓ config valid\n", out)
}

func TestValidate_ValidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "watch.js"),
		[]byte("module.exports = {\n  eventchain: 1,\n  name: \"watch\",\n  q: {find: {}},\n};\n"), 0644))

	out, err := runValidateCmd(t, "json", dir)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   ValidateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "watch", resp.Data.Name)
	assert.Equal(t, filepath.Join(dir, "watch.js"), resp.Data.Source)
}

func TestValidate_Invalid(t *testing.T) {
	out, err := runValidateCmd(t, "text", t.TempDir(), "-j", `{"name": "x"}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, config.MsgMissingMarker)
	assert.Contains(t, out, config.MsgMissingQuery)
	assert.NotContains(t, out, config.MsgMissingName)
}
