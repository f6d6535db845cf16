package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_Valid(t *testing.T) {
	cfg := map[string]any{
		"eventchain": float64(1),
		"name":       "t",
		"q":          map[string]any{"find": map[string]any{}},
	}
	assert.Empty(t, Validate(cfg, ModeFull))
}

func TestValidate_ValidWithProject(t *testing.T) {
	cfg := map[string]any{
		"eventchain": true,
		"name":       "watch",
		"q": map[string]any{
			"find":    map[string]any{"out.s2": "1Hello"},
			"project": map[string]any{"tx.h": float64(1)},
		},
	}
	assert.Empty(t, Validate(cfg, ModeFull))
}

func TestValidate_MissingQuery(t *testing.T) {
	tests := []struct {
		name string
		cfg  map[string]any
	}{
		{"absent", map[string]any{"eventchain": float64(1), "name": "t"}},
		{"null", map[string]any{"eventchain": float64(1), "name": "t", "q": nil}},
		{"missing everything", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.cfg, ModeFull)
			assert.Contains(t, errs, MsgMissingQuery)
			assert.NotContains(t, errs, MsgEmptyQuery)
			assert.NotContains(t, errs, MsgQueryKey)
		})
	}
}

func TestValidate_EmptyQuery(t *testing.T) {
	cfg := map[string]any{
		"eventchain": float64(1),
		"name":       "t",
		"q":          map[string]any{},
	}
	assert.Equal(t, []string{MsgEmptyQuery}, Validate(cfg, ModeFull))
}

func TestValidate_QueryNotObject(t *testing.T) {
	cfg := map[string]any{
		"eventchain": float64(1),
		"name":       "t",
		"q":          "find everything",
	}
	assert.Equal(t, []string{MsgEmptyQuery}, Validate(cfg, ModeFull))
}

func TestValidate_UnsupportedQueryKeys(t *testing.T) {
	cfg := map[string]any{
		"eventchain": float64(1),
		"name":       "t",
		"q": map[string]any{
			"find":  float64(1),
			"bogus": float64(1),
			"other": float64(1),
		},
	}
	assert.Equal(t, []string{MsgQueryKey, MsgQueryKey}, Validate(cfg, ModeFull))
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := map[string]any{
		"q": map[string]any{"limit": float64(10)},
	}
	assert.Equal(t, []string{MsgMissingMarker, MsgMissingName, MsgQueryKey}, Validate(cfg, ModeFull))
}

func TestValidate_FalsyMarkerAndName(t *testing.T) {
	cfg := map[string]any{
		"eventchain": float64(0),
		"name":       "",
		"q":          map[string]any{"find": map[string]any{}},
	}
	assert.Equal(t, []string{MsgMissingMarker, MsgMissingName}, Validate(cfg, ModeFull))
}

func TestValidate_BuildModeSkipsMarkerAndName(t *testing.T) {
	cfg := map[string]any{
		"q": map[string]any{"find": map[string]any{}},
	}
	assert.Empty(t, Validate(cfg, ModeBuild))

	delete(cfg, "q")
	assert.Equal(t, []string{MsgMissingQuery}, Validate(cfg, ModeBuild))
}

func TestValidate_Deterministic(t *testing.T) {
	cfg := map[string]any{
		"q": map[string]any{"a": 1, "b": 2, "find": 3, "c": 4},
	}
	first := Validate(cfg, ModeFull)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Validate(cfg, ModeFull))
	}
}
