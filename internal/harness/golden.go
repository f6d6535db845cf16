package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden replays a scenario and compares its event log against
// testdata/golden/{scenario.Name}.golden.
//
// Only deterministic scenarios belong here: concurrent scenarios produce
// lines in an unspecified order.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, t.TempDir())
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(result.Log))
}
