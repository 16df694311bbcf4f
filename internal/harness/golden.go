package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/grimoire/internal/canon"
)

// Snapshot is the golden form of a successful run.
type Snapshot struct {
	Scenario string   `json:"scenario"`
	Plan     []string `json:"plan"`
	Tables   []string `json:"tables"`
	Entities any      `json:"entities"`
}

// SnapshotJSON returns the canonical JSON snapshot of a result, newline
// terminated.
func SnapshotJSON(name string, r *Result) ([]byte, error) {
	data, err := canon.Marshal(Snapshot{
		Scenario: name,
		Plan:     r.Plan,
		Tables:   r.Tables,
		Entities: r.Entities,
	})
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := SnapshotJSON(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
