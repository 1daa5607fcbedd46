package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sbomgraph/internal/ir"
)

// GoldenDir is where RunWithGolden keeps golden files. It is the golden
// directory paired with testdata/scenarios.
const GoldenDir = "testdata/golden"

const goldenSuffix = ".golden"

// GoldenStatus reports what happened to a scenario's golden file.
type GoldenStatus string

const (
	GoldenMissing  GoldenStatus = "missing"
	GoldenMatch    GoldenStatus = "match"
	GoldenMismatch GoldenStatus = "mismatch"
	GoldenUpdated  GoldenStatus = "updated"
)

// GoldenPath is the golden file for a scenario: {dir}/{scenarioName}.golden.
// Golden files are keyed by scenario name, not by scenario file name.
func GoldenPath(dir, scenarioName string) string {
	return filepath.Join(dir, scenarioName+goldenSuffix)
}

// GoldenDirFor returns the golden directory paired with a scenarios
// directory: its sibling named golden.
func GoldenDirFor(scenariosDir string) string {
	if abs, err := filepath.Abs(scenariosDir); err == nil {
		scenariosDir = abs
	}
	return filepath.Join(filepath.Dir(filepath.Clean(scenariosDir)), "golden")
}

// CompareGolden compares a result's snapshot with GoldenPath(dir, scenarioName).
func CompareGolden(dir, scenarioName string, result *Result) (GoldenStatus, error) {
	want, err := os.ReadFile(GoldenPath(dir, scenarioName))
	if errors.Is(err, fs.ErrNotExist) {
		return GoldenMissing, nil
	}
	if err != nil {
		return "", fmt.Errorf("read golden file: %w", err)
	}

	got, err := Snapshot(scenarioName, result)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	if !bytes.Equal(want, got) {
		return GoldenMismatch, nil
	}
	return GoldenMatch, nil
}

// UpdateGolden writes a result's snapshot to GoldenPath(dir, scenarioName).
func UpdateGolden(dir, scenarioName string, result *Result) error {
	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	if err := os.WriteFile(GoldenPath(dir, scenarioName), data, 0644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}

// Snapshot renders a result as canonical JSON: the scenario name, every
// trace event with its delta, and the final graph.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		m := map[string]any{
			"step":    event.Step,
			"op":      event.Op,
			"outcome": event.Outcome,
		}
		if event.Source != "" {
			m["source"] = event.Source
		}
		if event.Code != "" {
			m["code"] = event.Code
		}
		if len(event.Cycle) > 0 {
			cyc := make([]any, len(event.Cycle))
			for j, id := range event.Cycle {
				cyc[j] = id
			}
			m["cycle"] = cyc
		}
		if event.Delta != nil {
			m["delta"] = ir.DeltaValue(event.Delta)
		}
		trace[i] = m
	}

	snapshot := map[string]any{
		"scenario_name": scenarioName,
		"trace":         trace,
	}
	if result.Final != nil {
		snapshot["final"] = ir.GraphValue(result.Final, true)
	}
	return ir.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares its snapshot against
// GoldenPath(GoldenDir, scenario.Name).
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
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file. goldie
// resolves {fixtureDir}/{name}{suffix}, the same file as GoldenPath.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(goldenSuffix),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
