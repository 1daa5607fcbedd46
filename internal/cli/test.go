package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sbomgraph/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string               `json:"name"`
	Pass   bool                 `json:"pass"`
	Golden harness.GoldenStatus `json:"golden,omitempty"`
	Errors []string             `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`

	// GoldenCompared counts scenarios checked against an existing golden file.
	GoldenCompared int `json:"golden_compared"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run merge scenarios",
		Long: `Run merge scenarios using the harness framework.

Each scenario drives a fresh engine through merge and clear steps,
checks per-step expectations and final-state assertions, and compares
the trace against <golden>/<name>.golden when one exists. <golden> is
the sibling of the scenarios directory (testdata/scenarios pairs with
testdata/golden) and <name> is the scenario's name field.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  sbomgraph test ./scenarios
  sbomgraph test ./scenarios --filter "overlay_*"
  sbomgraph test ./scenarios --update
  sbomgraph test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(scenarioFiles) == 0 && opts.Format != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	goldenDir := harness.GoldenDirFor(scenariosDir)
	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(scenarioFiles))}
	for _, scenarioFile := range scenarioFiles {
		result.add(runScenario(scenarioFile, goldenDir, opts.Update))
	}

	return writeTestResult(cmd, opts.Format, result)
}

func (r *TestResult) add(sr ScenarioResult) {
	r.Scenarios = append(r.Scenarios, sr)
	r.Total++
	if sr.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
	if sr.Golden == harness.GoldenMatch || sr.Golden == harness.GoldenMismatch {
		r.GoldenCompared++
	}
}

// findScenarioFiles returns the .yaml/.yml files under dir whose base name
// (without extension) matches filter. The paired golden directory is skipped.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario executes a single scenario and checks it against the golden
// file keyed by the scenario's name.
func runScenario(scenarioFile, goldenDir string, update bool) ScenarioResult {
	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(scenarioFile),
			Errors: []string{fmt.Sprintf("Load error: %v", err)},
		}
	}
	sr := ScenarioResult{Name: scenario.Name}

	result, err := harness.Run(scenario)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("Execution error: %v", err)}
		return sr
	}
	sr.Pass = result.Pass
	sr.Errors = result.Errors

	if update {
		if err := harness.UpdateGolden(goldenDir, scenario.Name, result); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, fmt.Sprintf("Golden update error: %v", err))
			return sr
		}
		sr.Golden = harness.GoldenUpdated
		return sr
	}

	status, err := harness.CompareGolden(goldenDir, scenario.Name, result)
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("Golden comparison error: %v", err))
		return sr
	}
	sr.Golden = status
	if status == harness.GoldenMismatch {
		sr.Pass = false
		sr.Errors = append(sr.Errors, "Golden file mismatch (run with --update to regenerate)")
	}
	return sr
}

// RenderText prints the scenario's status line and its errors.
func (r ScenarioResult) RenderText(w io.Writer) error {
	mark := "✓"
	if !r.Pass {
		mark = "✗"
	}
	line := mark + " " + r.Name
	switch r.Golden {
	case harness.GoldenMatch:
		line += " (golden)"
	case harness.GoldenUpdated:
		line += " (golden updated)"
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return nil
}

// RenderText prints every scenario followed by the summary.
func (r TestResult) RenderText(w io.Writer) error {
	for _, sr := range r.Scenarios {
		if err := sr.RenderText(w); err != nil {
			return err
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total (%d golden compared)\n",
		r.Passed, r.Failed, r.Total, r.GoldenCompared)
	if r.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
	return nil
}

// writeTestResult prints the result and maps failures to exit code 1. The
// JSON form carries both the result and, on failure, an E020 error.
func writeTestResult(cmd *cobra.Command, format string, result TestResult) error {
	var failure *ExitError
	if result.Failed > 0 {
		failure = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	if format != "json" {
		if err := result.RenderText(cmd.OutOrStdout()); err != nil {
			return err
		}
	} else {
		response := CLIResponse{Status: "ok", Data: result}
		if failure != nil {
			response.Status = "error"
			response.Error = &CLIError{Code: ErrCodeTestsFailed, Message: failure.Message}
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	}

	if failure != nil {
		return failure
	}
	return nil
}
