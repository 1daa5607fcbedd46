package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/sbomgraph/internal/classify"
	"github.com/roach88/sbomgraph/internal/cycle"
	"github.com/roach88/sbomgraph/internal/engine"
	"github.com/roach88/sbomgraph/internal/ir"
	"github.com/roach88/sbomgraph/internal/journal"
	"github.com/roach88/sbomgraph/internal/sbom"
	"github.com/roach88/sbomgraph/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and attempt ids.
type Harness struct {
	scenario *Scenario
	engine   *engine.Engine
	decoder  *sbom.Decoder
	journal  *journal.Store
	sink     *testutil.RecordingSink
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh engine and in-memory journal.
// Execution flow:
//  1. Build engine, decoder and journal
//  2. Execute steps in order, checking each expect clause
//  3. Capture the final graph and journal
//  4. Evaluate assertions
//
// Run returns an error only when the scenario cannot be executed (missing
// document file, journal failure); failed expectations are reported in
// the result.
func Run(scenario *Scenario) (*Result, error) {
	scope, err := cycle.ParseScope(scenario.Scope)
	if err != nil {
		return nil, err
	}
	roleSet, err := classify.ParseRoleSet(scenario.RoleSet)
	if err != nil {
		return nil, err
	}

	jr, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer jr.Close()

	dec, err := sbom.NewDecoder(0)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	h := &Harness{
		scenario: scenario,
		decoder:  dec,
		journal:  jr,
		sink:     &testutil.RecordingSink{},
	}
	h.engine = engine.New(
		engine.WithScope(scope),
		engine.WithRoleSet(roleSet),
		engine.WithIDGenerator(engine.NewSequenceGenerator("attempt")),
		engine.WithClock(engine.NewClock()),
		engine.WithSink(h.sink),
		engine.WithRecorder(jr),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithNow(testutil.NewStepClock(time.Millisecond).Now),
	)

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	result.Final = h.engine.Snapshot()
	result.Acyclic = !cycle.HasCycle(h.engine.CurrentMap())

	attempts, err := jr.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	result.Attempts = attempts

	for _, assertion := range scenario.Assertions {
		if err := evaluateAssertion(result, h.engine.Roles(), assertion); err != nil {
			result.AddError(err.Error())
		}
	}

	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	event := TraceEvent{Step: index + 1, Op: OpMerge}

	if step.Clear {
		h.engine.Clear(ctx)
		event.Op = OpClear
		event.Outcome = OutcomeCleared
		event.Delta = h.sink.Last()
		result.Trace = append(result.Trace, event)
		return nil
	}

	source, data, err := h.documentBytes(index, step)
	if err != nil {
		return err
	}
	event.Source = source

	var summary *engine.Summary
	doc, err := h.decoder.Decode(source, data)
	if err == nil {
		summary, err = h.engine.Merge(ctx, doc)
	}

	var (
		le   *sbom.LoadError
		merr *engine.MergeError
	)
	switch {
	case err == nil:
		event.Outcome = OutcomeCommitted
		event.Delta = summary.Delta
	case errors.As(err, &le):
		event.Outcome = OutcomeLoadError
		event.Code = le.Code
	case errors.As(err, &merr):
		event.Outcome = OutcomeRejected
		event.Code = string(merr.Code)
		event.Cycle = merr.Cycle
	default:
		return err
	}
	result.Trace = append(result.Trace, event)

	if step.Expect != nil {
		for _, msg := range checkExpect(index, step.Expect, event, summary, h.engine.Roles()) {
			result.AddError(msg)
		}
	}
	return nil
}

// documentBytes returns the step's source name and JSON bytes.
func (h *Harness) documentBytes(index int, step Step) (string, []byte, error) {
	if step.Merge != "" {
		path := step.Merge
		if !filepath.IsAbs(path) {
			path = filepath.Join(h.scenario.Dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, fmt.Errorf("read document: %w", err)
		}
		return filepath.ToSlash(step.Merge), data, nil
	}

	source := step.Source
	if source == "" {
		source = fmt.Sprintf("step-%d", index+1)
	}
	data, err := json.Marshal(step.Document)
	if err != nil {
		return "", nil, fmt.Errorf("encode inline document: %w", err)
	}
	return source, data, nil
}

// checkExpect compares one step against its expect clause.
func checkExpect(index int, want *Expect, got TraceEvent, summary *engine.Summary, roles map[ir.Identifier]ir.Role) []string {
	var errs []string
	prefix := fmt.Sprintf("steps[%d]", index)

	actual := got.Outcome
	switch {
	case got.Outcome == OutcomeCommitted:
		actual = ExpectOK
	case got.Code == string(engine.ErrCodeCircularDependency):
		actual = ExpectCircular
	case got.Outcome == OutcomeLoadError:
		actual = ExpectLoad
	}
	if actual != want.Outcome {
		errs = append(errs, fmt.Sprintf("%s: expected outcome %s, got %s %s", prefix, want.Outcome, got.Outcome, got.Code))
		return errs
	}

	if len(want.Cycle) > 0 && !equalPath(want.Cycle, got.Cycle) {
		errs = append(errs, fmt.Sprintf("%s: expected cycle %v, got %v", prefix, want.Cycle, got.Cycle))
	}

	if want.NodesAdded != nil && summary != nil && summary.NodesAdded != *want.NodesAdded {
		errs = append(errs, fmt.Sprintf("%s: expected %d nodes added, got %d", prefix, *want.NodesAdded, summary.NodesAdded))
	}

	if err := matchRoles(want.Roles, roles); err != nil {
		errs = append(errs, fmt.Sprintf("%s: %v", prefix, err))
	}
	return errs
}

func equalPath(want []string, got []ir.Identifier) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != string(got[i]) {
			return false
		}
	}
	return true
}
