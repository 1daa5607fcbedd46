package harness

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/sbomgraph/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %s", event.Step, event.Op, event.Source, event.Outcome)
		if event.Code != "" {
			fmt.Fprintf(&buf, " (%s)", event.Code)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// evaluateAssertion dispatches to the assertion for a.Type.
func evaluateAssertion(result *Result, roles map[ir.Identifier]ir.Role, a Assertion) error {
	switch a.Type {
	case AssertFinalRoles:
		if err := matchRoles(a.Roles, roles); err != nil {
			return &AssertionError{Type: a.Type, Expected: formatRoles(a.Roles), Actual: err.Error(), Trace: result.Trace}
		}
		return nil
	case AssertFinalEdges:
		return assertFinalEdges(result, a)
	case AssertNodeCount:
		if got := len(result.Final.Nodes); got != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d nodes", a.Count),
				Actual:   fmt.Sprintf("%d nodes", got),
				Trace:    result.Trace,
			}
		}
		return nil
	case AssertJournalCount:
		return assertJournalCount(result, a)
	case AssertAcyclic:
		if !result.Acyclic {
			return &AssertionError{Type: a.Type, Expected: "no cycle", Actual: "cycle present", Trace: result.Trace}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertFinalEdges requires the exact edge list, in emission order.
func assertFinalEdges(result *Result, a Assertion) error {
	got := make([][]string, 0, len(result.Final.Edges))
	for _, e := range result.Final.Edges {
		got = append(got, []string{string(e.Source), string(e.Target)})
	}
	want := a.Edges
	if want == nil {
		want = [][]string{}
	}

	if !slices.EqualFunc(want, got, slices.Equal[[]string]) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertJournalCount counts journal attempts, filtered by outcome if set.
func assertJournalCount(result *Result, a Assertion) error {
	count := 0
	for _, attempt := range result.Attempts {
		if a.Outcome == "" || string(attempt.Outcome) == a.Outcome {
			count++
		}
	}
	if count != a.Count {
		what := "attempts"
		if a.Outcome != "" {
			what = a.Outcome + " attempts"
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d %s", count, what),
			Trace:    result.Trace,
		}
	}
	return nil
}

// matchRoles checks want as a subset of got.
func matchRoles(want map[string]string, got map[ir.Identifier]ir.Role) error {
	var mismatches []string
	for _, id := range slices.Sorted(maps.Keys(want)) {
		role, ok := got[ir.Identifier(id)]
		switch {
		case !ok:
			mismatches = append(mismatches, fmt.Sprintf("%s: missing", id))
		case string(role) != want[id]:
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %s, got %s", id, want[id], role))
		}
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("roles mismatch: %s", strings.Join(mismatches, "; "))
	}
	return nil
}

func formatRoles(roles map[string]string) string {
	parts := make([]string, 0, len(roles))
	for _, id := range slices.Sorted(maps.Keys(roles)) {
		parts = append(parts, id+"="+roles[id])
	}
	return strings.Join(parts, ", ")
}
