package harness

import "github.com/roach88/sbomgraph/internal/ir"

// Trace operations.
const (
	OpMerge = "merge"
	OpClear = "clear"
)

// Trace outcomes. Committed, rejected and cleared match ir.Outcome; a
// document the loader refused never reaches the engine.
const (
	OutcomeCommitted = string(ir.OutcomeCommitted)
	OutcomeRejected  = string(ir.OutcomeRejected)
	OutcomeCleared   = string(ir.OutcomeCleared)
	OutcomeLoadError = "load_error"
)

// TraceEvent records what one scenario step did.
type TraceEvent struct {
	Step    int             `json:"step"` // 1-based
	Op      string          `json:"op"`
	Source  string          `json:"source,omitempty"`
	Outcome string          `json:"outcome"`
	Code    string          `json:"code,omitempty"`
	Cycle   []ir.Identifier `json:"cycle,omitempty"`
	Delta   *ir.Delta       `json:"delta,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors lists failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`

	// Final is the graph after the last step.
	Final *ir.Graph `json:"final"`

	// Attempts is the journal content after the last step.
	Attempts []ir.Attempt `json:"attempts"`

	// Acyclic reports whether the final dependency map has no cycle.
	Acyclic bool `json:"acyclic"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Attempts: []ir.Attempt{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
