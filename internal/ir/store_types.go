package ir

import "time"

// Outcome classifies a recorded engine operation.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeCleared   Outcome = "cleared"
)

// Attempt is the journal record of one merge or clear (store-layer).
// It is an audit record: graph state is never rebuilt from it.
type Attempt struct {
	ID           string       `json:"id"`  // UUIDv7
	Seq          int64        `json:"seq"` // Logical clock
	Source       string       `json:"source,omitempty"`
	DocumentHash string       `json:"document_hash,omitempty"`
	Outcome      Outcome      `json:"outcome"`
	ErrorCode    string       `json:"error_code,omitempty"`
	Subject      Identifier   `json:"subject,omitempty"` // Violating subject for cycle rejections
	Cycle        []Identifier `json:"cycle,omitempty"`
	NodesTotal   int          `json:"nodes_total"`
	EdgesTotal   int          `json:"edges_total"`
	NodesChanged int          `json:"nodes_changed"`
	RecordedAt   time.Time    `json:"recorded_at"`
}
