package ir

// NodeDelta describes one node change emitted after a merge.
//
// Insert is true for nodes first seen in this merge; the consumer should
// create them with Label. Otherwise the delta is a role update for an
// existing node.
type NodeDelta struct {
	ID     Identifier `json:"id"`
	Label  string     `json:"label,omitempty"`
	Role   Role       `json:"role"`
	Insert bool       `json:"insert"`
}

// Edge is a directed dependency edge. Target may be dangling: it need not be
// a declared component.
type Edge struct {
	Source Identifier `json:"source"`
	Target Identifier `json:"target"`
}

// DeltaKind discriminates delta batches.
type DeltaKind string

const (
	// DeltaMerge is the batch emitted after a successful merge.
	DeltaMerge DeltaKind = "merge"

	// DeltaReset is emitted after Clear; the consumer drops everything.
	DeltaReset DeltaKind = "reset"
)

// Delta is the change batch handed to the presentation consumer.
//
// For a merge batch, Nodes lists only changed nodes while Edges is the
// complete edge set derived from the whole dependency map. The consumer
// replaces its edges wholesale.
type Delta struct {
	Kind   DeltaKind   `json:"kind"`
	Seq    int64       `json:"seq"`
	Source string      `json:"source,omitempty"`
	Nodes  []NodeDelta `json:"nodes"`
	Edges  []Edge      `json:"edges"`
}

// Node is a node as it appears in a full snapshot.
type Node struct {
	ID    Identifier `json:"id"`
	Label string     `json:"label"`
	Role  Role       `json:"role"`
}

// Graph is a full snapshot of the merged graph.
type Graph struct {
	Seq   int64  `json:"seq"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}
