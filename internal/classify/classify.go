// Package classify derives node roles and the change batches sent to the
// renderer after each merge.
package classify

import (
	"fmt"
	"strings"

	"github.com/roach88/sbomgraph/internal/depstore"
	"github.com/roach88/sbomgraph/internal/ir"
)

// RoleSet selects how many roles are distinguished.
type RoleSet string

const (
	// RoleSetFull distinguishes root, connected and isolated.
	RoleSetFull RoleSet = "full"

	// RoleSetCompact folds isolated into connected.
	RoleSetCompact RoleSet = "compact"
)

// ParseRoleSet converts a config string to a RoleSet. Empty means RoleSetFull.
func ParseRoleSet(s string) (RoleSet, error) {
	switch RoleSet(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleSetFull:
		return RoleSetFull, nil
	case RoleSetCompact:
		return RoleSetCompact, nil
	default:
		return "", fmt.Errorf("invalid role set %q (want full or compact)", s)
	}
}

// RoleOf computes a node's role.
//
// Root wins over everything, including zero edges. Otherwise a node with no
// outgoing and no incoming edges is isolated, and anything else is connected.
func RoleOf(isRoot, hasOutgoing, dependedOn bool, set RoleSet) ir.Role {
	switch {
	case isRoot:
		return ir.RoleRoot
	case !hasOutgoing && !dependedOn && set != RoleSetCompact:
		return ir.RoleIsolated
	default:
		return ir.RoleConnected
	}
}

// Roles computes the role of every declared component against the store's
// current map.
func Roles(store *depstore.Store, set RoleSet) map[ir.Identifier]ir.Role {
	incoming := store.DependedOn()
	roles := make(map[ir.Identifier]ir.Role, store.Len())
	for _, rec := range store.Components() {
		roles[rec.ID] = RoleOf(rec.IsRoot, len(store.Outgoing(rec.ID)) > 0, incoming[rec.ID], set)
	}
	return roles
}

// Reclassify recomputes every node's role and compares it to prior, the
// roles last emitted to the renderer.
//
// Nodes absent from prior are emitted as inserts carrying their label.
// Known nodes are emitted only when their role changed. Deltas follow
// component declaration order. The returned table replaces prior.
func Reclassify(store *depstore.Store, prior map[ir.Identifier]ir.Role, set RoleSet) ([]ir.NodeDelta, map[ir.Identifier]ir.Role) {
	next := Roles(store, set)

	deltas := []ir.NodeDelta{}
	for _, rec := range store.Components() {
		role := next[rec.ID]
		old, known := prior[rec.ID]
		switch {
		case !known:
			deltas = append(deltas, ir.NodeDelta{ID: rec.ID, Label: rec.Label, Role: role, Insert: true})
		case old != role:
			deltas = append(deltas, ir.NodeDelta{ID: rec.ID, Role: role})
		}
	}

	return deltas, next
}

// Edges returns the full replacement edge batch: subjects in map order,
// targets in list order. Targets need not be declared components.
func Edges(store *depstore.Store) []ir.Edge {
	return store.Edges()
}

// Snapshot builds a full graph view from the store and the current roles.
func Snapshot(store *depstore.Store, roles map[ir.Identifier]ir.Role, seq int64) *ir.Graph {
	nodes := make([]ir.Node, 0, store.Len())
	for _, rec := range store.Components() {
		nodes = append(nodes, ir.Node{ID: rec.ID, Label: rec.Label, Role: roles[rec.ID]})
	}
	return &ir.Graph{Seq: seq, Nodes: nodes, Edges: store.Edges()}
}
