// Package cycle detects directed cycles in dependency maps.
//
// All traversals use explicit work stacks so adversarially deep graphs
// cannot exhaust the goroutine stack.
package cycle

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sbomgraph/internal/ir"
)

// Scope selects which edges a merge is validated against.
type Scope string

const (
	// ScopeGlobal validates the whole tentative map (existing + incoming).
	// A cycle anywhere rejects the merge.
	ScopeGlobal Scope = "global"

	// ScopeDocument validates only the edges declared by the incoming
	// document. Cycles formed against previously merged data are not seen.
	ScopeDocument Scope = "document"
)

// ParseScope converts a config string to a Scope. Empty means ScopeGlobal.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeDocument:
		return ScopeDocument, nil
	default:
		return "", fmt.Errorf("invalid validation scope %q (want global or document)", s)
	}
}

const (
	white = iota
	gray
	black
)

type frame struct {
	node    ir.Identifier
	targets []ir.Identifier
	next    int
}

func newFrame(m *ir.DependencyMap, node ir.Identifier) frame {
	targets, _ := m.Get(node)
	return frame{node: node, targets: targets}
}

// HasCycle reports whether m, read as key → each list entry, contains a
// directed cycle. A node listed as its own dependency is a cycle.
func HasCycle(m *ir.DependencyMap) bool {
	return FindCycle(m) != nil
}

// FindCycle returns the first cycle found by a depth-first traversal that
// starts from each key in insertion order. The path closes on itself:
// [a, b, a]; a self loop is [a, a]. Returns nil when m is acyclic.
func FindCycle(m *ir.DependencyMap) []ir.Identifier {
	color := make(map[ir.Identifier]int)

	for _, start := range m.Keys() {
		if color[start] != white {
			continue
		}

		color[start] = gray
		stack := []frame{newFrame(m, start)}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(top.targets) {
				color[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}

			w := top.targets[top.next]
			top.next++

			switch color[w] {
			case gray:
				return pathFromStack(stack, w)
			case white:
				color[w] = gray
				stack = append(stack, newFrame(m, w))
			}
		}
	}

	return nil
}

// pathFromStack extracts the cycle closed by an edge into w, which is gray
// and therefore on the stack.
func pathFromStack(stack []frame, w ir.Identifier) []ir.Identifier {
	i := slices.IndexFunc(stack, func(f frame) bool { return f.node == w })
	path := make([]ir.Identifier, 0, len(stack)-i+1)
	for _, f := range stack[i:] {
		path = append(path, f.node)
	}
	return append(path, w)
}

// Check validates a merge under scope. tentative is the overlaid map,
// local the incoming document's own map. It returns the offending cycle
// path, or nil if the merge may commit.
func Check(scope Scope, tentative, local *ir.DependencyMap) []ir.Identifier {
	if scope == ScopeDocument {
		return FindCycle(local)
	}
	return FindCycle(tentative)
}
