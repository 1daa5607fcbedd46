package cycle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/sbomgraph/internal/ir"
)

// Report describes one strongly connected component that forms a cycle.
type Report struct {
	Path    []ir.Identifier `json:"path"`    // Cycle path: ["a", "b", "a"]
	Members []ir.Identifier `json:"members"` // All identifiers in the component, discovery order
	Message string          `json:"message"` // Human-readable description
}

// Analyze reports every cycle in m, not only the first.
//
// The algorithm:
//  1. Tarjan's algorithm finds strongly connected components
//  2. Components with more than one member, or a self loop, are cycles
//  3. A shortest cycle through the first-discovered member becomes the path
//
// Reports are ordered by when their first member was discovered. An acyclic
// map returns an empty list.
func Analyze(m *ir.DependencyMap) []Report {
	t := tarjan(m)

	reports := []Report{}
	for _, scc := range t.sccs {
		if len(scc) == 1 && !hasSelfLoop(m, scc[0]) {
			continue
		}
		reports = append(reports, toReport(m, scc))
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return t.indices[reports[i].Members[0]] < t.indices[reports[j].Members[0]]
	})
	return reports
}

type tarjanState struct {
	index   int
	indices map[ir.Identifier]int
	lowlink map[ir.Identifier]int
	onStack map[ir.Identifier]bool
	stack   []ir.Identifier
	sccs    [][]ir.Identifier
}

// tarjan runs an iterative Tarjan SCC over every key in insertion order.
// Each returned component lists its members in discovery order.
func tarjan(m *ir.DependencyMap) *tarjanState {
	t := &tarjanState{
		indices: make(map[ir.Identifier]int),
		lowlink: make(map[ir.Identifier]int),
		onStack: make(map[ir.Identifier]bool),
	}

	visit := func(v ir.Identifier) {
		t.indices[v] = t.index
		t.lowlink[v] = t.index
		t.index++
		t.stack = append(t.stack, v)
		t.onStack[v] = true
	}

	for _, root := range m.Keys() {
		if _, seen := t.indices[root]; seen {
			continue
		}

		visit(root)
		calls := []frame{newFrame(m, root)}

		for len(calls) > 0 {
			f := &calls[len(calls)-1]

			if f.next < len(f.targets) {
				w := f.targets[f.next]
				f.next++
				if _, seen := t.indices[w]; !seen {
					visit(w)
					calls = append(calls, newFrame(m, w))
				} else if t.onStack[w] {
					t.lowlink[f.node] = min(t.lowlink[f.node], t.indices[w])
				}
				continue
			}

			v := f.node
			calls = calls[:len(calls)-1]

			if t.lowlink[v] == t.indices[v] {
				var scc []ir.Identifier
				for {
					w := t.stack[len(t.stack)-1]
					t.stack = t.stack[:len(t.stack)-1]
					t.onStack[w] = false
					scc = append(scc, w)
					if w == v {
						break
					}
				}
				// Popped in reverse discovery order.
				for i, j := 0, len(scc)-1; i < j; i, j = i+1, j-1 {
					scc[i], scc[j] = scc[j], scc[i]
				}
				t.sccs = append(t.sccs, scc)
			}

			if len(calls) > 0 {
				parent := calls[len(calls)-1].node
				t.lowlink[parent] = min(t.lowlink[parent], t.lowlink[v])
			}
		}
	}

	return t
}

// hasSelfLoop checks if a node lists itself as a dependency.
func hasSelfLoop(m *ir.DependencyMap, node ir.Identifier) bool {
	targets, _ := m.Get(node)
	for _, t := range targets {
		if t == node {
			return true
		}
	}
	return false
}

func toReport(m *ir.DependencyMap, scc []ir.Identifier) Report {
	path := shortestCycle(m, scc)
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = string(id)
	}

	msg := fmt.Sprintf("Circular dependency: %s", strings.Join(parts, " → "))
	if len(scc) == 1 {
		msg = fmt.Sprintf("Self dependency: %s depends on itself", scc[0])
	}

	return Report{Path: path, Members: scc, Message: msg}
}

// shortestCycle finds a shortest cycle through scc[0] using breadth-first
// search restricted to the component. Every member of a strongly connected
// component lies on some cycle, so the search always succeeds.
func shortestCycle(m *ir.DependencyMap, scc []ir.Identifier) []ir.Identifier {
	start := scc[0]
	members := make(map[ir.Identifier]bool, len(scc))
	for _, id := range scc {
		members[id] = true
	}

	parent := map[ir.Identifier]ir.Identifier{}
	queue := []ir.Identifier{start}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		targets, _ := m.Get(u)
		for _, w := range targets {
			if !members[w] {
				continue
			}
			if w == start {
				var rev []ir.Identifier
				for n := u; n != start; n = parent[n] {
					rev = append(rev, n)
				}
				path := []ir.Identifier{start}
				for i := len(rev) - 1; i >= 0; i-- {
					path = append(path, rev[i])
				}
				return append(path, start)
			}
			if _, seen := parent[w]; !seen {
				parent[w] = u
				queue = append(queue, w)
			}
		}
	}

	return []ir.Identifier{start}
}
