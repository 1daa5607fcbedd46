package cycle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sbomgraph/internal/ir"
)

// depMap builds a map from alternating subject/targets pairs, in order.
func depMap(entries ...any) *ir.DependencyMap {
	m := ir.NewDependencyMap()
	for i := 0; i < len(entries); i += 2 {
		var targets []ir.Identifier
		for _, t := range entries[i+1].([]string) {
			targets = append(targets, ir.Identifier(t))
		}
		m.Set(ir.Identifier(entries[i].(string)), targets)
	}
	return m
}

// TestHasCycle_Empty tests that an empty map is acyclic.
func TestHasCycle_Empty(t *testing.T) {
	assert.False(t, HasCycle(ir.NewDependencyMap()))
	assert.Nil(t, FindCycle(ir.NewDependencyMap()))
}

// TestHasCycle_DAG tests a diamond, which revisits a node without cycling.
func TestHasCycle_DAG(t *testing.T) {
	m := depMap(
		"app", []string{"a", "b"},
		"a", []string{"c"},
		"b", []string{"c"},
	)
	assert.False(t, HasCycle(m))
}

// TestHasCycle_DanglingTargets tests that targets without keys are leaves.
func TestHasCycle_DanglingTargets(t *testing.T) {
	m := depMap("a", []string{"x", "y"}, "b", []string{"x"})
	assert.False(t, HasCycle(m))
}

// TestFindCycle_SelfLoop tests detection of a node depending on itself.
func TestFindCycle_SelfLoop(t *testing.T) {
	m := depMap("a", []string{"b"}, "b", []string{"b"})

	path := FindCycle(m)
	assert.Equal(t, []ir.Identifier{"b", "b"}, path)
}

// TestFindCycle_TwoNode tests the Scenario B shape: a → b plus b → a.
func TestFindCycle_TwoNode(t *testing.T) {
	m := depMap("pkg:a", []string{"pkg:b"}, "pkg:b", []string{"pkg:a"})

	path := FindCycle(m)
	assert.Equal(t, []ir.Identifier{"pkg:a", "pkg:b", "pkg:a"}, path)
}

// TestFindCycle_PathStartsAtCycle tests that the path excludes the lead-in.
func TestFindCycle_PathStartsAtCycle(t *testing.T) {
	m := depMap(
		"root", []string{"a"},
		"a", []string{"b"},
		"b", []string{"c"},
		"c", []string{"a"},
	)

	path := FindCycle(m)
	assert.Equal(t, []ir.Identifier{"a", "b", "c", "a"}, path)
}

// TestFindCycle_DeepChain tests that a very long chain does not recurse.
func TestFindCycle_DeepChain(t *testing.T) {
	m := ir.NewDependencyMap()
	const n = 200000
	for i := 0; i < n; i++ {
		m.Set(ir.Identifier(fmt.Sprintf("n%d", i)), []ir.Identifier{ir.Identifier(fmt.Sprintf("n%d", i+1))})
	}
	assert.False(t, HasCycle(m))

	m.Set(ir.Identifier(fmt.Sprintf("n%d", n)), []ir.Identifier{"n0"})
	path := FindCycle(m)
	require.NotNil(t, path)
	assert.Len(t, path, n+2)
	assert.Equal(t, path[0], path[len(path)-1])
}

// TestCheck_Scopes tests that document scope ignores cycles formed against
// previously merged edges.
func TestCheck_Scopes(t *testing.T) {
	existing := depMap("pkg:a", []string{"pkg:b"})
	local := depMap("pkg:b", []string{"pkg:a"})
	tentative := existing.Overlay(local)

	assert.NotNil(t, Check(ScopeGlobal, tentative, local))
	assert.Nil(t, Check(ScopeDocument, tentative, local))
}

// TestCheck_DocumentScopeSelfCycle tests that document scope still rejects
// cycles inside the incoming document.
func TestCheck_DocumentScopeSelfCycle(t *testing.T) {
	local := depMap("x", []string{"y"}, "y", []string{"x"})
	tentative := ir.NewDependencyMap().Overlay(local)

	assert.Equal(t, []ir.Identifier{"x", "y", "x"}, Check(ScopeDocument, tentative, local))
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeGlobal, s)

	s, err = ParseScope(" Document ")
	require.NoError(t, err)
	assert.Equal(t, ScopeDocument, s)

	_, err = ParseScope("partial")
	assert.ErrorContains(t, err, `invalid validation scope "partial"`)
}
