package depstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sbomgraph/internal/ir"
)

func mapOf(subject ir.Identifier, targets ...ir.Identifier) *ir.DependencyMap {
	m := ir.NewDependencyMap()
	m.Set(subject, targets)
	return m
}

// TestNew_Empty tests that a new store has no state.
func TestNew_Empty(t *testing.T) {
	s := New()

	assert.Equal(t, 0, s.CurrentMap().Len())
	assert.Empty(t, s.Components())
	assert.Empty(t, s.Edges())
	assert.Equal(t, 0, s.Len())
}

// TestCommit_ReplacesMapAndInsertsRecords tests a basic commit.
func TestCommit_ReplacesMapAndInsertsRecords(t *testing.T) {
	s := New()

	inserted := s.Commit(mapOf("pkg:a@1", "pkg:b@1"), []ir.ComponentRecord{
		ir.NewComponentRecord("pkg:a@1", false),
		ir.NewComponentRecord("pkg:b@1", false),
	})

	assert.Equal(t, []ir.Identifier{"pkg:a@1", "pkg:b@1"}, inserted)
	assert.Equal(t, []ir.Edge{{Source: "pkg:a@1", Target: "pkg:b@1"}}, s.Edges())

	rec, ok := s.Component("pkg:a@1")
	require.True(t, ok)
	assert.Equal(t, "pkg:a", rec.Label)
}

// TestCommit_RootIsMonotonic tests that a later non-root declaration never
// clears an existing root flag.
func TestCommit_RootIsMonotonic(t *testing.T) {
	s := New()
	s.Commit(ir.NewDependencyMap(), []ir.ComponentRecord{ir.NewComponentRecord("app", true)})

	inserted := s.Commit(ir.NewDependencyMap(), []ir.ComponentRecord{ir.NewComponentRecord("app", false)})

	assert.Empty(t, inserted, "known id is not reinserted")
	rec, _ := s.Component("app")
	assert.True(t, rec.IsRoot)
}

// TestCommit_PromotesToRoot tests that a later root declaration upgrades a record.
func TestCommit_PromotesToRoot(t *testing.T) {
	s := New()
	s.Commit(ir.NewDependencyMap(), []ir.ComponentRecord{ir.NewComponentRecord("lib", false)})
	s.Commit(ir.NewDependencyMap(), []ir.ComponentRecord{ir.NewComponentRecord("lib", true)})

	rec, _ := s.Component("lib")
	assert.True(t, rec.IsRoot)
}

// TestCommit_DuplicateRecordsInOneBatch tests upsert within one commit.
func TestCommit_DuplicateRecordsInOneBatch(t *testing.T) {
	s := New()

	inserted := s.Commit(ir.NewDependencyMap(), []ir.ComponentRecord{
		ir.NewComponentRecord("app", true),
		ir.NewComponentRecord("app", false),
	})

	assert.Equal(t, []ir.Identifier{"app"}, inserted)
	assert.Equal(t, 1, s.Len())
	rec, _ := s.Component("app")
	assert.True(t, rec.IsRoot)
}

// TestCurrentMap_IsACopy tests that callers cannot mutate store state.
func TestCurrentMap_IsACopy(t *testing.T) {
	s := New()
	next := mapOf("a", "b")
	s.Commit(next, nil)

	next.Set("a", []ir.Identifier{"z"})
	snapshot := s.CurrentMap()
	snapshot.Set("c", nil)

	got, _ := s.CurrentMap().Get("a")
	assert.Equal(t, []ir.Identifier{"b"}, got)
	assert.False(t, s.CurrentMap().Has("c"))
}

// TestClear_DiscardsEverything tests that clear resets both map and records.
func TestClear_DiscardsEverything(t *testing.T) {
	s := New()
	s.Commit(mapOf("a", "b"), []ir.ComponentRecord{ir.NewComponentRecord("a", true)})

	s.Clear()

	assert.Equal(t, 0, s.CurrentMap().Len())
	assert.Empty(t, s.Components())
	_, ok := s.Component("a")
	assert.False(t, ok)

	// A cleared root is gone; redeclaring as non-root starts fresh.
	s.Commit(ir.NewDependencyMap(), []ir.ComponentRecord{ir.NewComponentRecord("a", false)})
	rec, _ := s.Component("a")
	assert.False(t, rec.IsRoot)
}

// TestDependedOn tests the incoming-edge set.
func TestDependedOn(t *testing.T) {
	s := New()
	m := ir.NewDependencyMap()
	m.Set("a", []ir.Identifier{"b", "c"})
	m.Set("b", []ir.Identifier{"c"})
	s.Commit(m, nil)

	assert.Equal(t, map[ir.Identifier]bool{"b": true, "c": true}, s.DependedOn())
	assert.Equal(t, []ir.Identifier{"c"}, s.Outgoing("b"))
	assert.Empty(t, s.Outgoing("c"))
}
