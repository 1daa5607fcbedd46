// Package depstore holds the accumulated dependency graph state.
//
// A Store is an owned value: all mutation goes through Commit and Clear.
// It is not safe for concurrent use; the engine serializes access.
package depstore

import "github.com/roach88/sbomgraph/internal/ir"

// Store holds the current dependency map and the declared component records.
type Store struct {
	deps       *ir.DependencyMap
	components map[ir.Identifier]ir.ComponentRecord
	order      []ir.Identifier
}

// New creates an empty store.
func New() *Store {
	return &Store{
		deps:       ir.NewDependencyMap(),
		components: make(map[ir.Identifier]ir.ComponentRecord),
	}
}

// CurrentMap returns a deep copy of the dependency map. Callers may modify
// the copy freely.
func (s *Store) CurrentMap() *ir.DependencyMap {
	return s.deps.Clone()
}

// Commit replaces the dependency map with next and upserts records.
//
// IsRoot is merged with logical OR: an existing root is never downgraded.
// Labels are always derived from the identifier. Commit returns the
// identifiers that were not known before, in first-seen order.
func (s *Store) Commit(next *ir.DependencyMap, records []ir.ComponentRecord) []ir.Identifier {
	inserted := []ir.Identifier{}
	for _, rec := range records {
		existing, ok := s.components[rec.ID]
		if !ok {
			s.order = append(s.order, rec.ID)
			inserted = append(inserted, rec.ID)
		}
		s.components[rec.ID] = ir.ComponentRecord{
			ID:     rec.ID,
			Label:  rec.ID.Label(),
			IsRoot: existing.IsRoot || rec.IsRoot,
		}
	}
	s.deps = next.Clone()
	return inserted
}

// Clear discards the dependency map and every component record.
func (s *Store) Clear() {
	s.deps = ir.NewDependencyMap()
	s.components = make(map[ir.Identifier]ir.ComponentRecord)
	s.order = nil
}

// Component returns the record for id.
func (s *Store) Component(id ir.Identifier) (ir.ComponentRecord, bool) {
	rec, ok := s.components[id]
	return rec, ok
}

// Components returns all records in first-declared order.
func (s *Store) Components() []ir.ComponentRecord {
	out := make([]ir.ComponentRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.components[id])
	}
	return out
}

// Len returns the number of component records.
func (s *Store) Len() int {
	return len(s.order)
}

// Outgoing returns the dependency list declared for id.
func (s *Store) Outgoing(id ir.Identifier) []ir.Identifier {
	targets, _ := s.deps.Get(id)
	return targets
}

// DependedOn returns the set of identifiers that some subject lists as a
// dependency.
func (s *Store) DependedOn() map[ir.Identifier]bool {
	return s.deps.Targets()
}

// Edges returns the full edge set of the current map.
func (s *Store) Edges() []ir.Edge {
	return s.deps.Edges()
}
