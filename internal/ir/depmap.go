package ir

// DependencyMap is an ordered mapping from subject identifier to its
// dependency list.
//
// Keys keep first-insertion order. Replacing an existing key's list keeps
// the key at its original position. Values are owned by the map: Set and
// Append copy their arguments and Get returns a copy.
type DependencyMap struct {
	keys []Identifier
	deps map[Identifier][]Identifier
}

// NewDependencyMap returns an empty map.
func NewDependencyMap() *DependencyMap {
	return &DependencyMap{deps: make(map[Identifier][]Identifier)}
}

// Len returns the number of subjects in the map.
func (m *DependencyMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Has reports whether subject has an entry.
func (m *DependencyMap) Has(subject Identifier) bool {
	if m == nil {
		return false
	}
	_, ok := m.deps[subject]
	return ok
}

// Get returns a copy of subject's list and whether the entry exists.
func (m *DependencyMap) Get(subject Identifier) ([]Identifier, bool) {
	if m == nil {
		return nil, false
	}
	list, ok := m.deps[subject]
	if !ok {
		return nil, false
	}
	return append([]Identifier{}, list...), true
}

// Set replaces subject's list. A new subject is appended to the key order.
func (m *DependencyMap) Set(subject Identifier, targets []Identifier) {
	if _, ok := m.deps[subject]; !ok {
		m.keys = append(m.keys, subject)
	}
	m.deps[subject] = append([]Identifier{}, targets...)
}

// Append concatenates targets onto subject's list, creating the entry if
// needed. Appending nothing still creates an empty entry.
func (m *DependencyMap) Append(subject Identifier, targets ...Identifier) {
	existing, ok := m.deps[subject]
	if !ok {
		m.keys = append(m.keys, subject)
		existing = []Identifier{}
	}
	m.deps[subject] = append(existing, targets...)
}

// Keys returns the subjects in insertion order.
func (m *DependencyMap) Keys() []Identifier {
	if m == nil {
		return []Identifier{}
	}
	return append([]Identifier{}, m.keys...)
}

// Range calls fn for each subject in insertion order. The list passed to fn
// must not be modified. Iteration stops when fn returns false.
func (m *DependencyMap) Range(fn func(subject Identifier, targets []Identifier) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.deps[k]) {
			return
		}
	}
}

// Clone returns a deep copy.
func (m *DependencyMap) Clone() *DependencyMap {
	out := NewDependencyMap()
	m.Range(func(subject Identifier, targets []Identifier) bool {
		out.Set(subject, targets)
		return true
	})
	return out
}

// Overlay returns a copy of m in which each subject present in other has its
// list replaced wholesale by other's list. Subjects absent from other keep
// their lists. m and other are not modified.
func (m *DependencyMap) Overlay(other *DependencyMap) *DependencyMap {
	out := m.Clone()
	other.Range(func(subject Identifier, targets []Identifier) bool {
		out.Set(subject, targets)
		return true
	})
	return out
}

// Edges flattens the map into (source, target) pairs: subjects in insertion
// order, targets in list order. Duplicate targets yield duplicate edges.
func (m *DependencyMap) Edges() []Edge {
	edges := []Edge{}
	m.Range(func(subject Identifier, targets []Identifier) bool {
		for _, t := range targets {
			edges = append(edges, Edge{Source: subject, Target: t})
		}
		return true
	})
	return edges
}

// Targets returns the set of identifiers that appear in any list.
func (m *DependencyMap) Targets() map[Identifier]bool {
	out := make(map[Identifier]bool)
	m.Range(func(_ Identifier, targets []Identifier) bool {
		for _, t := range targets {
			out[t] = true
		}
		return true
	})
	return out
}

// ToMap returns the entries as a plain map, for serialization.
func (m *DependencyMap) ToMap() map[string][]string {
	out := make(map[string][]string, m.Len())
	m.Range(func(subject Identifier, targets []Identifier) bool {
		list := make([]string, len(targets))
		for i, t := range targets {
			list[i] = string(t)
		}
		out[string(subject)] = list
		return true
	})
	return out
}
