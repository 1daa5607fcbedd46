package ir

import "strings"

// Identifier is the globally unique key of a software component.
// In practice it is a package URL (purl), but the engine treats it as opaque.
type Identifier string

// String returns the identifier as a plain string.
func (id Identifier) String() string {
	return string(id)
}

// Label returns the human label for the identifier: the portion before the
// version separator.
//
// The separator is the last '@' that precedes any '?' qualifiers or '#'
// subpath, so scoped names keep their leading '@':
//
//	pkg:npm/lodash@4.17.21         → pkg:npm/lodash
//	pkg:npm/@angular/core@17.0.0   → pkg:npm/@angular/core
//	pkg:a                          → pkg:a
func (id Identifier) Label() string {
	s := string(id)
	end := len(s)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		end = i
	}
	at := strings.LastIndexByte(s[:end], '@')
	if at <= 0 {
		return s
	}
	// "pkg:npm/@scope/name" has no version; the '@' opens the scope.
	if s[at-1] == '/' {
		return s
	}
	return s[:at]
}

// Role is the derived structural role of a node.
type Role string

const (
	// RoleRoot marks an identifier declared as a document's primary subject.
	RoleRoot Role = "root"

	// RoleConnected marks a node with outgoing edges, incoming edges, or both.
	RoleConnected Role = "connected"

	// RoleIsolated marks a non-root node with no edges in either direction.
	RoleIsolated Role = "isolated"
)

// ValidRoles defines the allowed role values.
var ValidRoles = map[Role]bool{
	RoleRoot:      true,
	RoleConnected: true,
	RoleIsolated:  true,
}

// ComponentRecord is the stored record for a declared component.
// IsRoot is monotonic: once true it is never cleared by later merges.
type ComponentRecord struct {
	ID     Identifier `json:"id"`
	Label  string     `json:"label"`
	IsRoot bool       `json:"is_root"`
}

// NewComponentRecord builds a record with the label derived from id.
func NewComponentRecord(id Identifier, isRoot bool) ComponentRecord {
	return ComponentRecord{ID: id, Label: id.Label(), IsRoot: isRoot}
}

// Dependency is a single dependency declaration from a document:
// Ref depends on every entry of DependsOn, in declaration order.
type Dependency struct {
	Ref       Identifier   `json:"ref"`
	DependsOn []Identifier `json:"depends_on,omitempty"`
}

// Document is a parsed SBOM document handed to the engine by a loader.
//
// All collection fields are optional. Root is empty when the document
// declares no primary subject component.
type Document struct {
	Source       string       `json:"source,omitempty"`
	Root         Identifier   `json:"root,omitempty"`
	Components   []Identifier `json:"components,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// LocalMap builds the document-local dependency map.
// Duplicate subjects are combined by concatenating their lists in
// declaration order.
func (d *Document) LocalMap() *DependencyMap {
	m := NewDependencyMap()
	for _, dep := range d.Dependencies {
		m.Append(dep.Ref, dep.DependsOn...)
	}
	return m
}

// Records returns the component records declared by the document:
// the root first (flagged IsRoot), then the listed components in order.
// Duplicates are kept; the store upserts them.
func (d *Document) Records() []ComponentRecord {
	records := make([]ComponentRecord, 0, len(d.Components)+1)
	if d.Root != "" {
		records = append(records, NewComponentRecord(d.Root, true))
	}
	for _, id := range d.Components {
		records = append(records, NewComponentRecord(id, false))
	}
	return records
}
