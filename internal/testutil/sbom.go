// Package testutil holds builders and fakes shared by package tests.
package testutil

import (
	"context"
	"sync"

	"github.com/roach88/sbomgraph/internal/ir"
)

// IDs converts strings to identifiers.
func IDs(ids ...string) []ir.Identifier {
	out := make([]ir.Identifier, len(ids))
	for i, id := range ids {
		out[i] = ir.Identifier(id)
	}
	return out
}

// Dep builds one dependency declaration.
func Dep(ref string, dependsOn ...string) ir.Dependency {
	return ir.Dependency{Ref: ir.Identifier(ref), DependsOn: IDs(dependsOn...)}
}

// Doc builds a document with no root.
//
// Example (Scenario A shape):
//
//	testutil.Doc([]string{"pkg:a", "pkg:b"}, testutil.Dep("pkg:a", "pkg:b"))
func Doc(components []string, deps ...ir.Dependency) *ir.Document {
	return &ir.Document{Components: IDs(components...), Dependencies: deps}
}

// RootDoc builds a document declaring root as its primary subject.
func RootDoc(root string, components []string, deps ...ir.Dependency) *ir.Document {
	d := Doc(components, deps...)
	d.Root = ir.Identifier(root)
	return d
}

// RecordingSink captures every delta batch the engine emits.
type RecordingSink struct {
	mu     sync.Mutex
	Deltas []*ir.Delta
}

// Apply implements engine.Sink.
func (s *RecordingSink) Apply(d *ir.Delta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deltas = append(s.Deltas, d)
}

// Len returns the number of batches received.
func (s *RecordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Deltas)
}

// Last returns the most recent batch, or nil.
func (s *RecordingSink) Last() *ir.Delta {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Deltas) == 0 {
		return nil
	}
	return s.Deltas[len(s.Deltas)-1]
}

// MemoryRecorder keeps attempt records in memory.
// Set Err to make every Record call fail.
type MemoryRecorder struct {
	mu       sync.Mutex
	Attempts []ir.Attempt
	Err      error
}

// Record implements engine.Recorder.
func (r *MemoryRecorder) Record(_ context.Context, a ir.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Attempts = append(r.Attempts, a)
	return nil
}
