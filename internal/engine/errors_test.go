package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/sbomgraph/internal/ir"
)

func TestMergeError_Error(t *testing.T) {
	err := NewCircularDependencyError("b.json", []ir.Identifier{"pkg:b", "pkg:a", "pkg:b"})

	assert.Equal(t, "CIRCULAR_DEPENDENCY: circular dependency detected: pkg:b → pkg:a → pkg:b (source=b.json)", err.Error())
	assert.Equal(t, ir.Identifier("pkg:b"), err.Subject)

	malformed := NewMalformedDocumentError("", "dependencies[0].ref", "dependency entry has no subject")
	assert.Equal(t, "MALFORMED_DOCUMENT: dependency entry has no subject (field=dependencies[0].ref)", malformed.Error())
}

// TestIsHelpers_Wrapped tests that the predicates see through wrapping.
func TestIsHelpers_Wrapped(t *testing.T) {
	circular := fmt.Errorf("load a.json: %w", NewCircularDependencyError("a.json", []ir.Identifier{"a", "a"}))
	malformed := fmt.Errorf("load b.json: %w", NewMalformedDocumentError("b.json", "components[0]", "x"))

	assert.True(t, IsCircularDependency(circular))
	assert.False(t, IsMalformedDocument(circular))
	assert.True(t, IsMalformedDocument(malformed))
	assert.False(t, IsCircularDependency(malformed))
	assert.False(t, IsCircularDependency(fmt.Errorf("plain")))
}

func TestCheckShape(t *testing.T) {
	tests := []struct {
		name  string
		doc   *ir.Document
		field string
	}{
		{"nil document", nil, "document"},
		{"empty component", &ir.Document{Components: []ir.Identifier{"a", ""}}, "components[1]"},
		{"missing subject", &ir.Document{Dependencies: []ir.Dependency{{DependsOn: []ir.Identifier{"a"}}}}, "dependencies[0].ref"},
		{"empty target", &ir.Document{Dependencies: []ir.Dependency{{Ref: "a"}, {Ref: "b", DependsOn: []ir.Identifier{"c", ""}}}}, "dependencies[1].dependsOn[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merr := checkShape(tt.doc)
			if assert.NotNil(t, merr) {
				assert.Equal(t, ErrCodeMalformedDocument, merr.Code)
				assert.Equal(t, tt.field, merr.Field)
			}
		})
	}

	assert.Nil(t, checkShape(&ir.Document{}), "empty document is valid")
}
