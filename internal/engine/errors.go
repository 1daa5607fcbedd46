package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/sbomgraph/internal/ir"
)

// MergeError is returned when a merge is rejected.
//
// A rejected merge never mutates engine state; the error is always
// recoverable and the caller may retry with a corrected document.
type MergeError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Source is the document's origin, when the loader supplied one.
	Source string

	// Subject is the violating subject of a cycle: the first node of Cycle.
	Subject ir.Identifier

	// Cycle is the offending path, closing on itself: [a, b, a].
	Cycle []ir.Identifier

	// Field locates the malformed entry, e.g. "dependencies[2].ref".
	Field string
}

// ErrorCode categorizes merge errors.
type ErrorCode string

const (
	// ErrCodeCircularDependency indicates the merge would introduce a cycle.
	ErrCodeCircularDependency ErrorCode = "CIRCULAR_DEPENDENCY"

	// ErrCodeMalformedDocument indicates the document reached the engine with
	// an unexpected shape.
	ErrCodeMalformedDocument ErrorCode = "MALFORMED_DOCUMENT"
)

// Error implements the error interface.
func (e *MergeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	switch {
	case e.Source != "" && e.Field != "":
		fmt.Fprintf(&b, " (source=%s, field=%s)", e.Source, e.Field)
	case e.Source != "":
		fmt.Fprintf(&b, " (source=%s)", e.Source)
	case e.Field != "":
		fmt.Fprintf(&b, " (field=%s)", e.Field)
	}
	return b.String()
}

// IsCircularDependency returns true if the error is a cycle rejection.
// Uses errors.As to handle wrapped errors.
func IsCircularDependency(err error) bool {
	var me *MergeError
	if errors.As(err, &me) {
		return me.Code == ErrCodeCircularDependency
	}
	return false
}

// IsMalformedDocument returns true if the error is a shape rejection.
// Uses errors.As to handle wrapped errors.
func IsMalformedDocument(err error) bool {
	var me *MergeError
	if errors.As(err, &me) {
		return me.Code == ErrCodeMalformedDocument
	}
	return false
}

// NewCircularDependencyError creates a MergeError for a detected cycle.
func NewCircularDependencyError(source string, path []ir.Identifier) *MergeError {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = string(id)
	}
	var subject ir.Identifier
	if len(path) > 0 {
		subject = path[0]
	}
	return &MergeError{
		Code:    ErrCodeCircularDependency,
		Message: fmt.Sprintf("circular dependency detected: %s", strings.Join(parts, " → ")),
		Source:  source,
		Subject: subject,
		Cycle:   append([]ir.Identifier{}, path...),
	}
}

// NewMalformedDocumentError creates a MergeError for a shape violation.
func NewMalformedDocumentError(source, field, message string) *MergeError {
	return &MergeError{
		Code:    ErrCodeMalformedDocument,
		Message: message,
		Source:  source,
		Field:   field,
	}
}

// checkShape rejects documents the loader should never have produced.
// It runs before any state is read, so a failure leaves nothing to undo.
func checkShape(doc *ir.Document) *MergeError {
	if doc == nil {
		return NewMalformedDocumentError("", "document", "document is nil")
	}
	for i, id := range doc.Components {
		if id == "" {
			return NewMalformedDocumentError(doc.Source, fmt.Sprintf("components[%d]", i), "component has no identifier")
		}
	}
	for i, dep := range doc.Dependencies {
		if dep.Ref == "" {
			return NewMalformedDocumentError(doc.Source, fmt.Sprintf("dependencies[%d].ref", i), "dependency entry has no subject")
		}
		for j, target := range dep.DependsOn {
			if target == "" {
				return NewMalformedDocumentError(doc.Source,
					fmt.Sprintf("dependencies[%d].dependsOn[%d]", i, j),
					fmt.Sprintf("empty dependency target for %s", dep.Ref))
			}
		}
	}
	return nil
}
