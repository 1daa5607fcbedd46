package sbom

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/go-playground/validator/v10"
)

// Error codes for document loading.
const (
	ErrCodeRead     = "READ_ERROR"
	ErrCodeParse    = "PARSE_ERROR"
	ErrCodeSchema   = "SCHEMA_VIOLATION"
	ErrCodeInvalid  = "INVALID_DOCUMENT"
	ErrCodeManifest = "MANIFEST_ERROR"
)

// LoadError reports a document that never reached the engine.
type LoadError struct {
	Code    string
	Source  string
	Field   string // Namespaced field for validation failures
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Source != "" {
		return fmt.Sprintf("%s: %s: %s", e.Source, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError returns the *LoadError in err's chain, if any.
func IsLoadError(err error) (*LoadError, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// fromCUE converts the first CUE error to a LoadError with its position.
func fromCUE(code, source string, err error) *LoadError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Source: source, Message: err.Error()}
	}

	first := errs[0]
	le := &LoadError{
		Code:    code,
		Source:  source,
		Message: first.Error(),
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

// fromValidator converts the first validation failure to a LoadError.
func fromValidator(source string, err error) *LoadError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &LoadError{Code: ErrCodeInvalid, Source: source, Message: err.Error()}
	}

	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", fe.Field())
	case "identity":
		msg = "component has none of id, purl, bom-ref"
	default:
		msg = fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
	return &LoadError{Code: ErrCodeInvalid, Source: source, Field: fe.Namespace(), Message: msg}
}
