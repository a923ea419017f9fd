package model

import "fmt"

// ErrorKind is one of the five error kinds that propagate through the core (§7).
type ErrorKind string

const (
	ErrValidation ErrorKind = "validation_error"
	ErrNotFound   ErrorKind = "not_found"
	ErrConflict   ErrorKind = "conflict"
	ErrDependency ErrorKind = "dependency"
	ErrInternal   ErrorKind = "internal"
)

// CoreError is the error type every fallible core operation returns.
type CoreError struct {
	Kind    ErrorKind
	Message string
	Path    string
	Code    string
	Wrapped error
}

func (e *CoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Kind, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Wrapped }

// NewError builds a CoreError of the given kind.
func NewError(kind ErrorKind, format string, args ...interface{}) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithPath attaches a field path (used by ValidationError).
func (e *CoreError) WithPath(path string) *CoreError {
	e.Path = path
	return e
}

// WithCode attaches a machine-readable code.
func (e *CoreError) WithCode(code string) *CoreError {
	e.Code = code
	return e
}

// Wrap builds a CoreError of the given kind around an underlying error.
func Wrap(kind ErrorKind, err error, format string, args ...interface{}) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// KindOf extracts the ErrorKind from err, defaulting to Internal.
func KindOf(err error) ErrorKind {
	var ce *CoreError
	if err == nil {
		return ""
	}
	if ok := asCoreError(err, &ce); ok {
		return ce.Kind
	}
	return ErrInternal
}

func asCoreError(err error, target **CoreError) bool {
	for err != nil {
		if ce, ok := err.(*CoreError); ok {
			*target = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ValidationResult is the uniform validation outcome (§3).
type ValidationResult struct {
	Valid    bool               `json:"valid"`
	Errors   []ValidationIssue  `json:"errors,omitempty"`
	Warnings []ValidationIssue  `json:"warnings,omitempty"`
}

// ValidationIssue is one entry in a ValidationResult.
type ValidationIssue struct {
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Code    string `json:"code,omitempty"`
}

// AddError appends an error and clears Valid.
func (r *ValidationResult) AddError(message, path, code string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationIssue{Message: message, Path: path, Code: code})
}

// AddWarning appends a warning without affecting Valid.
func (r *ValidationResult) AddWarning(message, path, code string) {
	r.Warnings = append(r.Warnings, ValidationIssue{Message: message, Path: path, Code: code})
}

// NewValidationResult returns a valid, empty result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}
