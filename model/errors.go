package model

import "fmt"

// ValidationError rejects a submission before any job is created.
// It is surfaced synchronously as a 400 and never appears inside a Result.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with a formatted message
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// LoadError kinds
const (
	LoadFetchFailed     = "FETCH_FAILED"
	LoadEmptyContent    = "EMPTY_CONTENT"
	LoadInvalidDocument = "INVALID_DOCUMENT"
	LoadTooLarge        = "TOO_LARGE"
)

// LoadError means a source could not be resolved to content. It is captured
// as an ERROR result for every task depending on that source and never
// aborts sibling tasks.
type LoadError struct {
	Kind    string
	Source  string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Source)
}
