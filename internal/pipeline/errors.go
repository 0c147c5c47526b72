package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline operations.
var (
	// ErrNotFound means no record exists for the requested document ID.
	ErrNotFound = errors.New("document not found")

	// ErrConflict means a stage write lost a race: the record's status moved
	// past the stage's expected predecessor between read and write. Safe to
	// retry the status query and re-drive from there.
	ErrConflict = errors.New("document was updated concurrently")
)

// ValidationError reports bad or missing request input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with a formatted message.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// PreconditionError reports a stage invoked before its upstream dependency
// completed. Distinct from CollaboratorError so callers can tell an
// out-of-order invocation from a real infrastructure failure.
type PreconditionError struct {
	Stage   string
	Missing string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s requires %s to have completed first", e.Stage, e.Missing)
}

// CollaboratorError wraps a failure from an external collaborator (object
// store, extraction engine, or language model), including timeouts.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
