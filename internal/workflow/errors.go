package workflow

import "errors"

// The four error kinds every workflow operation can return. Handlers
// map them to HTTP statuses in one place; nothing here is retried.
var (
	// ErrPermissionDenied: the actor lacks the capability or role
	// the current stage requires for the action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidState: the subject's state does not admit the
	// action. Always checked before permissions, so a caller acting
	// on a subject in the wrong state never sees a misleading
	// permission error.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound: unknown stage code, rule or subject.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports a missing or malformed mandatory field.
// Checked before permissions as well.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func validation(field, message string) error {
	return NewValidationError(field, message)
}
