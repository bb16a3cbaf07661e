// Package errors provides typed errors for the application
package errors

// baseError is the base implementation for all error types
type baseError struct {
	msg string
}

func (e *baseError) Error() string {
	return e.msg
}

// NotFoundError represents a missing resource or capability
type NotFoundError struct {
	baseError
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(msg string) *NotFoundError {
	return &NotFoundError{baseError{msg: msg}}
}

// ConflictError represents an operation rejected because of current state
type ConflictError struct {
	baseError
}

// NewConflictError creates a new ConflictError
func NewConflictError(msg string) *ConflictError {
	return &ConflictError{baseError{msg: msg}}
}

// InternalError represents an internal failure
type InternalError struct {
	baseError
}

// NewInternalError creates a new InternalError
func NewInternalError(msg string) *InternalError {
	return &InternalError{baseError{msg: msg}}
}
