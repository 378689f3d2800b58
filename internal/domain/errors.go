package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds used to classify domain failures at the HTTP boundary.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("conflict")
	ErrDataIntegrity = errors.New("data integrity violation")
	ErrTransient     = errors.New("transient failure")
)

// DomainError carries a classified domain failure with a caller-safe message.
type DomainError struct {
	Err     error
	Message string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

// Unwrap exposes the sentinel kind for errors.Is.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a not-found error for a resource.
func NewNotFoundError(resource, id string) *DomainError {
	return &DomainError{Err: ErrNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

// NewInvalidStateError creates a business-rule violation error.
func NewInvalidStateError(message string) *DomainError {
	return &DomainError{Err: ErrInvalidState, Message: message}
}

// NewValidationError creates an input validation error.
func NewValidationError(message string) *DomainError {
	return &DomainError{Err: ErrValidation, Message: message}
}

// NewConflictError creates a concurrent modification error.
func NewConflictError(message string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: message}
}

// NewDataIntegrityError creates an error for rows that violate the model's
// closed enumerations or invariants.
func NewDataIntegrityError(message string) *DomainError {
	return &DomainError{Err: ErrDataIntegrity, Message: message}
}

// NewTransientError wraps a datastore connectivity or commit failure that is
// safe for the caller to retry.
func NewTransientError(err error) *DomainError {
	return &DomainError{Err: ErrTransient, Message: err.Error()}
}

// IsKind reports whether err is a DomainError of the given sentinel kind.
func IsKind(err, kind error) bool {
	return errors.Is(err, kind)
}
