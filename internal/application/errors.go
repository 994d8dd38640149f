package application

import (
	"errors"
	"fmt"

	"github.com/example/parish-roster/internal/scheduler"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a resource with the same identity is already stored.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrPersistence wraps store failures. The caller's draft is preserved and the
	// operation may be retried.
	ErrPersistence = errors.New("application: persistence unavailable")
)

// Availability rule violations reported by the scheduler package.
type (
	WindowNotEditableError = scheduler.WindowNotEditableError
	BlockedSlotError       = scheduler.BlockedSlotError
	UnknownTargetError     = scheduler.UnknownTargetError
)

// CapacityExceededError is returned when a commit would push a mass past its
// maximum number of ministers. Nothing is written when it is returned.
type CapacityExceededError struct {
	Target  scheduler.Target
	Current int
	Max     int
	Label   string
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("application: capacity exceeded for %s (%d/%d)", e.Label, e.Current, e.Max)
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func persistenceError(err error) error {
	if err == nil || errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
