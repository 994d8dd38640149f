package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConstraintViolation is returned when a CHECK or NOT NULL constraint rejects a row.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKey is returned when a row references a missing parent or a
	// parent is still referenced.
	ErrForeignKey = errors.New("persistence: foreign key violation")
	// ErrBusy is returned when the database stayed locked past the busy timeout.
	ErrBusy = errors.New("persistence: database busy")
)
