package migration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMigrationFailed      = errors.New("migration: execution failed")
	ErrInvalidMigrationFile = errors.New("migration: invalid file")
	ErrDuplicateVersion     = errors.New("migration: duplicate version")
	// ErrVersionConflict reports an applied version missing from the embedded files.
	ErrVersionConflict = errors.New("migration: version conflict")
	// ErrChecksumMismatch reports an embedded file edited after it was applied.
	ErrChecksumMismatch = errors.New("migration: checksum mismatch")
)

// Error carries the version, file and step a migration failure happened in.
// File is empty for failures raised by the database rather than a file.
type Error struct {
	Version string
	File    string
	Step    string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("migration")
	if e.Version != "" {
		b.WriteString(" " + e.Version)
	}
	if e.File != "" {
		fmt.Fprintf(&b, " (%s)", e.File)
	} else {
		b.WriteString(" database")
	}
	fmt.Fprintf(&b, ": %s: %v", e.Step, e.Err)
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NewMigrationError reports a failure tied to a migration file.
func NewMigrationError(version, file, step string, err error) *Error {
	return &Error{Version: version, File: file, Step: step, Err: err}
}

// NewDatabaseError reports a failure of the database while migrating.
func NewDatabaseError(version, step string, err error) *Error {
	return &Error{Version: version, Step: step, Err: err}
}
