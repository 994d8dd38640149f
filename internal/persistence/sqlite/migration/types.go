package migration

import (
	"context"
	"time"
)

// Migration represents a database migration with its metadata and SQL content
type Migration struct {
	Version     string // Version identifier (e.g., "001", "002")
	Description string // Human-readable description of the migration
	SQL         string // SQL statements to execute
	FilePath    string // Path of the migration inside its file system
	Checksum    string // SHA256 of the SQL content
}

// AppliedMigration represents a migration that has been successfully applied
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status provides information about the current migration state
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}

// Scanner discovers migration files.
type Scanner interface {
	Scan() ([]Migration, error)
}

// Executor handles the actual execution of migrations against the database
type Executor interface {
	// InitializeVersionTable creates the schema_migrations table if it doesn't exist
	InitializeVersionTable(ctx context.Context) error

	// ExecuteMigration runs a single migration and records it within one transaction
	ExecuteMigration(ctx context.Context, migration Migration) error

	// AppliedMigrations returns all applied migration versions ordered by version
	AppliedMigrations(ctx context.Context) ([]AppliedMigration, error)
}
