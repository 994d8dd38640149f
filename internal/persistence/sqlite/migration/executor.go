package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteExecutor implements the Executor interface for SQLite databases
type SQLiteExecutor struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteExecutor creates a new SQLite migration executor
func NewSQLiteExecutor(db *sql.DB) *SQLiteExecutor {
	return &SQLiteExecutor{db: db, now: time.Now}
}

// InitializeVersionTable creates the schema_migrations table if it doesn't exist
func (e *SQLiteExecutor) InitializeVersionTable(ctx context.Context) error {
	const createTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT NOT NULL DEFAULT '',
			execution_time_ms INTEGER NOT NULL DEFAULT 0
		)`
	if _, err := e.db.ExecContext(ctx, createTableSQL); err != nil {
		return NewDatabaseError("", "create schema_migrations table", err)
	}
	return nil
}

// ExecuteMigration runs every statement of the migration and records it in the
// same transaction, so a failed migration leaves no trace.
func (e *SQLiteExecutor) ExecuteMigration(ctx context.Context, migration Migration) (err error) {
	statements := splitStatements(migration.SQL)
	if len(statements) == 0 {
		return NewMigrationError(migration.Version, migration.FilePath, "parse SQL",
			fmt.Errorf("%w: no SQL statements", ErrInvalidMigrationFile))
	}

	started := e.now()
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return NewDatabaseError(migration.Version, "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return NewDatabaseError(migration.Version, fmt.Sprintf("execute statement %d", i+1), err)
		}
	}

	finished := e.now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`,
		migration.Version,
		finished.UTC().Format(time.RFC3339Nano),
		migration.Checksum,
		finished.Sub(started).Milliseconds(),
	)
	if err != nil {
		return NewDatabaseError(migration.Version, "record migration", err)
	}

	if err = tx.Commit(); err != nil {
		return NewDatabaseError(migration.Version, "commit transaction", err)
	}
	return nil
}

// AppliedMigrations returns all applied migration versions ordered by version
func (e *SQLiteExecutor) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT version, applied_at, checksum, execution_time_ms FROM schema_migrations ORDER BY version ASC`)
	if err != nil {
		return nil, NewDatabaseError("", "query applied migrations", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			record    AppliedMigration
			appliedAt string
			elapsedMs int64
		)
		if err := rows.Scan(&record.Version, &appliedAt, &record.Checksum, &elapsedMs); err != nil {
			return nil, NewDatabaseError("", "scan applied migration", err)
		}
		record.AppliedAt, err = time.Parse(time.RFC3339Nano, appliedAt)
		if err != nil {
			return nil, NewDatabaseError(record.Version, "parse applied_at", err)
		}
		record.ExecutionTime = time.Duration(elapsedMs) * time.Millisecond
		applied = append(applied, record)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, NewDatabaseError("", "iterate applied migrations", err)
	}
	return applied, nil
}
