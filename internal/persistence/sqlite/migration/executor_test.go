package migration

import (
	"context"
	"errors"
	"testing"
)

func TestSQLiteExecutor_InitializeVersionTable(t *testing.T) {
	t.Parallel()

	executor := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := executor.InitializeVersionTable(ctx); err != nil {
			t.Fatalf("InitializeVersionTable call %d: %v", i+1, err)
		}
	}
	applied, err := executor.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected a fresh table, got %+v", applied)
	}
}

func TestSQLiteExecutor_ExecuteMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("records version and checksum", func(t *testing.T) {
		t.Parallel()

		executor := openTestDB(t)
		if err := executor.InitializeVersionTable(ctx); err != nil {
			t.Fatalf("InitializeVersionTable: %v", err)
		}
		for _, m := range []Migration{
			{Version: "001", FilePath: "m/001_parishes.sql", Checksum: "a", SQL: "CREATE TABLE parishes (id INTEGER PRIMARY KEY, name TEXT NOT NULL);"},
			{Version: "002", FilePath: "m/002_seed.sql", Checksum: "b", SQL: "INSERT INTO parishes (name) VALUES ('Matriz');"},
		} {
			if err := executor.ExecuteMigration(ctx, m); err != nil {
				t.Fatalf("ExecuteMigration(%s): %v", m.Version, err)
			}
		}

		applied, err := executor.AppliedMigrations(ctx)
		if err != nil {
			t.Fatalf("AppliedMigrations: %v", err)
		}
		if len(applied) != 2 || applied[0].Version != "001" || applied[1].Version != "002" {
			t.Fatalf("expected versions in order, got %+v", applied)
		}
		if applied[0].Checksum != "a" || applied[0].AppliedAt.IsZero() {
			t.Fatalf("unexpected record %+v", applied[0])
		}
	})

	t.Run("failed statement leaves no trace", func(t *testing.T) {
		t.Parallel()

		executor := openTestDB(t)
		if err := executor.InitializeVersionTable(ctx); err != nil {
			t.Fatalf("InitializeVersionTable: %v", err)
		}
		err := executor.ExecuteMigration(ctx, Migration{
			Version:  "001",
			FilePath: "m/001_broken.sql",
			SQL:      "CREATE TABLE masses (id TEXT PRIMARY KEY);\nINSERT INTO missing_table VALUES (1);",
		})
		var migrationErr *Error
		if !errors.As(err, &migrationErr) {
			t.Fatalf("expected *Error, got %v", err)
		}
		if migrationErr.Version != "001" || migrationErr.Step != "execute statement 2" {
			t.Fatalf("unexpected error %+v", migrationErr)
		}

		var name string
		row := executor.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'masses'`)
		if err := row.Scan(&name); err == nil {
			t.Fatalf("expected the first statement to be rolled back")
		}
		applied, err := executor.AppliedMigrations(ctx)
		if err != nil {
			t.Fatalf("AppliedMigrations: %v", err)
		}
		if len(applied) != 0 {
			t.Fatalf("expected no recorded version, got %+v", applied)
		}
	})

	t.Run("rejects a file without statements", func(t *testing.T) {
		t.Parallel()

		executor := openTestDB(t)
		err := executor.ExecuteMigration(ctx, Migration{Version: "003", FilePath: "m/003_empty.sql", SQL: "-- nothing yet\n"})
		if !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})
}
