// Package migration applies versioned SQL migrations to SQLite databases.
//
// Migrations are read from an fs.FS, usually an embed.FS compiled into the
// binary, and follow the naming convention {version}_{description}.sql
// (e.g., "001_initial_schema.sql"). Each migration runs in its own transaction
// together with its row in the schema_migrations table, so a failure leaves
// the database at the previous version.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewFSScanner(files, "migrations"), migration.NewSQLiteExecutor(db), logger)
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
