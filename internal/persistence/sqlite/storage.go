package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/parish-roster/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite repositories over a shared connection pool.
type Storage struct {
	Pool       *ConnectionPool
	Ministers  *MinisterRepository
	Catalog    *CatalogRepository
	Blocks     *BlockRepository
	Window     *WindowRepository
	Selections *SelectionRepository
}

// Open connects to the database described by config, applies pending
// migrations and returns the repositories.
func Open(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, pool, logger); err != nil {
		_ = pool.Close()
		return nil, err
	}

	return &Storage{
		Pool:       pool,
		Ministers:  NewMinisterRepository(pool),
		Catalog:    NewCatalogRepository(pool),
		Blocks:     NewBlockRepository(pool),
		Window:     NewWindowRepository(pool),
		Selections: NewSelectionRepository(pool),
	}, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, pool *ConnectionPool, logger *slog.Logger) error {
	manager := migration.NewManager(
		migration.NewFSScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(pool.DB()),
		logger,
	)
	if err := manager.Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	if s == nil || s.Pool == nil {
		return nil
	}
	return s.Pool.Close()
}
