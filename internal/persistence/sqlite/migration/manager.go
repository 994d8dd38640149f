package migration

import (
	"context"
	"fmt"
	"log/slog"
)

// Manager applies pending migrations in version order.
type Manager struct {
	scanner  Scanner
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a Manager. A nil logger uses slog.Default.
func NewManager(scanner Scanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{scanner: scanner, executor: executor, logger: logger.With("component", "migration")}
}

// Run executes all pending migrations in sequential order and stops at the first failure.
func (m *Manager) Run(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	if len(status.Pending) == 0 {
		m.logger.InfoContext(ctx, "schema up to date", "version", status.CurrentVersion)
		return nil
	}

	m.logger.InfoContext(ctx, "applying migrations",
		"current_version", status.CurrentVersion,
		"pending", len(status.Pending),
	)

	for _, migration := range status.Pending {
		logger := m.logger.With("version", migration.Version, "file", migration.FilePath)
		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
		logger.InfoContext(ctx, "migration applied", "description", migration.Description)
	}

	return nil
}

// Status reports applied and pending migrations. It fails when an applied
// version has no file or its file changed after being applied.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := m.scanner.Scan()
	if err != nil {
		return Status{}, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	byVersion := make(map[int]Migration, len(available))
	for _, migration := range available {
		byVersion[versionNumber(migration.Version)] = migration
	}

	status := Status{Applied: applied}
	appliedSet := make(map[int]struct{}, len(applied))
	current := -1
	for _, record := range applied {
		number := versionNumber(record.Version)
		migration, ok := byVersion[number]
		if !ok {
			return Status{}, fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, record.Version)
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return Status{}, NewMigrationError(record.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
		appliedSet[number] = struct{}{}
		if number > current {
			current = number
			status.CurrentVersion = record.Version
		}
	}

	for _, migration := range available {
		if _, ok := appliedSet[versionNumber(migration.Version)]; !ok {
			status.Pending = append(status.Pending, migration)
		}
	}
	return status, nil
}
