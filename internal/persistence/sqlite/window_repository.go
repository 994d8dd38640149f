package sqlite

import (
	"context"
	"fmt"

	"github.com/example/parish-roster/internal/persistence"
)

// WindowRepository implements persistence.WindowRepository using SQLite
type WindowRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewWindowRepository creates a new SQLite window repository
func NewWindowRepository(pool *ConnectionPool) *WindowRepository {
	return &WindowRepository{pool: pool, mapper: NewErrorMapper()}
}

// AppendConfig stores a new configuration version and returns it with its sequence.
func (r *WindowRepository) AppendConfig(ctx context.Context, config persistence.WindowConfig) (persistence.WindowConfig, error) {
	result, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO availability_settings (days_before_next_month, hard_close, created_by, created_at)
		VALUES (?, ?, ?, ?)`,
		config.DaysBeforeNextMonth,
		boolToInt(config.HardClose),
		config.CreatedBy,
		formatTimestamp(config.CreatedAt),
	)
	if err != nil {
		return persistence.WindowConfig{}, r.mapper.MapError(err)
	}

	sequence, err := result.LastInsertId()
	if err != nil {
		return persistence.WindowConfig{}, fmt.Errorf("failed to read settings sequence: %w", err)
	}
	config.Sequence = sequence
	return config, nil
}

// LatestConfig returns the configuration with the highest sequence.
func (r *WindowRepository) LatestConfig(ctx context.Context) (persistence.WindowConfig, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT sequence, days_before_next_month, hard_close, created_by, created_at
		FROM availability_settings
		ORDER BY sequence DESC
		LIMIT 1`)

	var (
		config    persistence.WindowConfig
		hardClose int
		createdAt string
	)
	if err := row.Scan(&config.Sequence, &config.DaysBeforeNextMonth, &hardClose, &config.CreatedBy, &createdAt); err != nil {
		return persistence.WindowConfig{}, r.mapper.MapError(err)
	}
	config.HardClose = hardClose == 1

	var err error
	if config.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.WindowConfig{}, err
	}
	return config, nil
}

// CreateOverride inserts a manual window override.
func (r *WindowRepository) CreateOverride(ctx context.Context, override persistence.WindowOverride) error {
	if override.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO availability_overrides (id, year, month, open_from, open_until, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		override.ID,
		override.Year,
		override.Month,
		formatTimestamp(override.OpenFrom),
		formatTimestamp(override.OpenUntil),
		override.CreatedBy,
		formatTimestamp(override.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// DeleteOverride revokes an override.
func (r *WindowRepository) DeleteOverride(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM availability_overrides WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListOverrides returns the overrides of (year, month), or all overrides when
// year is zero, newest first.
func (r *WindowRepository) ListOverrides(ctx context.Context, year, month int) ([]persistence.WindowOverride, error) {
	query := `
		SELECT id, year, month, open_from, open_until, created_by, created_at
		FROM availability_overrides`
	var args []any
	if year != 0 {
		query += `
		WHERE year = ? AND month = ?`
		args = append(args, year, month)
	}
	query += `
		ORDER BY open_from DESC, id ASC`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var overrides []persistence.WindowOverride
	for rows.Next() {
		var (
			override                       persistence.WindowOverride
			openFrom, openUntil, createdAt string
		)
		if err := rows.Scan(&override.ID, &override.Year, &override.Month, &openFrom, &openUntil, &override.CreatedBy, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if override.OpenFrom, err = parseTimestamp("open_from", openFrom); err != nil {
			return nil, err
		}
		if override.OpenUntil, err = parseTimestamp("open_until", openUntil); err != nil {
			return nil, err
		}
		if override.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
			return nil, err
		}
		overrides = append(overrides, override)
	}
	return overrides, r.mapper.MapError(rows.Err())
}
