package sqlite

import (
	"context"
	"fmt"

	"github.com/example/parish-roster/internal/persistence"
)

// MinisterRepository implements persistence.MinisterRepository using SQLite
type MinisterRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewMinisterRepository creates a new SQLite minister repository
func NewMinisterRepository(pool *ConnectionPool) *MinisterRepository {
	return &MinisterRepository{pool: pool, mapper: NewErrorMapper()}
}

// CreateMinister inserts a new minister.
func (r *MinisterRepository) CreateMinister(ctx context.Context, minister persistence.Minister) error {
	if minister.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO ministers (id, name, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		minister.ID,
		minister.Name,
		boolToInt(minister.IsAdmin),
		formatTimestamp(minister.CreatedAt),
		formatTimestamp(minister.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetMinister retrieves a minister by ID.
func (r *MinisterRepository) GetMinister(ctx context.Context, id string) (persistence.Minister, error) {
	if id == "" {
		return persistence.Minister{}, persistence.ErrNotFound
	}

	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, name, is_admin, created_at, updated_at
		FROM ministers
		WHERE id = ?`, id)

	minister, err := scanMinister(row.Scan)
	if err != nil {
		return persistence.Minister{}, r.mapper.MapError(err)
	}
	return minister, nil
}

// ListMinisters returns all ministers ordered by name then ID.
func (r *MinisterRepository) ListMinisters(ctx context.Context) ([]persistence.Minister, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, name, is_admin, created_at, updated_at
		FROM ministers
		ORDER BY name COLLATE NOCASE ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var ministers []persistence.Minister
	for rows.Next() {
		minister, err := scanMinister(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		ministers = append(ministers, minister)
	}
	return ministers, r.mapper.MapError(rows.Err())
}

// DeleteMinister removes a minister and, through the cascade, their selections.
func (r *MinisterRepository) DeleteMinister(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM ministers WHERE id = ?`, id)
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

func scanMinister(scan func(dest ...any) error) (persistence.Minister, error) {
	var (
		minister             persistence.Minister
		isAdmin              int
		createdAt, updatedAt string
	)
	if err := scan(&minister.ID, &minister.Name, &isAdmin, &createdAt, &updatedAt); err != nil {
		return persistence.Minister{}, err
	}
	minister.IsAdmin = isAdmin == 1

	var err error
	if minister.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.Minister{}, err
	}
	if minister.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.Minister{}, err
	}
	return minister, nil
}
