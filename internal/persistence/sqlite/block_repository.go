package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/parish-roster/internal/persistence"
)

// BlockRepository implements persistence.BlockRepository using SQLite
type BlockRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewBlockRepository creates a new SQLite block repository
func NewBlockRepository(pool *ConnectionPool) *BlockRepository {
	return &BlockRepository{pool: pool, mapper: NewErrorMapper()}
}

const blockColumns = `id, block_date, blocked_times, reason, created_at, updated_at`

// CreateBlock inserts a blocked mass.
func (r *BlockRepository) CreateBlock(ctx context.Context, block persistence.BlockedMass) error {
	if block.ID == "" {
		return persistence.ErrConstraintViolation
	}
	times, err := encodeBlockedTimes(block.Times)
	if err != nil {
		return err
	}

	_, err = r.pool.DB().ExecContext(ctx, `
		INSERT INTO blocked_masses (`+blockColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		block.ID,
		block.Date,
		times,
		block.Reason,
		formatTimestamp(block.CreatedAt),
		formatTimestamp(block.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateBlock replaces the date, times and reason of a blocked mass.
func (r *BlockRepository) UpdateBlock(ctx context.Context, block persistence.BlockedMass) error {
	times, err := encodeBlockedTimes(block.Times)
	if err != nil {
		return err
	}

	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE blocked_masses
		SET block_date = ?, blocked_times = ?, reason = ?, updated_at = ?
		WHERE id = ?`,
		block.Date,
		times,
		block.Reason,
		formatTimestamp(block.UpdatedAt),
		block.ID,
	)
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

// GetBlock retrieves a blocked mass by ID.
func (r *BlockRepository) GetBlock(ctx context.Context, id string) (persistence.BlockedMass, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+blockColumns+` FROM blocked_masses WHERE id = ?`, id)
	block, err := scanBlock(row.Scan)
	if err != nil {
		return persistence.BlockedMass{}, r.mapper.MapError(err)
	}
	return block, nil
}

// DeleteBlock removes a blocked mass.
func (r *BlockRepository) DeleteBlock(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM blocked_masses WHERE id = ?`, id)
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

// ListBlocks returns blocks dated within [from, to] ordered by date.
func (r *BlockRepository) ListBlocks(ctx context.Context, from, to string) ([]persistence.BlockedMass, error) {
	where, args := dateRange("block_date", from, to)
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT `+blockColumns+`
		FROM blocked_masses`+where+`
		ORDER BY block_date ASC, id ASC`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var blocks []persistence.BlockedMass
	for rows.Next() {
		block, err := scanBlock(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		blocks = append(blocks, block)
	}
	return blocks, r.mapper.MapError(rows.Err())
}

// encodeBlockedTimes stores nil or empty times as NULL (whole day).
func encodeBlockedTimes(times []string) (sql.NullString, error) {
	if len(times) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(times)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode blocked times: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func scanBlock(scan func(dest ...any) error) (persistence.BlockedMass, error) {
	var (
		block                persistence.BlockedMass
		times                sql.NullString
		createdAt, updatedAt string
	)
	if err := scan(&block.ID, &block.Date, &times, &block.Reason, &createdAt, &updatedAt); err != nil {
		return persistence.BlockedMass{}, err
	}
	if times.Valid && times.String != "" {
		if err := json.Unmarshal([]byte(times.String), &block.Times); err != nil {
			return persistence.BlockedMass{}, fmt.Errorf("failed to decode blocked times: %w", err)
		}
		if len(block.Times) == 0 {
			block.Times = nil
		}
	}

	var err error
	if block.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.BlockedMass{}, err
	}
	if block.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.BlockedMass{}, err
	}
	return block, nil
}
