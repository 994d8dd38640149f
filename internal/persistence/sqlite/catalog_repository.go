package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/parish-roster/internal/persistence"
)

// CatalogRepository implements persistence.CatalogRepository using SQLite
type CatalogRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewCatalogRepository creates a new SQLite catalog repository
func NewCatalogRepository(pool *ConnectionPool) *CatalogRepository {
	return &CatalogRepository{pool: pool, mapper: NewErrorMapper()}
}

const slotColumns = `id, weekday, time_of_day, min_required, max_allowed, active, created_at, updated_at`

// CreateSlot inserts a recurring slot.
func (r *CatalogRepository) CreateSlot(ctx context.Context, slot persistence.RecurringSlot) error {
	if slot.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO recurring_slots (`+slotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		slot.ID,
		slot.Weekday,
		slot.Time,
		slot.MinRequired,
		slot.MaxAllowed,
		boolToInt(slot.Active),
		formatTimestamp(slot.CreatedAt),
		formatTimestamp(slot.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateSlot replaces every mutable field of a recurring slot.
func (r *CatalogRepository) UpdateSlot(ctx context.Context, slot persistence.RecurringSlot) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE recurring_slots
		SET weekday = ?, time_of_day = ?, min_required = ?, max_allowed = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		slot.Weekday,
		slot.Time,
		slot.MinRequired,
		slot.MaxAllowed,
		boolToInt(slot.Active),
		formatTimestamp(slot.UpdatedAt),
		slot.ID,
	)
	return r.requireAffected(result, err)
}

// GetSlot retrieves a recurring slot by ID.
func (r *CatalogRepository) GetSlot(ctx context.Context, id string) (persistence.RecurringSlot, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+slotColumns+` FROM recurring_slots WHERE id = ?`, id)
	slot, err := scanSlot(row.Scan)
	if err != nil {
		return persistence.RecurringSlot{}, r.mapper.MapError(err)
	}
	return slot, nil
}

// ListSlots returns every recurring slot ordered by weekday and time.
func (r *CatalogRepository) ListSlots(ctx context.Context) ([]persistence.RecurringSlot, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT `+slotColumns+`
		FROM recurring_slots
		ORDER BY weekday ASC, time_of_day ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var slots []persistence.RecurringSlot
	for rows.Next() {
		slot, err := scanSlot(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		slots = append(slots, slot)
	}
	return slots, r.mapper.MapError(rows.Err())
}

const extraColumns = `id, event_date, time_of_day, title, min_required, max_allowed, active, created_at, updated_at`

// CreateExtra inserts an extra event.
func (r *CatalogRepository) CreateExtra(ctx context.Context, extra persistence.ExtraEvent) error {
	if extra.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO extra_events (`+extraColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		extra.ID,
		extra.Date,
		extra.Time,
		extra.Title,
		extra.MinRequired,
		extra.MaxAllowed,
		boolToInt(extra.Active),
		formatTimestamp(extra.CreatedAt),
		formatTimestamp(extra.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateExtra replaces every mutable field of an extra event.
func (r *CatalogRepository) UpdateExtra(ctx context.Context, extra persistence.ExtraEvent) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE extra_events
		SET event_date = ?, time_of_day = ?, title = ?, min_required = ?, max_allowed = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		extra.Date,
		extra.Time,
		extra.Title,
		extra.MinRequired,
		extra.MaxAllowed,
		boolToInt(extra.Active),
		formatTimestamp(extra.UpdatedAt),
		extra.ID,
	)
	return r.requireAffected(result, err)
}

// GetExtra retrieves an extra event by ID.
func (r *CatalogRepository) GetExtra(ctx context.Context, id string) (persistence.ExtraEvent, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+extraColumns+` FROM extra_events WHERE id = ?`, id)
	extra, err := scanExtra(row.Scan)
	if err != nil {
		return persistence.ExtraEvent{}, r.mapper.MapError(err)
	}
	return extra, nil
}

// ListExtras returns extras dated within [from, to] ordered chronologically.
func (r *CatalogRepository) ListExtras(ctx context.Context, from, to string) ([]persistence.ExtraEvent, error) {
	where, args := dateRange("event_date", from, to)
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT `+extraColumns+`
		FROM extra_events`+where+`
		ORDER BY event_date ASC, time_of_day ASC, id ASC`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var extras []persistence.ExtraEvent
	for rows.Next() {
		extra, err := scanExtra(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		extras = append(extras, extra)
	}
	return extras, r.mapper.MapError(rows.Err())
}

func (r *CatalogRepository) requireAffected(result interface{ RowsAffected() (int64, error) }, err error) error {
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

func scanSlot(scan func(dest ...any) error) (persistence.RecurringSlot, error) {
	var (
		slot                 persistence.RecurringSlot
		active               int
		createdAt, updatedAt string
	)
	if err := scan(&slot.ID, &slot.Weekday, &slot.Time, &slot.MinRequired, &slot.MaxAllowed, &active, &createdAt, &updatedAt); err != nil {
		return persistence.RecurringSlot{}, err
	}
	slot.Active = active == 1

	var err error
	if slot.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.RecurringSlot{}, err
	}
	if slot.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.RecurringSlot{}, err
	}
	return slot, nil
}

func scanExtra(scan func(dest ...any) error) (persistence.ExtraEvent, error) {
	var (
		extra                persistence.ExtraEvent
		active               int
		createdAt, updatedAt string
	)
	if err := scan(&extra.ID, &extra.Date, &extra.Time, &extra.Title, &extra.MinRequired, &extra.MaxAllowed, &active, &createdAt, &updatedAt); err != nil {
		return persistence.ExtraEvent{}, err
	}
	extra.Active = active == 1

	var err error
	if extra.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.ExtraEvent{}, err
	}
	if extra.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.ExtraEvent{}, err
	}
	return extra, nil
}

// dateRange renders an optional inclusive WHERE clause over a YYYY-MM-DD column.
func dateRange(column, from, to string) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if from != "" {
		clauses = append(clauses, column+" >= ?")
		args = append(args, from)
	}
	if to != "" {
		clauses = append(clauses, column+" <= ?")
		args = append(args, to)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(clauses, " AND "), args
}
