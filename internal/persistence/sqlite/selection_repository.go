package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/parish-roster/internal/persistence"
)

// SelectionRepository implements persistence.SelectionRepository using SQLite
type SelectionRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewSelectionRepository creates a new SQLite selection repository
func NewSelectionRepository(pool *ConnectionPool) *SelectionRepository {
	return &SelectionRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
	}
}

// ListSelections returns a minister's regular selections dated within [from, to]
// and the extras whose event date falls in the same range.
func (r *SelectionRepository) ListSelections(ctx context.Context, ministerID, from, to string) (persistence.SelectionSet, error) {
	var set persistence.SelectionSet

	where, args := dateRange("avail_date", from, to)
	where = appendCondition(where, "minister_id = ?")
	args = append(args, ministerID)
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT minister_id, avail_date, slot_id
		FROM monthly_availability_regular`+where+`
		ORDER BY avail_date ASC, slot_id ASC`, args...)
	if err != nil {
		return set, r.mapper.MapError(err)
	}
	for rows.Next() {
		var selection persistence.RegularSelection
		if err := rows.Scan(&selection.MinisterID, &selection.Date, &selection.SlotID); err != nil {
			rows.Close()
			return set, r.mapper.MapError(err)
		}
		set.Regular = append(set.Regular, selection)
	}
	if err := rows.Close(); err != nil {
		return set, r.mapper.MapError(err)
	}
	if err := rows.Err(); err != nil {
		return set, r.mapper.MapError(err)
	}

	where, args = dateRange("e.event_date", from, to)
	where = appendCondition(where, "a.minister_id = ?")
	args = append(args, ministerID)
	rows, err = r.pool.DB().QueryContext(ctx, `
		SELECT a.minister_id, a.extra_id
		FROM availability_extras a
		JOIN extra_events e ON e.id = a.extra_id`+where+`
		ORDER BY e.event_date ASC, e.time_of_day ASC, a.extra_id ASC`, args...)
	if err != nil {
		return set, r.mapper.MapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var selection persistence.ExtraSelection
		if err := rows.Scan(&selection.MinisterID, &selection.ExtraID); err != nil {
			return set, r.mapper.MapError(err)
		}
		set.Extras = append(set.Extras, selection)
	}
	return set, r.mapper.MapError(rows.Err())
}

// CommitSelections applies request inside one immediate transaction. Counts of
// the touched targets are recomputed from the selection rows, handed to
// reserve, and the counts it returns are stored in the occupancy table together
// with the row changes. A busy database is retried with backoff.
func (r *SelectionRepository) CommitSelections(ctx context.Context, request persistence.CommitRequest, reserve persistence.ReserveFunc) error {
	if reserve == nil {
		return fmt.Errorf("sqlite: commit selections: reserve func is required")
	}
	committedAt := request.CommittedAt
	if committedAt.IsZero() {
		committedAt = r.now()
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			effective, err := effectiveChanges(ctx, tx, request.Changes)
			if err != nil {
				return r.mapper.MapError(err)
			}
			if len(effective) == 0 {
				return nil
			}

			counts := make(map[persistence.TargetKey]int)
			for _, change := range effective {
				target := change.Target()
				if _, ok := counts[target]; ok {
					continue
				}
				count, err := countTarget(ctx, tx, target)
				if err != nil {
					return r.mapper.MapError(err)
				}
				counts[target] = count
			}

			next, err := reserve(effective, counts)
			if err != nil {
				return err
			}

			for _, insert := range []bool{false, true} {
				for _, change := range effective {
					if change.Insert != insert {
						continue
					}
					if err := applyChange(ctx, tx, change, committedAt); err != nil {
						return r.mapper.MapError(err)
					}
				}
			}

			for target, taken := range next {
				if err := upsertOccupancy(ctx, tx, target, taken, committedAt); err != nil {
					return r.mapper.MapError(err)
				}
			}
			return nil
		})
	})
}

// CountSelections counts committed selections per slot target dated within
// [from, to] and per extra whose event date falls in the range.
func (r *SelectionRepository) CountSelections(ctx context.Context, from, to string) ([]persistence.OccupancyCount, error) {
	counts, err := countAll(ctx, r.pool.DB(), from, to)
	return counts, r.mapper.MapError(err)
}

// SummarizeMinisters counts each minister's selections within [from, to].
// Ministers without selections are included with zero counts.
func (r *SelectionRepository) SummarizeMinisters(ctx context.Context, from, to string) ([]persistence.MinisterSelectionCount, error) {
	if from == "" {
		from = "0000-01-01"
	}
	if to == "" {
		to = "9999-12-31"
	}

	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT m.id,
			(SELECT COUNT(*) FROM monthly_availability_regular r
				WHERE r.minister_id = m.id AND r.avail_date BETWEEN ? AND ?),
			(SELECT COUNT(*) FROM availability_extras a
				JOIN extra_events e ON e.id = a.extra_id
				WHERE a.minister_id = m.id AND e.event_date BETWEEN ? AND ?)
		FROM ministers m
		ORDER BY m.name COLLATE NOCASE ASC, m.id ASC`, from, to, from, to)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var summaries []persistence.MinisterSelectionCount
	for rows.Next() {
		var summary persistence.MinisterSelectionCount
		if err := rows.Scan(&summary.MinisterID, &summary.Regular, &summary.Extras); err != nil {
			return nil, r.mapper.MapError(err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, r.mapper.MapError(rows.Err())
}

// ListAvailable returns the committed selections dated within [from, to]
// joined with the minister names. Regular rows come first, ordered by date and
// slot, followed by extras ordered by event date and time.
func (r *SelectionRepository) ListAvailable(ctx context.Context, from, to string) ([]persistence.AvailableMinister, error) {
	var available []persistence.AvailableMinister

	where, args := dateRange("r.avail_date", from, to)
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT r.avail_date, r.slot_id, m.id, m.name
		FROM monthly_availability_regular r
		JOIN ministers m ON m.id = r.minister_id`+where+`
		ORDER BY r.avail_date ASC, r.slot_id ASC, m.name COLLATE NOCASE ASC, m.id ASC`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	for rows.Next() {
		var date, slotID string
		row := persistence.AvailableMinister{}
		if err := rows.Scan(&date, &slotID, &row.MinisterID, &row.MinisterName); err != nil {
			rows.Close()
			return nil, r.mapper.MapError(err)
		}
		row.Target = targetKey(persistence.TargetKindSlot, date, slotID)
		available = append(available, row)
	}
	if err := rows.Close(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	where, args = dateRange("e.event_date", from, to)
	rows, err = r.pool.DB().QueryContext(ctx, `
		SELECT a.extra_id, m.id, m.name
		FROM availability_extras a
		JOIN extra_events e ON e.id = a.extra_id
		JOIN ministers m ON m.id = a.minister_id`+where+`
		ORDER BY e.event_date ASC, e.time_of_day ASC, a.extra_id ASC, m.name COLLATE NOCASE ASC, m.id ASC`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var extraID string
		row := persistence.AvailableMinister{}
		if err := rows.Scan(&extraID, &row.MinisterID, &row.MinisterName); err != nil {
			return nil, r.mapper.MapError(err)
		}
		row.Target = targetKey(persistence.TargetKindExtra, "", extraID)
		available = append(available, row)
	}
	return available, r.mapper.MapError(rows.Err())
}

// ReconcileOccupancy rewrites occupancy rows whose count differs from the
// selection rows, zeroing rows of targets that no longer have selections.
func (r *SelectionRepository) ReconcileOccupancy(ctx context.Context) (int, error) {
	var corrected int
	err := r.retry.WithRetry(ctx, func() error {
		corrected = 0
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			actual, err := countAll(ctx, tx, "", "")
			if err != nil {
				return err
			}
			stored, err := storedOccupancy(ctx, tx)
			if err != nil {
				return err
			}

			updatedAt := r.now()
			want := make(map[persistence.TargetKey]int, len(actual))
			for _, count := range actual {
				want[count.Target] = count.Count
			}
			for target, taken := range stored {
				if _, ok := want[target]; !ok && taken != 0 {
					want[target] = 0
				}
			}

			for target, count := range want {
				if current, ok := stored[target]; ok && current == count {
					continue
				}
				if err := upsertOccupancy(ctx, tx, target, count, updatedAt); err != nil {
					return err
				}
				corrected++
			}
			return nil
		})
	})
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return corrected, nil
}

// effectiveChanges drops deletions of rows that do not exist and insertions of
// rows that already exist, evaluating changes in order.
func effectiveChanges(ctx context.Context, q querier, changes []persistence.SelectionChange) ([]persistence.SelectionChange, error) {
	present := make(map[rowKey]bool, len(changes))
	pending := make(map[rowKey]int, len(changes))
	effective := make([]persistence.SelectionChange, 0, len(changes))
	dropped := make(map[int]bool)

	for _, change := range changes {
		if change.Regular == nil && change.Extra == nil {
			return nil, fmt.Errorf("%w: selection change without row", persistence.ErrConstraintViolation)
		}
		key := keyOf(change)
		exists, seen := present[key]
		if !seen {
			var err error
			if exists, err = selectionExists(ctx, q, key); err != nil {
				return nil, err
			}
		}
		present[key] = change.Insert
		if change.Insert == exists {
			continue
		}
		// A row flipped back within the request cancels the earlier change.
		if idx, ok := pending[key]; ok && !dropped[idx] {
			dropped[idx] = true
			continue
		}
		pending[key] = len(effective)
		effective = append(effective, change)
	}

	if len(dropped) == 0 {
		return effective, nil
	}
	kept := effective[:0]
	for idx, change := range effective {
		if !dropped[idx] {
			kept = append(kept, change)
		}
	}
	return kept, nil
}

// rowKey identifies a selection row.
type rowKey struct {
	kind       string
	ministerID string
	date       string
	id         string
}

func keyOf(change persistence.SelectionChange) rowKey {
	if change.Extra != nil {
		return rowKey{kind: persistence.TargetKindExtra, ministerID: change.Extra.MinisterID, id: change.Extra.ExtraID}
	}
	return rowKey{
		kind:       persistence.TargetKindSlot,
		ministerID: change.Regular.MinisterID,
		date:       change.Regular.Date,
		id:         change.Regular.SlotID,
	}
}

func selectionExists(ctx context.Context, q querier, key rowKey) (bool, error) {
	var (
		row *sql.Row
		one int
	)
	if key.kind == persistence.TargetKindExtra {
		row = q.QueryRowContext(ctx, `
			SELECT 1 FROM availability_extras
			WHERE minister_id = ? AND extra_id = ?`, key.ministerID, key.id)
	} else {
		row = q.QueryRowContext(ctx, `
			SELECT 1 FROM monthly_availability_regular
			WHERE minister_id = ? AND avail_date = ? AND slot_id = ?`, key.ministerID, key.date, key.id)
	}
	switch err := row.Scan(&one); {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, err
	}
}

func countTarget(ctx context.Context, q querier, target persistence.TargetKey) (int, error) {
	var (
		row   *sql.Row
		count int
	)
	if target.Kind == persistence.TargetKindExtra {
		row = q.QueryRowContext(ctx, `SELECT COUNT(*) FROM availability_extras WHERE extra_id = ?`, target.ExtraID)
	} else {
		row = q.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM monthly_availability_regular
			WHERE avail_date = ? AND slot_id = ?`, target.Date, target.SlotID)
	}
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func applyChange(ctx context.Context, q querier, change persistence.SelectionChange, at time.Time) error {
	var err error
	switch {
	case change.Extra != nil && change.Insert:
		_, err = q.ExecContext(ctx, `
			INSERT INTO availability_extras (minister_id, extra_id, created_at)
			VALUES (?, ?, ?)`, change.Extra.MinisterID, change.Extra.ExtraID, formatTimestamp(at))
	case change.Extra != nil:
		_, err = q.ExecContext(ctx, `
			DELETE FROM availability_extras
			WHERE minister_id = ? AND extra_id = ?`, change.Extra.MinisterID, change.Extra.ExtraID)
	case change.Insert:
		_, err = q.ExecContext(ctx, `
			INSERT INTO monthly_availability_regular (minister_id, avail_date, slot_id, created_at)
			VALUES (?, ?, ?, ?)`, change.Regular.MinisterID, change.Regular.Date, change.Regular.SlotID, formatTimestamp(at))
	default:
		_, err = q.ExecContext(ctx, `
			DELETE FROM monthly_availability_regular
			WHERE minister_id = ? AND avail_date = ? AND slot_id = ?`, change.Regular.MinisterID, change.Regular.Date, change.Regular.SlotID)
	}
	return err
}

func upsertOccupancy(ctx context.Context, q querier, target persistence.TargetKey, taken int, at time.Time) error {
	id := target.SlotID
	date := target.Date
	if target.Kind == persistence.TargetKindExtra {
		id = target.ExtraID
		date = ""
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO occupancy (target_kind, target_date, target_id, taken, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (target_kind, target_date, target_id)
		DO UPDATE SET taken = excluded.taken, updated_at = excluded.updated_at`,
		target.Kind, date, id, taken, formatTimestamp(at))
	return err
}

func storedOccupancy(ctx context.Context, q querier) (map[persistence.TargetKey]int, error) {
	rows, err := q.QueryContext(ctx, `SELECT target_kind, target_date, target_id, taken FROM occupancy`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stored := make(map[persistence.TargetKey]int)
	for rows.Next() {
		var (
			kind, date, id string
			taken          int
		)
		if err := rows.Scan(&kind, &date, &id, &taken); err != nil {
			return nil, err
		}
		stored[targetKey(kind, date, id)] = taken
	}
	return stored, rows.Err()
}

func countAll(ctx context.Context, q querier, from, to string) ([]persistence.OccupancyCount, error) {
	where, args := dateRange("avail_date", from, to)
	rows, err := q.QueryContext(ctx, `
		SELECT avail_date, slot_id, COUNT(*)
		FROM monthly_availability_regular`+where+`
		GROUP BY avail_date, slot_id
		ORDER BY avail_date ASC, slot_id ASC`, args...)
	if err != nil {
		return nil, err
	}

	var counts []persistence.OccupancyCount
	for rows.Next() {
		var (
			date, slotID string
			count        int
		)
		if err := rows.Scan(&date, &slotID, &count); err != nil {
			rows.Close()
			return nil, err
		}
		counts = append(counts, persistence.OccupancyCount{Target: targetKey(persistence.TargetKindSlot, date, slotID), Count: count})
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	where, args = dateRange("e.event_date", from, to)
	rows, err = q.QueryContext(ctx, `
		SELECT a.extra_id, COUNT(*)
		FROM availability_extras a
		JOIN extra_events e ON e.id = a.extra_id`+where+`
		GROUP BY a.extra_id
		ORDER BY a.extra_id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			extraID string
			count   int
		)
		if err := rows.Scan(&extraID, &count); err != nil {
			return nil, err
		}
		counts = append(counts, persistence.OccupancyCount{Target: targetKey(persistence.TargetKindExtra, "", extraID), Count: count})
	}
	return counts, rows.Err()
}

func targetKey(kind, date, id string) persistence.TargetKey {
	if kind == persistence.TargetKindExtra {
		return persistence.TargetKey{Kind: kind, ExtraID: id}
	}
	return persistence.TargetKey{Kind: kind, Date: date, SlotID: id}
}

// appendCondition adds condition to a clause produced by dateRange.
func appendCondition(where, condition string) string {
	if where == "" {
		return "\n\t\tWHERE " + condition
	}
	return where + " AND " + condition
}
