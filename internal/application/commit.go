package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/parish-roster/internal/scheduler"
)

// ReserveFunc validates the effective changes of a commit against the counts
// read inside the commit transaction and returns the counts to store.
type ReserveFunc func(effective []scheduler.SlotChange, counts map[scheduler.Target]int) (map[scheduler.Target]int, error)

// SelectionRepository stores committed selections. Zero dates are open range bounds.
type SelectionRepository interface {
	LoadSelections(ctx context.Context, ministerID string, from, to scheduler.Date) (scheduler.SlotSet, scheduler.ExtraSet, error)
	// CommitSelections applies changes for ministerID atomically. Deleting a
	// missing row and inserting an existing row are skipped; reserve sees only
	// the remaining changes and an error from it aborts the transaction.
	CommitSelections(ctx context.Context, ministerID string, changes []scheduler.SlotChange, committedAt time.Time, reserve ReserveFunc) error
	CountSelections(ctx context.Context, from, to scheduler.Date) (map[scheduler.Target]int, error)
	SummarizeMinisters(ctx context.Context, from, to scheduler.Date) ([]SelectionCount, error)
	ListAvailable(ctx context.Context, from, to scheduler.Date) ([]AvailableMinister, error)
	ReconcileOccupancy(ctx context.Context) (int, error)
}

// CommittedEventKey is the routing key of commit notifications.
const CommittedEventKey = "availability.committed"

// EventPublisher delivers JSON notifications to other systems.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// AvailabilityCommitted is published after a successful commit.
type AvailabilityCommitted struct {
	MinisterID  string    `json:"minister_id"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Inserted    []string  `json:"inserted"`
	Deleted     []string  `json:"deleted"`
	CommittedAt time.Time `json:"committed_at"`
}

// CommitCoordinator persists drafts. Commits touching the same mass are
// serialized; commits on disjoint masses only contend on the store itself.
type CommitCoordinator struct {
	selections SelectionRepository
	loader     *SnapshotLoader
	publisher  EventPublisher
	locks      *keyedLocks
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewCommitCoordinator constructs a coordinator. A zero timeout leaves the
// caller's context as the only bound on lock and store waits.
func NewCommitCoordinator(selections SelectionRepository, loader *SnapshotLoader, publisher EventPublisher, timeout time.Duration, now func() time.Time, logger *slog.Logger) *CommitCoordinator {
	if now == nil {
		now = time.Now
	}
	return &CommitCoordinator{
		selections: selections,
		loader:     loader,
		publisher:  publisher,
		locks:      newKeyedLocks(),
		timeout:    timeout,
		now:        now,
		logger:     defaultLogger(logger),
	}
}

// Commit validates and persists the pending changes of draft. On success the
// draft baseline is advanced; on any failure persisted state and the draft
// baseline are left untouched.
func (c *CommitCoordinator) Commit(ctx context.Context, draft *scheduler.Draft) (result CommitResult, err error) {
	if c == nil || c.selections == nil {
		err = fmt.Errorf("selection repository not configured")
		return
	}

	diff := draft.Diff()
	if diff.Empty() {
		return
	}

	logger := serviceLogger(ctx, c.logger, "CommitCoordinator", "Commit",
		"draft_id", draft.ID(),
		"minister_id", draft.MinisterID(),
		"year", draft.Year(),
		"month", int(draft.Month()),
	)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "commit rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("inserted", result.Inserted, "deleted", result.Deleted).InfoContext(ctx, "availability committed")
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	snapshot, err := c.loader.Load(ctx, draft.Year(), draft.Month())
	if err != nil {
		return
	}
	draft.Refresh(snapshot.Catalog, snapshot.Blocks, snapshot.Window, snapshot.Overrides)

	now := c.now()
	if decision := draft.Window(now); !decision.Allowed {
		err = &WindowNotEditableError{Decision: decision}
		return
	}
	if err = draft.ValidateInsertions(); err != nil {
		return
	}

	changes := diff.Changes()
	keys := make([]string, 0, len(changes))
	for _, target := range scheduler.ChangedTargets(changes) {
		keys = append(keys, target.String())
	}

	release, lockErr := c.locks.acquire(ctx, keys)
	if lockErr != nil {
		err = persistenceError(fmt.Errorf("acquire target locks: %w", lockErr))
		return
	}
	defer release()

	ledger := NewLedger(snapshot.Catalog)
	if err = c.selections.CommitSelections(ctx, draft.MinisterID(), changes, now, ledger.Reserve); err != nil {
		err = classifyCommitError(err)
		return
	}

	draft.MarkCommitted()
	result = CommitResult{
		Inserted: len(diff.ToInsertRegular) + len(diff.ToInsertExtras),
		Deleted:  len(diff.ToDeleteRegular) + len(diff.ToDeleteExtras),
	}
	c.publish(ctx, logger, draft, changes, now)
	return
}

func (c *CommitCoordinator) publish(ctx context.Context, logger *slog.Logger, draft *scheduler.Draft, changes []scheduler.SlotChange, at time.Time) {
	if c.publisher == nil {
		return
	}

	event := AvailabilityCommitted{
		MinisterID:  draft.MinisterID(),
		Year:        draft.Year(),
		Month:       int(draft.Month()),
		CommittedAt: at.UTC(),
	}
	for _, change := range changes {
		if change.Insert() {
			event.Inserted = append(event.Inserted, change.Target.String())
		} else {
			event.Deleted = append(event.Deleted, change.Target.String())
		}
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.publisher.PublishJSON(pubCtx, CommittedEventKey, event); err != nil {
		logger.WarnContext(ctx, "failed to publish commit event", "error", err)
	}
}

func classifyCommitError(err error) error {
	var (
		capacityErr *CapacityExceededError
		unknownErr  *UnknownTargetError
	)
	if errors.As(err, &capacityErr) || errors.As(err, &unknownErr) {
		return err
	}
	return persistenceError(err)
}
