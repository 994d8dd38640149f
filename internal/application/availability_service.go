package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/parish-roster/internal/scheduler"
)

// AvailabilityDependencies groups the collaborators of an AvailabilityService.
type AvailabilityDependencies struct {
	Loader      *SnapshotLoader
	Selections  SelectionRepository
	Ministers   MinisterRepository
	Commits     *CommitCoordinator
	DraftSize   int
	DraftTTL    time.Duration
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// AvailabilityService manages availability drafts for the editing sessions of
// ministers and exposes month occupancy.
type AvailabilityService struct {
	loader      *SnapshotLoader
	selections  SelectionRepository
	ministers   MinisterRepository
	commits     *CommitCoordinator
	drafts      *draftStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAvailabilityService constructs an availability service.
func NewAvailabilityService(deps AvailabilityDependencies) (*AvailabilityService, error) {
	if deps.Loader == nil {
		return nil, fmt.Errorf("snapshot loader is required")
	}
	if deps.Selections == nil {
		return nil, fmt.Errorf("selection repository is required")
	}
	if deps.IDGenerator == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := defaultLogger(deps.Logger)

	drafts, err := newDraftStore(deps.DraftSize, deps.DraftTTL, now)
	if err != nil {
		return nil, err
	}
	commits := deps.Commits
	if commits == nil {
		commits = NewCommitCoordinator(deps.Selections, deps.Loader, nil, 0, now, logger)
	}

	return &AvailabilityService{
		loader:      deps.Loader,
		selections:  deps.Selections,
		ministers:   deps.Ministers,
		commits:     commits,
		drafts:      drafts,
		idGenerator: deps.IDGenerator,
		now:         now,
		logger:      logger,
	}, nil
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// Window reports whether (year, month) is editable right now.
func (s *AvailabilityService) Window(ctx context.Context, year, month int) (scheduler.Decision, error) {
	if s.loader.window == nil {
		return scheduler.IsEditable(year, time.Month(month), s.now(), scheduler.DefaultWindowConfig(), nil, s.loader.Location()), nil
	}
	return s.loader.window.Evaluate(ctx, year, month)
}

// OpenDraft starts an editing session seeded with the committed selections of
// the minister for the month. The draft is returned even when the window is
// closed so that the selections can be shown read-only.
func (s *AvailabilityService) OpenDraft(ctx context.Context, params OpenDraftParams) (state DraftState, err error) {
	principal := params.Principal
	ministerID := strings.TrimSpace(params.MinisterID)
	if ministerID == "" {
		ministerID = principal.MinisterID
	}

	logger := s.loggerWith(ctx, "OpenDraft",
		"principal_id", principal.MinisterID,
		"minister_id", ministerID,
		"year", params.Year,
		"month", params.Month,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to open draft", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("draft_id", state.ID).InfoContext(ctx, "draft opened")
	}()

	if ministerID == "" {
		err = ErrUnauthorized
		return
	}
	if ministerID != principal.MinisterID && !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if err = validateMonth(params.Year, params.Month); err != nil {
		return
	}
	if s.ministers != nil {
		if _, getErr := s.ministers.GetMinister(ctx, ministerID); getErr != nil {
			err = mapMinisterRepoError(getErr)
			return
		}
	}

	year, month := params.Year, time.Month(params.Month)
	snapshot, err := s.loader.Load(ctx, year, month)
	if err != nil {
		return
	}
	regular, extras, err := s.selections.LoadSelections(ctx, ministerID, scheduler.FirstOfMonth(year, month), scheduler.LastOfMonth(year, month))
	if err != nil {
		err = persistenceError(err)
		return
	}

	draft := scheduler.NewDraft(scheduler.DraftInputs{
		ID:               s.idGenerator(),
		MinisterID:       ministerID,
		Year:             year,
		Month:            month,
		Catalog:          snapshot.Catalog,
		Blocks:           snapshot.Blocks,
		Window:           snapshot.Window,
		Overrides:        snapshot.Overrides,
		Location:         s.loader.Location(),
		CommittedRegular: regular,
		CommittedExtras:  extras,
	})
	s.drafts.put(draft)
	state = s.stateOf(draft)
	return
}

// GetDraft returns the current state of a draft.
func (s *AvailabilityService) GetDraft(ctx context.Context, principal Principal, id string) (state DraftState, err error) {
	err = s.withDraft(principal, id, func(draft *scheduler.Draft) error {
		state = s.stateOf(draft)
		return nil
	})
	return
}

// Toggle flips the selection of slotID on date. date must be YYYY-MM-DD.
func (s *AvailabilityService) Toggle(ctx context.Context, principal Principal, id, date, slotID string) (state DraftState, err error) {
	day, parseErr := scheduler.ParseDate(date)
	if parseErr != nil {
		vErr := &ValidationError{}
		vErr.add("date", "data inválida, use AAAA-MM-DD")
		return DraftState{}, vErr
	}

	err = s.withDraft(principal, id, func(draft *scheduler.Draft) error {
		if err := s.refreshWindow(ctx, draft); err != nil {
			return err
		}
		if _, err := draft.Toggle(day, strings.TrimSpace(slotID), s.now()); err != nil {
			return err
		}
		state = s.stateOf(draft)
		return nil
	})
	s.logRejection(ctx, "Toggle", principal, id, err)
	return
}

// ToggleExtra flips the selection of an extra mass.
func (s *AvailabilityService) ToggleExtra(ctx context.Context, principal Principal, id, extraID string) (state DraftState, err error) {
	err = s.withDraft(principal, id, func(draft *scheduler.Draft) error {
		if err := s.refreshWindow(ctx, draft); err != nil {
			return err
		}
		if _, err := draft.ToggleExtra(strings.TrimSpace(extraID), s.now()); err != nil {
			return err
		}
		state = s.stateOf(draft)
		return nil
	})
	s.logRejection(ctx, "ToggleExtra", principal, id, err)
	return
}

// ApplyRecurrence sets or clears slotID on every date of the draft month
// falling on weekday (0 = Sunday). It returns the number of changed selections.
func (s *AvailabilityService) ApplyRecurrence(ctx context.Context, principal Principal, id string, weekday int, slotID, mode string) (changed int, state DraftState, err error) {
	vErr := &ValidationError{}
	if weekday < 0 || weekday > 6 {
		vErr.add("weekday", "deve estar entre 0 e 6")
	}
	recurrenceMode := scheduler.RecurrenceMode(strings.ToLower(strings.TrimSpace(mode)))
	if !recurrenceMode.Valid() {
		vErr.add("mode", "deve ser set ou clear")
	}
	if vErr.HasErrors() {
		return 0, DraftState{}, vErr
	}

	err = s.withDraft(principal, id, func(draft *scheduler.Draft) error {
		if err := s.refreshWindow(ctx, draft); err != nil {
			return err
		}
		n, err := draft.ApplyRecurrence(time.Weekday(weekday), strings.TrimSpace(slotID), recurrenceMode, s.now())
		if err != nil {
			return err
		}
		changed = n
		state = s.stateOf(draft)
		return nil
	})
	s.logRejection(ctx, "ApplyRecurrence", principal, id, err)
	return
}

// Discard drops the pending changes of a draft.
func (s *AvailabilityService) Discard(ctx context.Context, principal Principal, id string) (state DraftState, err error) {
	err = s.withDraft(principal, id, func(draft *scheduler.Draft) error {
		draft.Discard()
		state = s.stateOf(draft)
		return nil
	})
	return
}

// Commit persists the pending changes of a draft. The draft stays open after
// both success and failure.
func (s *AvailabilityService) Commit(ctx context.Context, principal Principal, id string) (result CommitResult, state DraftState, err error) {
	err = s.withDraft(principal, id, func(draft *scheduler.Draft) error {
		res, err := s.commits.Commit(ctx, draft)
		state = s.stateOf(draft)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	return
}

// CloseDraft ends an editing session, dropping any pending changes.
func (s *AvailabilityService) CloseDraft(ctx context.Context, principal Principal, id string) error {
	err := s.withDraft(principal, id, func(*scheduler.Draft) error { return nil })
	if err != nil {
		return err
	}
	s.drafts.remove(id)
	s.loggerWith(ctx, "CloseDraft", "principal_id", principal.MinisterID, "draft_id", id).InfoContext(ctx, "draft closed")
	return nil
}

// OpenDrafts returns the number of drafts currently held in memory.
func (s *AvailabilityService) OpenDrafts() int {
	return s.drafts.len()
}

// Occupancy returns the current fill of every active mass of (year, month).
func (s *AvailabilityService) Occupancy(ctx context.Context, year, month int) (MonthOccupancy, error) {
	if err := validateMonth(year, month); err != nil {
		return MonthOccupancy{}, err
	}
	m := time.Month(month)
	snapshot, err := s.loader.Load(ctx, year, m)
	if err != nil {
		return MonthOccupancy{}, err
	}
	counts, err := s.selections.CountSelections(ctx, scheduler.FirstOfMonth(year, m), scheduler.LastOfMonth(year, m))
	if err != nil {
		return MonthOccupancy{}, persistenceError(err)
	}
	return NewLedger(snapshot.Catalog).Occupancy(year, m, snapshot.Blocks, counts), nil
}

func (s *AvailabilityService) withDraft(principal Principal, id string, fn func(*scheduler.Draft) error) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	return s.drafts.with(id, func(draft *scheduler.Draft) error {
		if !principal.IsAdmin && draft.MinisterID() != principal.MinisterID {
			return ErrUnauthorized
		}
		return fn(draft)
	})
}

// refreshWindow reloads the window configuration and overrides so that
// changes made by an administrator apply to open drafts.
func (s *AvailabilityService) refreshWindow(ctx context.Context, draft *scheduler.Draft) error {
	if s.loader.window == nil {
		return nil
	}
	settings, err := s.loader.window.Settings(ctx)
	if err != nil {
		return err
	}
	overrides, err := s.loader.window.Overrides(ctx, draft.Year(), draft.Month())
	if err != nil {
		return err
	}
	draft.Refresh(draft.Catalog(), draft.Blocks(), settings.Config, overrides)
	return nil
}

func (s *AvailabilityService) logRejection(ctx context.Context, operation string, principal Principal, id string, err error) {
	if err == nil {
		return
	}
	logger := s.loggerWith(ctx, operation, "principal_id", principal.MinisterID, "draft_id", id)
	if errors.Is(err, ErrPersistence) {
		logger.ErrorContext(ctx, "draft update failed", "error", err, "error_kind", ErrorKind(err))
		return
	}
	logger.DebugContext(ctx, "draft update rejected", "error", err, "error_kind", ErrorKind(err))
}

func (s *AvailabilityService) stateOf(draft *scheduler.Draft) DraftState {
	diff := draft.Diff()
	return DraftState{
		ID:         draft.ID(),
		MinisterID: draft.MinisterID(),
		Year:       draft.Year(),
		Month:      draft.Month(),
		Window:     draft.Window(s.now()),
		Regular:    draft.Regular().Keys(),
		Extras:     draft.Extras().IDs(),
		Diff:       diff,
		Pending:    !diff.Empty(),
	}
}
