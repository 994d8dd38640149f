package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/parish-roster/internal/persistence"
	"github.com/example/parish-roster/internal/scheduler"
)

// CatalogRepository stores recurring slots and extra events. Zero dates are
// open range bounds.
type CatalogRepository interface {
	CreateSlot(ctx context.Context, slot scheduler.RecurringSlot) error
	UpdateSlot(ctx context.Context, slot scheduler.RecurringSlot) error
	GetSlot(ctx context.Context, id string) (scheduler.RecurringSlot, error)
	ListSlots(ctx context.Context) ([]scheduler.RecurringSlot, error)

	CreateExtra(ctx context.Context, extra scheduler.ExtraEvent) error
	UpdateExtra(ctx context.Context, extra scheduler.ExtraEvent) error
	GetExtra(ctx context.Context, id string) (scheduler.ExtraEvent, error)
	ListExtras(ctx context.Context, from, to scheduler.Date) ([]scheduler.ExtraEvent, error)
}

// BlockRepository stores blocked masses. Zero dates are open range bounds.
type BlockRepository interface {
	CreateBlock(ctx context.Context, block scheduler.BlockedMass) error
	UpdateBlock(ctx context.Context, block scheduler.BlockedMass) error
	GetBlock(ctx context.Context, id string) (scheduler.BlockedMass, error)
	DeleteBlock(ctx context.Context, id string) error
	ListBlocks(ctx context.Context, from, to scheduler.Date) ([]scheduler.BlockedMass, error)
}

// CatalogService administers the mass catalog: recurring slots, extra masses
// and blocks. Reads are open to every minister; writes require an administrator.
type CatalogService struct {
	catalog     CatalogRepository
	blocks      BlockRepository
	idGenerator func() string
	logger      *slog.Logger
}

// NewCatalogService constructs a catalog service.
func NewCatalogService(catalog CatalogRepository, blocks BlockRepository, idGenerator func() string) *CatalogService {
	return NewCatalogServiceWithLogger(catalog, blocks, idGenerator, nil)
}

// NewCatalogServiceWithLogger constructs a catalog service with a specified logger.
func NewCatalogServiceWithLogger(catalog CatalogRepository, blocks BlockRepository, idGenerator func() string, logger *slog.Logger) *CatalogService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &CatalogService{catalog: catalog, blocks: blocks, idGenerator: idGenerator, logger: defaultLogger(logger)}
}

func (s *CatalogService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CatalogService", operation, attrs...)
}

// CreateSlot adds a weekly mass time.
func (s *CatalogService) CreateSlot(ctx context.Context, principal Principal, input SlotInput) (slot scheduler.RecurringSlot, err error) {
	if s == nil || s.catalog == nil {
		err = fmt.Errorf("catalog repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateSlot", "principal_id", principal.MinisterID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("slot_id", slot.ID).InfoContext(ctx, "slot created")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	slot, err = slotFromInput(s.idGenerator(), input)
	if err != nil {
		return
	}
	if err = s.catalog.CreateSlot(ctx, slot); err != nil {
		err = mapCatalogRepoError(err)
	}
	return
}

// UpdateSlot replaces the fields of an existing weekly mass time.
func (s *CatalogService) UpdateSlot(ctx context.Context, principal Principal, id string, input SlotInput) (slot scheduler.RecurringSlot, err error) {
	if s == nil || s.catalog == nil {
		err = fmt.Errorf("catalog repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSlot", "principal_id", principal.MinisterID, "slot_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot updated")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var existing scheduler.RecurringSlot
	if existing, err = s.catalog.GetSlot(ctx, id); err != nil {
		err = mapCatalogRepoError(err)
		return
	}
	if input.Active == nil {
		input.Active = &existing.Active
	}

	slot, err = slotFromInput(existing.ID, input)
	if err != nil {
		return
	}
	if err = s.catalog.UpdateSlot(ctx, slot); err != nil {
		err = mapCatalogRepoError(err)
	}
	return
}

// DeactivateSlot hides a weekly mass time from new selections. Committed
// selections are kept and may still be removed.
func (s *CatalogService) DeactivateSlot(ctx context.Context, principal Principal, id string) (scheduler.RecurringSlot, error) {
	if s == nil || s.catalog == nil {
		return scheduler.RecurringSlot{}, fmt.Errorf("catalog repository not configured")
	}
	if !principal.IsAdmin {
		return scheduler.RecurringSlot{}, ErrUnauthorized
	}

	slot, err := s.catalog.GetSlot(ctx, id)
	if err != nil {
		return scheduler.RecurringSlot{}, mapCatalogRepoError(err)
	}
	slot.Active = false
	if err := s.catalog.UpdateSlot(ctx, slot); err != nil {
		err = mapCatalogRepoError(err)
		s.loggerWith(ctx, "DeactivateSlot", "slot_id", id).ErrorContext(ctx, "failed to deactivate slot", "error", err, "error_kind", ErrorKind(err))
		return scheduler.RecurringSlot{}, err
	}
	s.loggerWith(ctx, "DeactivateSlot", "slot_id", id).InfoContext(ctx, "slot deactivated")
	return slot, nil
}

// ListSlots returns every weekly mass time ordered by weekday and time.
func (s *CatalogService) ListSlots(ctx context.Context, principal Principal) ([]scheduler.RecurringSlot, error) {
	if s == nil || s.catalog == nil {
		return nil, nil
	}
	slots, err := s.catalog.ListSlots(ctx)
	if err != nil {
		return nil, mapCatalogRepoError(err)
	}
	return scheduler.NewCatalog(slots, nil).Slots(), nil
}

// CreateExtra adds a one-off mass.
func (s *CatalogService) CreateExtra(ctx context.Context, principal Principal, input ExtraInput) (extra scheduler.ExtraEvent, err error) {
	if s == nil || s.catalog == nil {
		err = fmt.Errorf("catalog repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateExtra", "principal_id", principal.MinisterID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create extra", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("extra_id", extra.ID).InfoContext(ctx, "extra created")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	extra, err = extraFromInput(s.idGenerator(), input)
	if err != nil {
		return
	}
	if err = s.catalog.CreateExtra(ctx, extra); err != nil {
		err = mapCatalogRepoError(err)
	}
	return
}

// UpdateExtra replaces the fields of an existing extra mass.
func (s *CatalogService) UpdateExtra(ctx context.Context, principal Principal, id string, input ExtraInput) (extra scheduler.ExtraEvent, err error) {
	if s == nil || s.catalog == nil {
		err = fmt.Errorf("catalog repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateExtra", "principal_id", principal.MinisterID, "extra_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update extra", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "extra updated")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var existing scheduler.ExtraEvent
	if existing, err = s.catalog.GetExtra(ctx, id); err != nil {
		err = mapCatalogRepoError(err)
		return
	}
	if input.Active == nil {
		input.Active = &existing.Active
	}

	extra, err = extraFromInput(existing.ID, input)
	if err != nil {
		return
	}
	if err = s.catalog.UpdateExtra(ctx, extra); err != nil {
		err = mapCatalogRepoError(err)
	}
	return
}

// DeactivateExtra hides an extra mass from new selections.
func (s *CatalogService) DeactivateExtra(ctx context.Context, principal Principal, id string) (scheduler.ExtraEvent, error) {
	if s == nil || s.catalog == nil {
		return scheduler.ExtraEvent{}, fmt.Errorf("catalog repository not configured")
	}
	if !principal.IsAdmin {
		return scheduler.ExtraEvent{}, ErrUnauthorized
	}

	extra, err := s.catalog.GetExtra(ctx, id)
	if err != nil {
		return scheduler.ExtraEvent{}, mapCatalogRepoError(err)
	}
	extra.Active = false
	if err := s.catalog.UpdateExtra(ctx, extra); err != nil {
		return scheduler.ExtraEvent{}, mapCatalogRepoError(err)
	}
	s.loggerWith(ctx, "DeactivateExtra", "extra_id", id).InfoContext(ctx, "extra deactivated")
	return extra, nil
}

// ListExtras returns the extra masses of (year, month) chronologically, or
// every extra when year is zero.
func (s *CatalogService) ListExtras(ctx context.Context, principal Principal, year, month int) ([]scheduler.ExtraEvent, error) {
	if s == nil || s.catalog == nil {
		return nil, nil
	}
	from, to, err := monthBounds(year, month)
	if err != nil {
		return nil, err
	}
	extras, err := s.catalog.ListExtras(ctx, from, to)
	if err != nil {
		return nil, mapCatalogRepoError(err)
	}
	return scheduler.NewCatalog(nil, extras).Extras(), nil
}

// CreateBlock records an administrative blackout.
func (s *CatalogService) CreateBlock(ctx context.Context, principal Principal, input BlockInput) (block scheduler.BlockedMass, err error) {
	if s == nil || s.blocks == nil {
		err = fmt.Errorf("block repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBlock", "principal_id", principal.MinisterID, "date", input.Date)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create block", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("block_id", block.ID, "whole_day", block.WholeDay()).InfoContext(ctx, "block created")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	block, err = blockFromInput(s.idGenerator(), input)
	if err != nil {
		return
	}
	if err = s.blocks.CreateBlock(ctx, block); err != nil {
		err = mapCatalogRepoError(err)
	}
	return
}

// UpdateBlock replaces the date, times and reason of a blackout.
func (s *CatalogService) UpdateBlock(ctx context.Context, principal Principal, id string, input BlockInput) (scheduler.BlockedMass, error) {
	if s == nil || s.blocks == nil {
		return scheduler.BlockedMass{}, fmt.Errorf("block repository not configured")
	}
	if !principal.IsAdmin {
		return scheduler.BlockedMass{}, ErrUnauthorized
	}

	if _, err := s.blocks.GetBlock(ctx, id); err != nil {
		return scheduler.BlockedMass{}, mapCatalogRepoError(err)
	}
	block, err := blockFromInput(id, input)
	if err != nil {
		return scheduler.BlockedMass{}, err
	}
	if err := s.blocks.UpdateBlock(ctx, block); err != nil {
		return scheduler.BlockedMass{}, mapCatalogRepoError(err)
	}
	s.loggerWith(ctx, "UpdateBlock", "block_id", id).InfoContext(ctx, "block updated")
	return block, nil
}

// DeleteBlock lifts a blackout. Selections rejected while it existed are not restored.
func (s *CatalogService) DeleteBlock(ctx context.Context, principal Principal, id string) error {
	if s == nil || s.blocks == nil {
		return fmt.Errorf("block repository not configured")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "DeleteBlock", "principal_id", principal.MinisterID, "block_id", id)
	if err := s.blocks.DeleteBlock(ctx, id); err != nil {
		err = mapCatalogRepoError(err)
		logger.ErrorContext(ctx, "failed to delete block", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "block deleted")
	return nil
}

// ListBlocks returns the blocks of (year, month), or every block when year is zero.
func (s *CatalogService) ListBlocks(ctx context.Context, principal Principal, year, month int) ([]scheduler.BlockedMass, error) {
	if s == nil || s.blocks == nil {
		return nil, nil
	}
	from, to, err := monthBounds(year, month)
	if err != nil {
		return nil, err
	}
	blocks, err := s.blocks.ListBlocks(ctx, from, to)
	if err != nil {
		return nil, mapCatalogRepoError(err)
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Date != blocks[j].Date {
			return blocks[i].Date.Before(blocks[j].Date)
		}
		return blocks[i].ID < blocks[j].ID
	})
	return blocks, nil
}

func slotFromInput(id string, input SlotInput) (scheduler.RecurringSlot, error) {
	input.Time = strings.TrimSpace(input.Time)
	if vErr := validateInput(input); vErr.HasErrors() {
		return scheduler.RecurringSlot{}, vErr
	}
	tod, _ := scheduler.ParseTimeOfDay(input.Time)

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	return scheduler.RecurringSlot{
		ID:          id,
		Weekday:     time.Weekday(input.Weekday),
		Time:        tod,
		MinRequired: input.MinRequired,
		MaxAllowed:  input.MaxAllowed,
		Active:      active,
	}, nil
}

func extraFromInput(id string, input ExtraInput) (scheduler.ExtraEvent, error) {
	input.Date = strings.TrimSpace(input.Date)
	input.Time = strings.TrimSpace(input.Time)
	input.Title = strings.TrimSpace(input.Title)
	if vErr := validateInput(input); vErr.HasErrors() {
		return scheduler.ExtraEvent{}, vErr
	}
	date, _ := scheduler.ParseDate(input.Date)
	tod, _ := scheduler.ParseTimeOfDay(input.Time)

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	return scheduler.ExtraEvent{
		ID:          id,
		Date:        date,
		Time:        tod,
		Title:       input.Title,
		MinRequired: input.MinRequired,
		MaxAllowed:  input.MaxAllowed,
		Active:      active,
	}, nil
}

func blockFromInput(id string, input BlockInput) (scheduler.BlockedMass, error) {
	input.Date = strings.TrimSpace(input.Date)
	input.Reason = strings.TrimSpace(input.Reason)
	if vErr := validateInput(input); vErr.HasErrors() {
		return scheduler.BlockedMass{}, vErr
	}
	date, _ := scheduler.ParseDate(input.Date)

	var times []scheduler.TimeOfDay
	seen := make(map[scheduler.TimeOfDay]struct{}, len(input.Times))
	for _, raw := range input.Times {
		tod, _ := scheduler.ParseTimeOfDay(strings.TrimSpace(raw))
		if _, dup := seen[tod]; dup {
			continue
		}
		seen[tod] = struct{}{}
		times = append(times, tod)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	return scheduler.BlockedMass{ID: id, Date: date, Times: times, Reason: input.Reason}, nil
}

// monthBounds returns the first and last date of (year, month). A zero year
// yields open bounds.
func monthBounds(year, month int) (scheduler.Date, scheduler.Date, error) {
	if year == 0 {
		return scheduler.Date{}, scheduler.Date{}, nil
	}
	if month < 1 || month > 12 {
		vErr := &ValidationError{}
		vErr.add("month", "deve estar entre 1 e 12")
		return scheduler.Date{}, scheduler.Date{}, vErr
	}
	m := time.Month(month)
	return scheduler.FirstOfMonth(year, m), scheduler.LastOfMonth(year, m), nil
}

func mapCatalogRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation), errors.Is(err, persistence.ErrForeignKey):
		vErr := &ValidationError{}
		vErr.add("input", "valores rejeitados pelo armazenamento")
		return vErr
	case errors.Is(err, persistence.ErrBusy):
		return persistenceError(err)
	}
	return err
}
