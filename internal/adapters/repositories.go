package adapters

import (
	"context"
	"time"

	"github.com/example/parish-roster/internal/application"
	"github.com/example/parish-roster/internal/persistence"
	"github.com/example/parish-roster/internal/scheduler"
)

// MinisterRepository exposes a persistence.MinisterRepository to the application.
type MinisterRepository struct {
	repo persistence.MinisterRepository
}

func NewMinisterRepository(repo persistence.MinisterRepository) *MinisterRepository {
	return &MinisterRepository{repo: repo}
}

func (a *MinisterRepository) CreateMinister(ctx context.Context, minister application.Minister) (application.Minister, error) {
	if err := a.repo.CreateMinister(ctx, toPersistenceMinister(minister)); err != nil {
		return application.Minister{}, err
	}
	return minister, nil
}

func (a *MinisterRepository) GetMinister(ctx context.Context, id string) (application.Minister, error) {
	model, err := a.repo.GetMinister(ctx, id)
	if err != nil {
		return application.Minister{}, err
	}
	return toApplicationMinister(model), nil
}

func (a *MinisterRepository) ListMinisters(ctx context.Context) ([]application.Minister, error) {
	models, err := a.repo.ListMinisters(ctx)
	if err != nil {
		return nil, err
	}
	ministers := make([]application.Minister, 0, len(models))
	for _, model := range models {
		ministers = append(ministers, toApplicationMinister(model))
	}
	return ministers, nil
}

func (a *MinisterRepository) DeleteMinister(ctx context.Context, id string) error {
	return a.repo.DeleteMinister(ctx, id)
}

// CatalogRepository exposes a persistence.CatalogRepository to the application.
type CatalogRepository struct {
	repo persistence.CatalogRepository
}

func NewCatalogRepository(repo persistence.CatalogRepository) *CatalogRepository {
	return &CatalogRepository{repo: repo}
}

func (a *CatalogRepository) CreateSlot(ctx context.Context, slot scheduler.RecurringSlot) error {
	return a.repo.CreateSlot(ctx, toPersistenceSlot(slot))
}

func (a *CatalogRepository) UpdateSlot(ctx context.Context, slot scheduler.RecurringSlot) error {
	return a.repo.UpdateSlot(ctx, toPersistenceSlot(slot))
}

func (a *CatalogRepository) GetSlot(ctx context.Context, id string) (scheduler.RecurringSlot, error) {
	model, err := a.repo.GetSlot(ctx, id)
	if err != nil {
		return scheduler.RecurringSlot{}, err
	}
	return toSchedulerSlot(model)
}

func (a *CatalogRepository) ListSlots(ctx context.Context) ([]scheduler.RecurringSlot, error) {
	models, err := a.repo.ListSlots(ctx)
	if err != nil {
		return nil, err
	}
	slots := make([]scheduler.RecurringSlot, 0, len(models))
	for _, model := range models {
		slot, err := toSchedulerSlot(model)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func (a *CatalogRepository) CreateExtra(ctx context.Context, extra scheduler.ExtraEvent) error {
	return a.repo.CreateExtra(ctx, toPersistenceExtra(extra))
}

func (a *CatalogRepository) UpdateExtra(ctx context.Context, extra scheduler.ExtraEvent) error {
	return a.repo.UpdateExtra(ctx, toPersistenceExtra(extra))
}

func (a *CatalogRepository) GetExtra(ctx context.Context, id string) (scheduler.ExtraEvent, error) {
	model, err := a.repo.GetExtra(ctx, id)
	if err != nil {
		return scheduler.ExtraEvent{}, err
	}
	return toSchedulerExtra(model)
}

func (a *CatalogRepository) ListExtras(ctx context.Context, from, to scheduler.Date) ([]scheduler.ExtraEvent, error) {
	models, err := a.repo.ListExtras(ctx, formatDate(from), formatDate(to))
	if err != nil {
		return nil, err
	}
	extras := make([]scheduler.ExtraEvent, 0, len(models))
	for _, model := range models {
		extra, err := toSchedulerExtra(model)
		if err != nil {
			return nil, err
		}
		extras = append(extras, extra)
	}
	return extras, nil
}

// BlockRepository exposes a persistence.BlockRepository to the application.
type BlockRepository struct {
	repo persistence.BlockRepository
}

func NewBlockRepository(repo persistence.BlockRepository) *BlockRepository {
	return &BlockRepository{repo: repo}
}

func (a *BlockRepository) CreateBlock(ctx context.Context, block scheduler.BlockedMass) error {
	return a.repo.CreateBlock(ctx, toPersistenceBlock(block))
}

func (a *BlockRepository) UpdateBlock(ctx context.Context, block scheduler.BlockedMass) error {
	return a.repo.UpdateBlock(ctx, toPersistenceBlock(block))
}

func (a *BlockRepository) GetBlock(ctx context.Context, id string) (scheduler.BlockedMass, error) {
	model, err := a.repo.GetBlock(ctx, id)
	if err != nil {
		return scheduler.BlockedMass{}, err
	}
	return toSchedulerBlock(model)
}

func (a *BlockRepository) DeleteBlock(ctx context.Context, id string) error {
	return a.repo.DeleteBlock(ctx, id)
}

func (a *BlockRepository) ListBlocks(ctx context.Context, from, to scheduler.Date) ([]scheduler.BlockedMass, error) {
	models, err := a.repo.ListBlocks(ctx, formatDate(from), formatDate(to))
	if err != nil {
		return nil, err
	}
	blocks := make([]scheduler.BlockedMass, 0, len(models))
	for _, model := range models {
		block, err := toSchedulerBlock(model)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// WindowRepository exposes a persistence.WindowRepository to the application.
type WindowRepository struct {
	repo persistence.WindowRepository
	now  func() time.Time
}

// NewWindowRepository stamps overrides with now when they are stored.
func NewWindowRepository(repo persistence.WindowRepository, now func() time.Time) *WindowRepository {
	if now == nil {
		now = time.Now
	}
	return &WindowRepository{repo: repo, now: now}
}

func (a *WindowRepository) LatestWindowConfig(ctx context.Context) (application.WindowSettings, error) {
	model, err := a.repo.LatestConfig(ctx)
	if err != nil {
		return application.WindowSettings{}, err
	}
	return toWindowSettings(model), nil
}

func (a *WindowRepository) AppendWindowConfig(ctx context.Context, settings application.WindowSettings) (application.WindowSettings, error) {
	model, err := a.repo.AppendConfig(ctx, toPersistenceWindowConfig(settings))
	if err != nil {
		return application.WindowSettings{}, err
	}
	return toWindowSettings(model), nil
}

func (a *WindowRepository) ListOverrides(ctx context.Context, year int, month time.Month) ([]scheduler.Override, error) {
	models, err := a.repo.ListOverrides(ctx, year, int(month))
	if err != nil {
		return nil, err
	}
	overrides := make([]scheduler.Override, 0, len(models))
	for _, model := range models {
		overrides = append(overrides, toSchedulerOverride(model))
	}
	return overrides, nil
}

func (a *WindowRepository) CreateOverride(ctx context.Context, override scheduler.Override) error {
	return a.repo.CreateOverride(ctx, toPersistenceOverride(override, a.now()))
}

func (a *WindowRepository) DeleteOverride(ctx context.Context, id string) error {
	return a.repo.DeleteOverride(ctx, id)
}

// SelectionRepository exposes a persistence.SelectionRepository to the application.
type SelectionRepository struct {
	repo persistence.SelectionRepository
}

func NewSelectionRepository(repo persistence.SelectionRepository) *SelectionRepository {
	return &SelectionRepository{repo: repo}
}

func (a *SelectionRepository) LoadSelections(ctx context.Context, ministerID string, from, to scheduler.Date) (scheduler.SlotSet, scheduler.ExtraSet, error) {
	set, err := a.repo.ListSelections(ctx, ministerID, formatDate(from), formatDate(to))
	if err != nil {
		return scheduler.SlotSet{}, scheduler.ExtraSet{}, err
	}

	keys := make([]scheduler.SlotKey, 0, len(set.Regular))
	for _, row := range set.Regular {
		d, err := parseDate(row.Date)
		if err != nil {
			return scheduler.SlotSet{}, scheduler.ExtraSet{}, err
		}
		keys = append(keys, scheduler.SlotKey{Date: d, SlotID: row.SlotID})
	}
	ids := make([]string, 0, len(set.Extras))
	for _, row := range set.Extras {
		ids = append(ids, row.ExtraID)
	}
	return scheduler.NewSlotSet(keys...), scheduler.NewExtraSet(ids...), nil
}

func (a *SelectionRepository) CommitSelections(ctx context.Context, ministerID string, changes []scheduler.SlotChange, committedAt time.Time, reserve application.ReserveFunc) error {
	request := persistence.CommitRequest{
		MinisterID:  ministerID,
		Changes:     make([]persistence.SelectionChange, 0, len(changes)),
		CommittedAt: committedAt,
	}
	for _, change := range changes {
		request.Changes = append(request.Changes, toSelectionChange(ministerID, change))
	}
	return a.repo.CommitSelections(ctx, request, reserveAdapter(reserve))
}

// reserveAdapter translates the store's view of a commit into scheduler terms
// and back.
func reserveAdapter(reserve application.ReserveFunc) persistence.ReserveFunc {
	return func(effective []persistence.SelectionChange, counts map[persistence.TargetKey]int) (map[persistence.TargetKey]int, error) {
		changes := make([]scheduler.SlotChange, 0, len(effective))
		for _, change := range effective {
			converted, err := toSlotChange(change)
			if err != nil {
				return nil, err
			}
			changes = append(changes, converted)
		}
		current := make(map[scheduler.Target]int, len(counts))
		for key, n := range counts {
			target, err := toTarget(key)
			if err != nil {
				return nil, err
			}
			current[target] = n
		}

		updated, err := reserve(changes, current)
		if err != nil {
			return nil, err
		}

		out := make(map[persistence.TargetKey]int, len(updated))
		for target, n := range updated {
			out[toTargetKey(target)] = n
		}
		return out, nil
	}
}

func (a *SelectionRepository) CountSelections(ctx context.Context, from, to scheduler.Date) (map[scheduler.Target]int, error) {
	rows, err := a.repo.CountSelections(ctx, formatDate(from), formatDate(to))
	if err != nil {
		return nil, err
	}
	counts := make(map[scheduler.Target]int, len(rows))
	for _, row := range rows {
		target, err := toTarget(row.Target)
		if err != nil {
			return nil, err
		}
		counts[target] = row.Count
	}
	return counts, nil
}

func (a *SelectionRepository) SummarizeMinisters(ctx context.Context, from, to scheduler.Date) ([]application.SelectionCount, error) {
	rows, err := a.repo.SummarizeMinisters(ctx, formatDate(from), formatDate(to))
	if err != nil {
		return nil, err
	}
	counts := make([]application.SelectionCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, application.SelectionCount{
			MinisterID: row.MinisterID,
			Regular:    row.Regular,
			Extras:     row.Extras,
		})
	}
	return counts, nil
}

func (a *SelectionRepository) ListAvailable(ctx context.Context, from, to scheduler.Date) ([]application.AvailableMinister, error) {
	rows, err := a.repo.ListAvailable(ctx, formatDate(from), formatDate(to))
	if err != nil {
		return nil, err
	}
	available := make([]application.AvailableMinister, 0, len(rows))
	for _, row := range rows {
		target, err := toTarget(row.Target)
		if err != nil {
			return nil, err
		}
		available = append(available, application.AvailableMinister{
			Target:     target,
			MinisterID: row.MinisterID,
			Name:       row.MinisterName,
		})
	}
	return available, nil
}

func (a *SelectionRepository) ReconcileOccupancy(ctx context.Context) (int, error) {
	return a.repo.ReconcileOccupancy(ctx)
}

var (
	_ application.MinisterRepository  = (*MinisterRepository)(nil)
	_ application.CatalogRepository   = (*CatalogRepository)(nil)
	_ application.BlockRepository     = (*BlockRepository)(nil)
	_ application.WindowRepository    = (*WindowRepository)(nil)
	_ application.SelectionRepository = (*SelectionRepository)(nil)
)
