package persistence

import "context"

// MinisterRepository exposes CRUD operations for ministers.
type MinisterRepository interface {
	CreateMinister(ctx context.Context, minister Minister) error
	GetMinister(ctx context.Context, id string) (Minister, error)
	ListMinisters(ctx context.Context) ([]Minister, error)
	DeleteMinister(ctx context.Context, id string) error
}

// CatalogRepository stores recurring slots and extra events.
type CatalogRepository interface {
	CreateSlot(ctx context.Context, slot RecurringSlot) error
	UpdateSlot(ctx context.Context, slot RecurringSlot) error
	GetSlot(ctx context.Context, id string) (RecurringSlot, error)
	ListSlots(ctx context.Context) ([]RecurringSlot, error)

	CreateExtra(ctx context.Context, extra ExtraEvent) error
	UpdateExtra(ctx context.Context, extra ExtraEvent) error
	GetExtra(ctx context.Context, id string) (ExtraEvent, error)
	// ListExtras returns extras dated within [from, to]; empty bounds are open.
	ListExtras(ctx context.Context, from, to string) ([]ExtraEvent, error)
}

// BlockRepository stores blocked masses.
type BlockRepository interface {
	CreateBlock(ctx context.Context, block BlockedMass) error
	UpdateBlock(ctx context.Context, block BlockedMass) error
	GetBlock(ctx context.Context, id string) (BlockedMass, error)
	DeleteBlock(ctx context.Context, id string) error
	// ListBlocks returns blocks dated within [from, to]; empty bounds are open.
	ListBlocks(ctx context.Context, from, to string) ([]BlockedMass, error)
}

// WindowRepository stores versioned window configuration and overrides.
type WindowRepository interface {
	AppendConfig(ctx context.Context, config WindowConfig) (WindowConfig, error)
	// LatestConfig returns ErrNotFound when no configuration was ever saved.
	LatestConfig(ctx context.Context) (WindowConfig, error)
	CreateOverride(ctx context.Context, override WindowOverride) error
	DeleteOverride(ctx context.Context, id string) error
	// ListOverrides returns overrides for (year, month); year 0 lists every override.
	ListOverrides(ctx context.Context, year, month int) ([]WindowOverride, error)
}

// SelectionRepository stores committed selections and occupancy snapshots.
type SelectionRepository interface {
	// ListSelections returns a minister's selections dated within [from, to].
	ListSelections(ctx context.Context, ministerID, from, to string) (SelectionSet, error)
	// CommitSelections applies a request atomically. Deleting a missing row and
	// inserting an existing row are dropped before reserve is called.
	CommitSelections(ctx context.Context, request CommitRequest, reserve ReserveFunc) error
	// CountSelections counts committed selections per target dated within [from, to].
	CountSelections(ctx context.Context, from, to string) ([]OccupancyCount, error)
	// SummarizeMinisters counts selections per minister dated within [from, to].
	SummarizeMinisters(ctx context.Context, from, to string) ([]MinisterSelectionCount, error)
	// ListAvailable returns every committed selection dated within [from, to]
	// with the minister's name, ordered by target then name.
	ListAvailable(ctx context.Context, from, to string) ([]AvailableMinister, error)
	// ReconcileOccupancy rewrites occupancy snapshots that differ from the
	// selection rows and returns how many were corrected.
	ReconcileOccupancy(ctx context.Context) (int, error)
}
