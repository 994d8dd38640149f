package application

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/parish-roster/internal/scheduler"
)

// SnapshotLoader reads the catalog, blocks and window policy of a month concurrently.
type SnapshotLoader struct {
	catalog CatalogRepository
	blocks  BlockRepository
	window  *WindowService
}

// NewSnapshotLoader constructs a loader. Nil repositories yield empty snapshots.
func NewSnapshotLoader(catalog CatalogRepository, blocks BlockRepository, window *WindowService) *SnapshotLoader {
	return &SnapshotLoader{catalog: catalog, blocks: blocks, window: window}
}

// Load returns the state needed to edit or commit (year, month). Any store
// failure is reported as ErrPersistence.
func (l *SnapshotLoader) Load(ctx context.Context, year int, month time.Month) (MonthSnapshot, error) {
	from, to := scheduler.FirstOfMonth(year, month), scheduler.LastOfMonth(year, month)

	var (
		slots     []scheduler.RecurringSlot
		extras    []scheduler.ExtraEvent
		blocks    []scheduler.BlockedMass
		settings  = WindowSettings{Config: scheduler.DefaultWindowConfig()}
		overrides []scheduler.Override
	)

	g, gctx := errgroup.WithContext(ctx)
	if l.catalog != nil {
		g.Go(func() (err error) {
			slots, err = l.catalog.ListSlots(gctx)
			return err
		})
		g.Go(func() (err error) {
			extras, err = l.catalog.ListExtras(gctx, from, to)
			return err
		})
	}
	if l.blocks != nil {
		g.Go(func() (err error) {
			blocks, err = l.blocks.ListBlocks(gctx, from, to)
			return err
		})
	}
	if l.window != nil {
		g.Go(func() (err error) {
			settings, err = l.window.Settings(gctx)
			return err
		})
		g.Go(func() (err error) {
			overrides, err = l.window.Overrides(gctx, year, month)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return MonthSnapshot{}, persistenceError(err)
	}

	return MonthSnapshot{
		Catalog:   scheduler.NewCatalog(slots, extras),
		Blocks:    scheduler.NewBlockOverlay(blocks),
		Window:    settings.Config,
		Overrides: overrides,
	}, nil
}

// Location returns the parish time zone.
func (l *SnapshotLoader) Location() *time.Location {
	if l.window == nil {
		return time.UTC
	}
	return l.window.Location()
}
