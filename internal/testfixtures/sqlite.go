package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/parish-roster/internal/adapters"
	"github.com/example/parish-roster/internal/persistence/sqlite"
	"github.com/example/parish-roster/internal/persistence/sqlite/migration"
)

// SQLiteHarness is a migrated database in a temporary directory together with
// the application facing repositories over it.
type SQLiteHarness struct {
	Storage *sqlite.Storage

	Ministers  *adapters.MinisterRepository
	Catalog    *adapters.CatalogRepository
	Blocks     *adapters.BlockRepository
	Window     *adapters.WindowRepository
	Selections *adapters.SelectionRepository

	cleanup func()
}

// Close releases the database. It is also registered with tb.Cleanup.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a fresh database. now stamps stored
// overrides; nil uses time.Now.
func NewSQLiteHarness(tb testing.TB, now func() time.Time) *SQLiteHarness {
	tb.Helper()

	cfg := migration.DefaultSQLiteConfig(filepath.Join(tb.TempDir(), "roster.db"))
	storage, err := sqlite.Open(context.Background(), cfg, nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:    storage,
		Ministers:  adapters.NewMinisterRepository(storage.Ministers),
		Catalog:    adapters.NewCatalogRepository(storage.Catalog),
		Blocks:     adapters.NewBlockRepository(storage.Blocks),
		Window:     adapters.NewWindowRepository(storage.Window, now),
		Selections: adapters.NewSelectionRepository(storage.Selections),
		cleanup: func() {
			_ = storage.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}
