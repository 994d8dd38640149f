package application

import (
	"time"

	"github.com/example/parish-roster/internal/scheduler"
)

// Principal represents the minister invoking a service method.
type Principal struct {
	MinisterID string
	IsAdmin    bool
}

// MinisterInput captures caller provided minister attributes.
type MinisterInput struct {
	Name    string `validate:"required,max=120"`
	IsAdmin bool
}

// Minister represents a registered extraordinary minister.
type Minister struct {
	ID        string
	Name      string
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlotInput captures the fields of a weekly mass time.
type SlotInput struct {
	Weekday     int    `validate:"min=0,max=6"`
	Time        string `validate:"required,timeofday"`
	MinRequired int    `validate:"min=0"`
	MaxAllowed  int    `validate:"min=1,gtefield=MinRequired"`
	Active      *bool
}

// ExtraInput captures the fields of a one-off mass.
type ExtraInput struct {
	Date        string `validate:"required,isodate"`
	Time        string `validate:"required,timeofday"`
	Title       string `validate:"required,max=200"`
	MinRequired int    `validate:"min=0"`
	MaxAllowed  int    `validate:"min=1,gtefield=MinRequired"`
	Active      *bool
}

// BlockInput captures an administrative blackout. An empty Times blocks the
// whole date.
type BlockInput struct {
	Date   string   `validate:"required,isodate"`
	Times  []string `validate:"dive,timeofday"`
	Reason string   `validate:"max=500"`
}

// WindowConfigInput captures a new availability window configuration.
type WindowConfigInput struct {
	DaysBeforeNextMonth int `validate:"min=1,max=28"`
	HardClose           bool
}

// WindowSettings is a stored window configuration version.
type WindowSettings struct {
	Sequence  int64
	Config    scheduler.WindowConfig
	CreatedBy string
	CreatedAt time.Time
}

// OverrideInput captures a custom manual release of a month.
type OverrideInput struct {
	Year      int `validate:"min=2000,max=2100"`
	Month     int `validate:"min=1,max=12"`
	OpenFrom  time.Time
	OpenUntil time.Time
}

// MonthSnapshot is the catalog and policy state used to edit one month.
type MonthSnapshot struct {
	Catalog   *scheduler.Catalog
	Blocks    *scheduler.BlockOverlay
	Window    scheduler.WindowConfig
	Overrides []scheduler.Override
}

// OpenDraftParams identifies the minister and month of a new draft. An empty
// MinisterID opens a draft for the principal.
type OpenDraftParams struct {
	Principal  Principal
	MinisterID string
	Year       int
	Month      int
}

// DraftState is a read-only view of a draft.
type DraftState struct {
	ID         string
	MinisterID string
	Year       int
	Month      time.Month
	Window     scheduler.Decision
	Regular    []scheduler.SlotKey
	Extras     []string
	Diff       scheduler.Diff
	Pending    bool
}

// CommitResult summarizes a successful commit.
type CommitResult struct {
	Inserted int
	Deleted  int
}

// OccupancyEntry is the current fill of one mass in a month.
type OccupancyEntry struct {
	Target      scheduler.Target
	Date        scheduler.Date
	Time        scheduler.TimeOfDay
	Title       string
	Current     int
	MinRequired int
	MaxAllowed  int
	Blocked     bool
}

// MonthOccupancy lists every active mass of a month in chronological order.
type MonthOccupancy struct {
	Year    int
	Month   time.Month
	Entries []OccupancyEntry
}

// CoverageStatus classifies a mass in the coverage report.
type CoverageStatus string

const (
	// CoverageLow marks masses below their minimum.
	CoverageLow CoverageStatus = "LOW"
	// CoverageFull marks masses at or above their maximum.
	CoverageFull CoverageStatus = "FULL"
	// CoverageOK marks everything else.
	CoverageOK CoverageStatus = "OK"
)

// CoverageRow is one line of the coverage report.
type CoverageRow struct {
	OccupancyEntry
	Status CoverageStatus
}

// MinisterSummary counts a minister's selections in a month.
type MinisterSummary struct {
	MinisterID string
	Name       string
	Regular    int
	Extras     int
}

// Total returns the number of selections across regular and extra masses.
func (s MinisterSummary) Total() int {
	return s.Regular + s.Extras
}

// SelectionCount is the raw per-minister count returned by the store.
type SelectionCount struct {
	MinisterID string
	Regular    int
	Extras     int
}

// AvailableMinister is a minister holding a committed selection of Target.
type AvailableMinister struct {
	Target     scheduler.Target
	MinisterID string
	Name       string
}

// MinisterRef names a minister in a report.
type MinisterRef struct {
	ID   string
	Name string
}

// MassAvailability is one mass of the availability report with the ministers
// who declared themselves available for it.
type MassAvailability struct {
	OccupancyEntry
	Ministers []MinisterRef
}
