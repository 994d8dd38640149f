package persistence

import "time"

// Dates are stored as YYYY-MM-DD and times of day as HH:MM text columns.

// Minister represents a registered extraordinary minister.
type Minister struct {
	ID        string
	Name      string
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecurringSlot represents a weekly mass time.
type RecurringSlot struct {
	ID          string
	Weekday     int
	Time        string
	MinRequired int
	MaxAllowed  int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ExtraEvent represents a one-off dated mass.
type ExtraEvent struct {
	ID          string
	Date        string
	Time        string
	Title       string
	MinRequired int
	MaxAllowed  int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BlockedMass represents an administrative blackout. A nil Times blocks the whole date.
type BlockedMass struct {
	ID        string
	Date      string
	Times     []string
	Reason    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WindowConfig is one version of the availability window configuration.
type WindowConfig struct {
	Sequence            int64
	DaysBeforeNextMonth int
	HardClose           bool
	CreatedBy           string
	CreatedAt           time.Time
}

// WindowOverride opens a month for editing between two instants.
type WindowOverride struct {
	ID        string
	Year      int
	Month     int
	OpenFrom  time.Time
	OpenUntil time.Time
	CreatedBy string
	CreatedAt time.Time
}

// Target kinds stored in TargetKey.Kind.
const (
	TargetKindSlot  = "slot"
	TargetKindExtra = "extra"
)

// TargetKey identifies a capacity target. Date and SlotID are set for slot
// targets; ExtraID is set for extra targets.
type TargetKey struct {
	Kind    string
	Date    string
	SlotID  string
	ExtraID string
}

// RegularSelection is a committed (minister, date, slot) pair.
type RegularSelection struct {
	MinisterID string
	Date       string
	SlotID     string
}

// ExtraSelection is a committed (minister, extra) pair.
type ExtraSelection struct {
	MinisterID string
	ExtraID    string
}

// SelectionSet groups a minister's committed selections.
type SelectionSet struct {
	Regular []RegularSelection
	Extras  []ExtraSelection
}

// SelectionChange is one row to delete or insert. Exactly one of Regular or
// Extra is set.
type SelectionChange struct {
	Insert  bool
	Regular *RegularSelection
	Extra   *ExtraSelection
}

// Target returns the capacity target touched by the change.
func (c SelectionChange) Target() TargetKey {
	if c.Extra != nil {
		return TargetKey{Kind: TargetKindExtra, ExtraID: c.Extra.ExtraID}
	}
	return TargetKey{Kind: TargetKindSlot, Date: c.Regular.Date, SlotID: c.Regular.SlotID}
}

// CommitRequest describes the changes of one minister committed atomically.
type CommitRequest struct {
	MinisterID  string
	Changes     []SelectionChange
	CommittedAt time.Time
}

// ReserveFunc validates the effective changes against the counts read inside
// the commit transaction and returns the counts to store. Returning an error
// aborts the transaction.
type ReserveFunc func(effective []SelectionChange, counts map[TargetKey]int) (map[TargetKey]int, error)

// OccupancyCount is the number of committed selections for a target.
type OccupancyCount struct {
	Target TargetKey
	Count  int
}

// MinisterSelectionCount summarizes a minister's selections in a period.
type MinisterSelectionCount struct {
	MinisterID string
	Regular    int
	Extras     int
}

// AvailableMinister is one committed selection joined with its minister.
type AvailableMinister struct {
	Target       TargetKey
	MinisterID   string
	MinisterName string
}
