package application

import (
	"errors"
	"sort"
	"time"

	"github.com/example/parish-roster/internal/scheduler"
)

// Ledger enforces mass capacities. Counts always come from the store inside
// the commit transaction; the ledger only supplies limits and labels.
type Ledger struct {
	catalog *scheduler.Catalog
}

// NewLedger builds a ledger over the limits of catalog.
func NewLedger(catalog *scheduler.Catalog) *Ledger {
	return &Ledger{catalog: catalog}
}

// Reserve checks changes against counts and returns the resulting counts.
// It satisfies ReserveFunc.
func (l *Ledger) Reserve(changes []scheduler.SlotChange, counts map[scheduler.Target]int) (map[scheduler.Target]int, error) {
	limits := make(map[scheduler.Target]int)
	for _, target := range scheduler.ChangedTargets(changes) {
		if _, maxAllowed, ok := l.catalog.Limits(target); ok {
			limits[target] = maxAllowed
		}
	}

	next, err := scheduler.CheckAndReserve(changes, counts, limits)
	var capErr *scheduler.CapacityError
	if errors.As(err, &capErr) {
		return nil, &CapacityExceededError{
			Target:  capErr.Target,
			Current: capErr.Current,
			Max:     capErr.Max,
			Label:   l.catalog.Label(capErr.Target),
		}
	}
	return next, err
}

// Occupancy lists every active mass of (year, month) with its current count.
func (l *Ledger) Occupancy(year int, month time.Month, blocks *scheduler.BlockOverlay, counts map[scheduler.Target]int) MonthOccupancy {
	out := MonthOccupancy{Year: year, Month: month}

	first, last := scheduler.FirstOfMonth(year, month), scheduler.LastOfMonth(year, month)
	for date := first; !last.Before(date); date = date.AddDays(1) {
		for _, slot := range l.catalog.ActiveSlotsOn(date.Weekday()) {
			target := scheduler.SlotTarget(date, slot.ID)
			out.Entries = append(out.Entries, OccupancyEntry{
				Target:      target,
				Date:        date,
				Time:        slot.Time,
				Current:     counts[target],
				MinRequired: slot.MinRequired,
				MaxAllowed:  slot.MaxAllowed,
				Blocked:     blocks.IsBlocked(date, slot.Time),
			})
		}
	}
	for _, extra := range l.catalog.ActiveExtrasIn(year, month) {
		target := scheduler.ExtraTarget(extra.ID)
		out.Entries = append(out.Entries, OccupancyEntry{
			Target:      target,
			Date:        extra.Date,
			Time:        extra.Time,
			Title:       extra.Title,
			Current:     counts[target],
			MinRequired: extra.MinRequired,
			MaxAllowed:  extra.MaxAllowed,
			Blocked:     blocks.IsBlocked(extra.Date, extra.Time),
		})
	}

	sort.SliceStable(out.Entries, func(i, j int) bool {
		a, b := out.Entries[i], out.Entries[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.Target.Kind != b.Target.Kind {
			return a.Target.Kind == scheduler.TargetSlot
		}
		return a.Target.String() < b.Target.String()
	})
	return out
}
