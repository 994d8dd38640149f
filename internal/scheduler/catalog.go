package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// RecurringSlot is a weekly mass time with a capacity range.
type RecurringSlot struct {
	ID          string
	Weekday     time.Weekday
	Time        TimeOfDay
	MinRequired int
	MaxAllowed  int
	Active      bool
}

// ExtraEvent is a one-off dated mass with its own capacity range.
type ExtraEvent struct {
	ID          string
	Date        Date
	Time        TimeOfDay
	Title       string
	MinRequired int
	MaxAllowed  int
	Active      bool
}

// Catalog is a read-only registry of recurring slots and extra events.
// A nil *Catalog behaves as an empty catalog.
type Catalog struct {
	slots  map[string]RecurringSlot
	extras map[string]ExtraEvent
}

// NewCatalog indexes the provided slots and extras. Later duplicates win.
func NewCatalog(slots []RecurringSlot, extras []ExtraEvent) *Catalog {
	c := &Catalog{
		slots:  make(map[string]RecurringSlot, len(slots)),
		extras: make(map[string]ExtraEvent, len(extras)),
	}
	for _, slot := range slots {
		c.slots[slot.ID] = slot
	}
	for _, extra := range extras {
		c.extras[extra.ID] = extra
	}
	return c
}

// Slot looks up a recurring slot by id.
func (c *Catalog) Slot(id string) (RecurringSlot, bool) {
	if c == nil {
		return RecurringSlot{}, false
	}
	slot, ok := c.slots[id]
	return slot, ok
}

// Extra looks up an extra event by id.
func (c *Catalog) Extra(id string) (ExtraEvent, bool) {
	if c == nil {
		return ExtraEvent{}, false
	}
	extra, ok := c.extras[id]
	return extra, ok
}

// Slots returns every slot ordered by weekday, time and id.
func (c *Catalog) Slots() []RecurringSlot {
	if c == nil {
		return nil
	}
	out := make([]RecurringSlot, 0, len(c.slots))
	for _, slot := range c.slots {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ActiveSlotsOn returns the active slots for a weekday ordered by time.
func (c *Catalog) ActiveSlotsOn(weekday time.Weekday) []RecurringSlot {
	var out []RecurringSlot
	for _, slot := range c.Slots() {
		if slot.Active && slot.Weekday == weekday {
			out = append(out, slot)
		}
	}
	return out
}

// Extras returns every extra event ordered by date, time and id.
func (c *Catalog) Extras() []ExtraEvent {
	if c == nil {
		return nil
	}
	out := make([]ExtraEvent, 0, len(c.extras))
	for _, extra := range c.extras {
		out = append(out, extra)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ActiveExtrasIn returns active extras dated within the month.
func (c *Catalog) ActiveExtrasIn(year int, month time.Month) []ExtraEvent {
	var out []ExtraEvent
	for _, extra := range c.Extras() {
		if extra.Active && extra.Date.InMonth(year, month) {
			out = append(out, extra)
		}
	}
	return out
}

// Limits returns the capacity range for a target.
func (c *Catalog) Limits(target Target) (minRequired, maxAllowed int, ok bool) {
	switch target.Kind {
	case TargetSlot:
		slot, found := c.Slot(target.SlotID)
		if !found {
			return 0, 0, false
		}
		return slot.MinRequired, slot.MaxAllowed, true
	case TargetExtra:
		extra, found := c.Extra(target.ExtraID)
		if !found {
			return 0, 0, false
		}
		return extra.MinRequired, extra.MaxAllowed, true
	}
	return 0, 0, false
}

// When returns the date and time at which the target takes place.
func (c *Catalog) When(target Target) (Date, TimeOfDay, bool) {
	switch target.Kind {
	case TargetSlot:
		slot, ok := c.Slot(target.SlotID)
		if !ok {
			return Date{}, 0, false
		}
		return target.Date, slot.Time, true
	case TargetExtra:
		extra, ok := c.Extra(target.ExtraID)
		if !ok {
			return Date{}, 0, false
		}
		return extra.Date, extra.Time, true
	}
	return Date{}, 0, false
}

// Label returns a short human readable description of a target.
func (c *Catalog) Label(target Target) string {
	if target.Kind == TargetExtra {
		if extra, ok := c.Extra(target.ExtraID); ok {
			return fmt.Sprintf("%q %s %s", extra.Title, extra.Date, extra.Time)
		}
		return target.String()
	}
	if slot, ok := c.Slot(target.SlotID); ok {
		return fmt.Sprintf("%s %s", target.Date, slot.Time)
	}
	return target.String()
}

// SortTargets orders targets chronologically; unknown targets sort last by key.
func (c *Catalog) SortTargets(targets []Target) {
	sort.SliceStable(targets, func(i, j int) bool {
		di, ti, oki := c.When(targets[i])
		dj, tj, okj := c.When(targets[j])
		if oki != okj {
			return oki
		}
		if oki {
			if di != dj {
				return di.Before(dj)
			}
			if ti != tj {
				return ti < tj
			}
		}
		return targets[i].String() < targets[j].String()
	})
}
