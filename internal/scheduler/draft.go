package scheduler

import (
	"time"

	"github.com/example/parish-roster/internal/recurrence"
)

// RecurrenceMode selects whether ApplyRecurrence adds or removes dates.
type RecurrenceMode string

const (
	RecurrenceSet   RecurrenceMode = "set"
	RecurrenceClear RecurrenceMode = "clear"
)

// Valid reports whether the mode is known.
func (m RecurrenceMode) Valid() bool {
	return m == RecurrenceSet || m == RecurrenceClear
}

// Diff lists the pending changes of a draft against its committed baseline.
// Each list is in chronological order.
type Diff struct {
	ToInsertRegular []SlotKey
	ToDeleteRegular []SlotKey
	ToInsertExtras  []string
	ToDeleteExtras  []string
}

// Empty reports whether the diff has no changes.
func (d Diff) Empty() bool {
	return len(d.ToInsertRegular) == 0 && len(d.ToDeleteRegular) == 0 &&
		len(d.ToInsertExtras) == 0 && len(d.ToDeleteExtras) == 0
}

// Changes flattens the diff into capacity changes, deletions first.
func (d Diff) Changes() []SlotChange {
	changes := make([]SlotChange, 0, len(d.ToInsertRegular)+len(d.ToDeleteRegular)+len(d.ToInsertExtras)+len(d.ToDeleteExtras))
	for _, key := range d.ToDeleteRegular {
		changes = append(changes, SlotChange{Target: key.Target(), Delta: -1})
	}
	for _, id := range d.ToDeleteExtras {
		changes = append(changes, SlotChange{Target: ExtraTarget(id), Delta: -1})
	}
	for _, key := range d.ToInsertRegular {
		changes = append(changes, SlotChange{Target: key.Target(), Delta: 1})
	}
	for _, id := range d.ToInsertExtras {
		changes = append(changes, SlotChange{Target: ExtraTarget(id), Delta: 1})
	}
	return changes
}

// DraftInputs seeds a new draft.
type DraftInputs struct {
	ID               string
	MinisterID       string
	Year             int
	Month            time.Month
	Catalog          *Catalog
	Blocks           *BlockOverlay
	Window           WindowConfig
	Overrides        []Override
	Location         *time.Location
	CommittedRegular SlotSet
	CommittedExtras  ExtraSet
}

// Draft holds one minister's uncommitted edits for one month. A Draft is not
// safe for concurrent use.
type Draft struct {
	id         string
	ministerID string
	year       int
	month      time.Month
	location   *time.Location

	catalog   *Catalog
	blocks    *BlockOverlay
	window    WindowConfig
	overrides []Override

	committedRegular SlotSet
	draftRegular     SlotSet
	committedExtras  ExtraSet
	draftExtras      ExtraSet
}

// NewDraft builds a draft whose working sets start equal to the committed baseline.
func NewDraft(in DraftInputs) *Draft {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Draft{
		id:               in.ID,
		ministerID:       in.MinisterID,
		year:             in.Year,
		month:            in.Month,
		location:         loc,
		catalog:          in.Catalog,
		blocks:           in.Blocks,
		window:           in.Window,
		overrides:        append([]Override(nil), in.Overrides...),
		committedRegular: in.CommittedRegular,
		draftRegular:     in.CommittedRegular,
		committedExtras:  in.CommittedExtras,
		draftExtras:      in.CommittedExtras,
	}
}

func (d *Draft) ID() string               { return d.id }
func (d *Draft) MinisterID() string       { return d.ministerID }
func (d *Draft) Year() int                { return d.year }
func (d *Draft) Month() time.Month        { return d.month }
func (d *Draft) Location() *time.Location { return d.location }
func (d *Draft) Catalog() *Catalog        { return d.catalog }
func (d *Draft) Blocks() *BlockOverlay    { return d.blocks }

// Regular returns the working set of slot selections.
func (d *Draft) Regular() SlotSet { return d.draftRegular }

// Extras returns the working set of extra selections.
func (d *Draft) Extras() ExtraSet { return d.draftExtras }

// CommittedRegular returns the committed baseline of slot selections.
func (d *Draft) CommittedRegular() SlotSet { return d.committedRegular }

// CommittedExtras returns the committed baseline of extra selections.
func (d *Draft) CommittedExtras() ExtraSet { return d.committedExtras }

// Refresh replaces the reference data used for validation without touching
// the working or committed sets.
func (d *Draft) Refresh(catalog *Catalog, blocks *BlockOverlay, window WindowConfig, overrides []Override) {
	d.catalog = catalog
	d.blocks = blocks
	d.window = window
	d.overrides = append([]Override(nil), overrides...)
}

// Window evaluates the editing window for the draft month at now.
func (d *Draft) Window(now time.Time) Decision {
	return IsEditable(d.year, d.month, now, d.window, d.overrides, d.location)
}

func (d *Draft) requireEditable(now time.Time) error {
	decision := d.Window(now)
	if !decision.Allowed {
		return &WindowNotEditableError{Decision: decision}
	}
	return nil
}

// Toggle flips the selection of slotID on date and reports whether it is now selected.
func (d *Draft) Toggle(date Date, slotID string, now time.Time) (bool, error) {
	if err := d.requireEditable(now); err != nil {
		return false, err
	}
	key := SlotKey{Date: date, SlotID: slotID}
	if d.draftRegular.Has(key) {
		if err := d.slotBlocked(date, slotID); err != nil {
			return false, err
		}
		d.draftRegular = d.draftRegular.Without(key)
		return false, nil
	}
	slot, err := d.insertableSlot(date, slotID)
	if err != nil {
		return false, err
	}
	if err := d.slotBlocked(date, slot.ID); err != nil {
		return false, err
	}
	d.draftRegular = d.draftRegular.With(key)
	return true, nil
}

// ToggleExtra flips the selection of an extra event and reports whether it is now selected.
func (d *Draft) ToggleExtra(extraID string, now time.Time) (bool, error) {
	if err := d.requireEditable(now); err != nil {
		return false, err
	}
	if d.draftExtras.Has(extraID) {
		if extra, ok := d.catalog.Extra(extraID); ok {
			if block, ok := d.blocks.Lookup(extra.Date, extra.Time); ok {
				return false, &BlockedSlotError{Date: extra.Date, Time: extra.Time, Reason: block.Reason}
			}
		}
		d.draftExtras = d.draftExtras.Without(extraID)
		return false, nil
	}
	extra, err := d.insertableExtra(extraID)
	if err != nil {
		return false, err
	}
	if block, ok := d.blocks.Lookup(extra.Date, extra.Time); ok {
		return false, &BlockedSlotError{Date: extra.Date, Time: extra.Time, Reason: block.Reason}
	}
	d.draftExtras = d.draftExtras.With(extraID)
	return true, nil
}

// slotBlocked returns a *BlockedSlotError when slotID on date is vetoed. A slot
// missing from the catalog is only vetoed by a whole-day block.
func (d *Draft) slotBlocked(date Date, slotID string) error {
	slot, ok := d.catalog.Slot(slotID)
	if !ok {
		if !d.blocks.DateBlocked(date) {
			return nil
		}
		block, _ := d.blocks.Lookup(date, 0)
		return &BlockedSlotError{Date: date, Reason: block.Reason}
	}
	if block, ok := d.blocks.Lookup(date, slot.Time); ok {
		return &BlockedSlotError{Date: date, Time: slot.Time, Reason: block.Reason}
	}
	return nil
}

// ApplyRecurrence selects (RecurrenceSet) or clears (RecurrenceClear) slotID on
// every date of the draft month falling on weekday. Blocked dates are skipped
// in both modes. It returns the number of selections that changed.
func (d *Draft) ApplyRecurrence(weekday time.Weekday, slotID string, mode RecurrenceMode, now time.Time) (int, error) {
	if err := d.requireEditable(now); err != nil {
		return 0, err
	}
	if !mode.Valid() {
		return 0, &UnknownTargetError{Target: Target{Kind: TargetSlot, SlotID: slotID}, Reason: "modo de recorrência inválido"}
	}

	days := recurrence.NewEngine(d.location).MonthWeekdays(d.year, d.month, weekday)

	changed := 0
	if mode == RecurrenceClear {
		for _, day := range days {
			key := SlotKey{Date: DateOf(day), SlotID: slotID}
			if d.draftRegular.Has(key) && d.slotBlocked(key.Date, slotID) == nil {
				d.draftRegular = d.draftRegular.Without(key)
				changed++
			}
		}
		return changed, nil
	}

	slot, ok := d.catalog.Slot(slotID)
	switch {
	case !ok:
		return 0, &UnknownTargetError{Target: Target{Kind: TargetSlot, SlotID: slotID}, Reason: "horário inexistente"}
	case !slot.Active:
		return 0, &UnknownTargetError{Target: Target{Kind: TargetSlot, SlotID: slotID}, Reason: "horário inativo"}
	case slot.Weekday != weekday:
		return 0, &UnknownTargetError{Target: Target{Kind: TargetSlot, SlotID: slotID}, Reason: "dia da semana não corresponde ao horário"}
	}

	added := make([]SlotKey, 0, len(days))
	for _, day := range days {
		date := DateOf(day)
		key := SlotKey{Date: date, SlotID: slotID}
		if d.draftRegular.Has(key) || d.blocks.IsBlocked(date, slot.Time) {
			continue
		}
		added = append(added, key)
	}
	d.draftRegular = d.draftRegular.Union(NewSlotSet(added...))
	return len(added), nil
}

// ValidateInsertions re-checks every pending insertion against the current
// catalog and block overlay, returning the first failure in chronological order.
func (d *Draft) ValidateInsertions() error {
	diff := d.Diff()
	for _, key := range diff.ToInsertRegular {
		slot, err := d.insertableSlot(key.Date, key.SlotID)
		if err != nil {
			return err
		}
		if block, ok := d.blocks.Lookup(key.Date, slot.Time); ok {
			return &BlockedSlotError{Date: key.Date, Time: slot.Time, Reason: block.Reason}
		}
	}
	for _, id := range diff.ToInsertExtras {
		extra, err := d.insertableExtra(id)
		if err != nil {
			return err
		}
		if block, ok := d.blocks.Lookup(extra.Date, extra.Time); ok {
			return &BlockedSlotError{Date: extra.Date, Time: extra.Time, Reason: block.Reason}
		}
	}
	return nil
}

func (d *Draft) insertableSlot(date Date, slotID string) (RecurringSlot, error) {
	target := SlotTarget(date, slotID)
	slot, ok := d.catalog.Slot(slotID)
	switch {
	case !ok:
		return RecurringSlot{}, &UnknownTargetError{Target: target, Reason: "horário inexistente"}
	case !slot.Active:
		return RecurringSlot{}, &UnknownTargetError{Target: target, Reason: "horário inativo"}
	case !date.InMonth(d.year, d.month):
		return RecurringSlot{}, &UnknownTargetError{Target: target, Reason: "data fora do mês"}
	case date.Weekday() != slot.Weekday:
		return RecurringSlot{}, &UnknownTargetError{Target: target, Reason: "dia da semana não corresponde ao horário"}
	}
	return slot, nil
}

func (d *Draft) insertableExtra(extraID string) (ExtraEvent, error) {
	target := ExtraTarget(extraID)
	extra, ok := d.catalog.Extra(extraID)
	switch {
	case !ok:
		return ExtraEvent{}, &UnknownTargetError{Target: target, Reason: "missa extra inexistente"}
	case !extra.Active:
		return ExtraEvent{}, &UnknownTargetError{Target: target, Reason: "missa extra inativa"}
	case !extra.Date.InMonth(d.year, d.month):
		return ExtraEvent{}, &UnknownTargetError{Target: target, Reason: "data fora do mês"}
	}
	return extra, nil
}

// Diff computes the pending changes. It is pure and repeated calls return equal results.
func (d *Draft) Diff() Diff {
	return Diff{
		ToInsertRegular: d.sortKeys(d.draftRegular.Minus(d.committedRegular).Keys()),
		ToDeleteRegular: d.sortKeys(d.committedRegular.Minus(d.draftRegular).Keys()),
		ToInsertExtras:  d.sortExtras(d.draftExtras.Minus(d.committedExtras).IDs()),
		ToDeleteExtras:  d.sortExtras(d.committedExtras.Minus(d.draftExtras).IDs()),
	}
}

func (d *Draft) sortKeys(keys []SlotKey) []SlotKey {
	targets := make([]Target, len(keys))
	for i, key := range keys {
		targets[i] = key.Target()
	}
	d.catalog.SortTargets(targets)
	out := make([]SlotKey, len(targets))
	for i, target := range targets {
		out[i] = SlotKey{Date: target.Date, SlotID: target.SlotID}
	}
	return out
}

func (d *Draft) sortExtras(ids []string) []string {
	targets := make([]Target, len(ids))
	for i, id := range ids {
		targets[i] = ExtraTarget(id)
	}
	d.catalog.SortTargets(targets)
	out := make([]string, len(targets))
	for i, target := range targets {
		out[i] = target.ExtraID
	}
	return out
}

// HasPendingChanges reports whether the working sets differ from the baseline.
func (d *Draft) HasPendingChanges() bool {
	return !d.draftRegular.Equal(d.committedRegular) || !d.draftExtras.Equal(d.committedExtras)
}

// Discard resets the working sets to the committed baseline.
func (d *Draft) Discard() {
	d.draftRegular = d.committedRegular
	d.draftExtras = d.committedExtras
}

// MarkCommitted makes the working sets the new baseline.
func (d *Draft) MarkCommitted() {
	d.committedRegular = d.draftRegular
	d.committedExtras = d.draftExtras
}
