package scheduler

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

var testLocation = time.FixedZone("BRT", -3*60*60)

func testCatalog() *Catalog {
	return NewCatalog(
		[]RecurringSlot{
			{ID: "sun-8", Weekday: time.Sunday, Time: NewTimeOfDay(8, 0), MinRequired: 1, MaxAllowed: 2, Active: true},
			{ID: "sun-10", Weekday: time.Sunday, Time: NewTimeOfDay(10, 0), MinRequired: 1, MaxAllowed: 2, Active: true},
			{ID: "mon-19", Weekday: time.Monday, Time: NewTimeOfDay(19, 0), MinRequired: 1, MaxAllowed: 3, Active: true},
			{ID: "mon-7", Weekday: time.Monday, Time: NewTimeOfDay(7, 0), MinRequired: 1, MaxAllowed: 3, Active: false},
		},
		[]ExtraEvent{
			{ID: "corpus", Date: NewDate(2024, time.May, 30), Time: NewTimeOfDay(18, 0), Title: "Corpus Christi", MinRequired: 2, MaxAllowed: 4, Active: true},
			{ID: "june", Date: NewDate(2024, time.June, 1), Time: NewTimeOfDay(18, 0), Title: "Junina", MinRequired: 1, MaxAllowed: 4, Active: true},
		},
	)
}

// openNow is inside the May 2024 window with the default configuration.
var openNow = time.Date(2024, time.April, 26, 12, 0, 0, 0, testLocation)

func newTestDraft(blocks []BlockedMass, committed SlotSet, committedExtras ExtraSet) *Draft {
	return NewDraft(DraftInputs{
		ID:               "draft-1",
		MinisterID:       "minister-1",
		Year:             2024,
		Month:            time.May,
		Catalog:          testCatalog(),
		Blocks:           NewBlockOverlay(blocks),
		Window:           DefaultWindowConfig(),
		Location:         testLocation,
		CommittedRegular: committed,
		CommittedExtras:  committedExtras,
	})
}

func TestDraft_Toggle(t *testing.T) {
	t.Parallel()

	t.Run("selects and unselects a slot", func(t *testing.T) {
		t.Parallel()

		draft := newTestDraft(nil, NewSlotSet(), NewExtraSet())
		date := NewDate(2024, time.May, 5)

		selected, err := draft.Toggle(date, "sun-8", openNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !selected || !draft.HasPendingChanges() {
			t.Fatalf("expected slot to be selected with pending changes")
		}

		selected, err = draft.Toggle(date, "sun-8", openNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if selected || draft.HasPendingChanges() {
			t.Fatalf("expected toggling twice to restore the baseline")
		}
	})

	t.Run("rejects edits outside the window", func(t *testing.T) {
		t.Parallel()

		draft := newTestDraft(nil, NewSlotSet(), NewExtraSet())
		early := time.Date(2024, time.April, 1, 12, 0, 0, 0, testLocation)

		_, err := draft.Toggle(NewDate(2024, time.May, 5), "sun-8", early)
		var windowErr *WindowNotEditableError
		if !errors.As(err, &windowErr) {
			t.Fatalf("expected WindowNotEditableError, got %v", err)
		}
		if windowErr.Reason() != ReasonNotYetOpen {
			t.Fatalf("expected not yet open, got %s", windowErr.Reason())
		}
		if draft.HasPendingChanges() {
			t.Fatalf("rejected toggle must not change the draft")
		}
	})

	t.Run("rejects unknown or mismatched targets", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			name   string
			date   Date
			slotID string
		}{
			{name: "unknown slot", date: NewDate(2024, time.May, 5), slotID: "missing"},
			{name: "inactive slot", date: NewDate(2024, time.May, 6), slotID: "mon-7"},
			{name: "weekday mismatch", date: NewDate(2024, time.May, 6), slotID: "sun-8"},
			{name: "outside the month", date: NewDate(2024, time.June, 2), slotID: "sun-8"},
		}
		for _, tc := range cases {
			draft := newTestDraft(nil, NewSlotSet(), NewExtraSet())
			_, err := draft.Toggle(tc.date, tc.slotID, openNow)
			var unknown *UnknownTargetError
			if !errors.As(err, &unknown) {
				t.Fatalf("%s: expected UnknownTargetError, got %v", tc.name, err)
			}
		}
	})

	t.Run("whole-day block rejects toggle", func(t *testing.T) {
		t.Parallel()

		blocked := NewDate(2024, time.May, 19)
		draft := newTestDraft([]BlockedMass{{ID: "b1", Date: blocked, Reason: "Festa paroquial"}}, NewSlotSet(), NewExtraSet())

		for _, slotID := range []string{"sun-8", "sun-10"} {
			_, err := draft.Toggle(blocked, slotID, openNow)
			var blockedErr *BlockedSlotError
			if !errors.As(err, &blockedErr) {
				t.Fatalf("expected BlockedSlotError for %s, got %v", slotID, err)
			}
			if blockedErr.Reason != "Festa paroquial" {
				t.Fatalf("expected block reason to be preserved, got %q", blockedErr.Reason)
			}
		}
		if draft.HasPendingChanges() {
			t.Fatalf("blocked toggles must not change the draft")
		}
	})

	t.Run("whole-day block rejects removing a committed selection", func(t *testing.T) {
		t.Parallel()

		blocked := NewDate(2024, time.May, 19)
		committed := SlotKey{Date: blocked, SlotID: "sun-8"}
		orphan := SlotKey{Date: blocked, SlotID: "retired"}
		draft := newTestDraft([]BlockedMass{{ID: "b1", Date: blocked, Reason: "Festa paroquial"}}, NewSlotSet(committed, orphan), NewExtraSet())

		for _, key := range []SlotKey{committed, orphan} {
			_, err := draft.Toggle(key.Date, key.SlotID, openNow)
			var blockedErr *BlockedSlotError
			if !errors.As(err, &blockedErr) {
				t.Fatalf("expected BlockedSlotError removing %s, got %v", key.SlotID, err)
			}
			if blockedErr.Reason != "Festa paroquial" {
				t.Fatalf("expected block reason to be preserved, got %q", blockedErr.Reason)
			}
			if !draft.Regular().Has(key) {
				t.Fatalf("blocked selection %s must stay selected", key.SlotID)
			}
		}
		if draft.HasPendingChanges() {
			t.Fatalf("blocked removals must not change the draft")
		}
	})

	t.Run("time block rejects removing only the listed time", func(t *testing.T) {
		t.Parallel()

		date := NewDate(2024, time.May, 12)
		early := SlotKey{Date: date, SlotID: "sun-8"}
		late := SlotKey{Date: date, SlotID: "sun-10"}
		draft := newTestDraft([]BlockedMass{{ID: "b2", Date: date, Times: []TimeOfDay{NewTimeOfDay(8, 0)}, Reason: "Crisma"}}, NewSlotSet(early, late), NewExtraSet())

		var blockedErr *BlockedSlotError
		if _, err := draft.Toggle(date, "sun-8", openNow); !errors.As(err, &blockedErr) {
			t.Fatalf("expected 08:00 removal to be blocked, got %v", err)
		}
		if blockedErr.Time != NewTimeOfDay(8, 0) {
			t.Fatalf("expected blocked time 08:00, got %s", blockedErr.Time)
		}
		selected, err := draft.Toggle(date, "sun-10", openNow)
		if err != nil || selected {
			t.Fatalf("expected 10:00 to be removable, got selected=%v err=%v", selected, err)
		}
	})

	t.Run("time block only affects listed times", func(t *testing.T) {
		t.Parallel()

		date := NewDate(2024, time.May, 12)
		draft := newTestDraft([]BlockedMass{{ID: "b2", Date: date, Times: []TimeOfDay{NewTimeOfDay(8, 0)}, Reason: "Crisma"}}, NewSlotSet(), NewExtraSet())

		if _, err := draft.Toggle(date, "sun-8", openNow); err == nil {
			t.Fatalf("expected 08:00 to be blocked")
		}
		if _, err := draft.Toggle(date, "sun-10", openNow); err != nil {
			t.Fatalf("expected 10:00 to remain available, got %v", err)
		}
	})

	t.Run("allows removing a selection of a deactivated slot", func(t *testing.T) {
		t.Parallel()

		key := SlotKey{Date: NewDate(2024, time.May, 6), SlotID: "mon-7"}
		draft := newTestDraft(nil, NewSlotSet(key), NewExtraSet())

		selected, err := draft.Toggle(key.Date, key.SlotID, openNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if selected {
			t.Fatalf("expected selection to be removed")
		}
		diff := draft.Diff()
		if len(diff.ToDeleteRegular) != 1 || diff.ToDeleteRegular[0] != key {
			t.Fatalf("expected deletion of %v, got %+v", key, diff)
		}
	})
}

func TestDraft_ToggleExtra(t *testing.T) {
	t.Parallel()

	draft := newTestDraft(nil, NewSlotSet(), NewExtraSet())

	selected, err := draft.ToggleExtra("corpus", openNow)
	if err != nil || !selected {
		t.Fatalf("expected extra to be selected, got selected=%v err=%v", selected, err)
	}

	var unknown *UnknownTargetError
	if _, err := draft.ToggleExtra("june", openNow); !errors.As(err, &unknown) {
		t.Fatalf("expected extra outside the month to be rejected, got %v", err)
	}
	if _, err := draft.ToggleExtra("missing", openNow); !errors.As(err, &unknown) {
		t.Fatalf("expected unknown extra to be rejected, got %v", err)
	}

	blockedDraft := newTestDraft([]BlockedMass{{Date: NewDate(2024, time.May, 30), Reason: "Reforma"}}, NewSlotSet(), NewExtraSet())
	var blockedErr *BlockedSlotError
	if _, err := blockedDraft.ToggleExtra("corpus", openNow); !errors.As(err, &blockedErr) {
		t.Fatalf("expected blocked extra, got %v", err)
	}

	committedDraft := newTestDraft([]BlockedMass{{Date: NewDate(2024, time.May, 30), Reason: "Reforma"}}, NewSlotSet(), NewExtraSet("corpus"))
	if _, err := committedDraft.ToggleExtra("corpus", openNow); !errors.As(err, &blockedErr) {
		t.Fatalf("expected removal of a blocked extra to be rejected, got %v", err)
	}
	if !committedDraft.Extras().Has("corpus") || committedDraft.HasPendingChanges() {
		t.Fatalf("blocked extra must stay selected")
	}
}

func TestDraft_ApplyRecurrence(t *testing.T) {
	t.Parallel()

	t.Run("skips blocked Mondays", func(t *testing.T) {
		t.Parallel()

		// May 2024 has four Mondays: 6, 13, 20 and 27.
		draft := newTestDraft([]BlockedMass{{Date: NewDate(2024, time.May, 13), Reason: "Retiro"}}, NewSlotSet(), NewExtraSet())

		changed, err := draft.ApplyRecurrence(time.Monday, "mon-19", RecurrenceSet, openNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if changed != 3 {
			t.Fatalf("expected 3 Mondays selected, got %d", changed)
		}
		if draft.Regular().Has(SlotKey{Date: NewDate(2024, time.May, 13), SlotID: "mon-19"}) {
			t.Fatalf("blocked Monday must not be selected")
		}

		again, err := draft.ApplyRecurrence(time.Monday, "mon-19", RecurrenceSet, openNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != 0 {
			t.Fatalf("expected second application to change nothing, got %d", again)
		}

		cleared, err := draft.ApplyRecurrence(time.Monday, "mon-19", RecurrenceClear, openNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cleared != 3 || draft.HasPendingChanges() {
			t.Fatalf("expected clear to remove 3 selections and restore baseline, got %d", cleared)
		}
	})

	t.Run("clear keeps blocked Mondays", func(t *testing.T) {
		t.Parallel()

		blocked := SlotKey{Date: NewDate(2024, time.May, 13), SlotID: "mon-19"}
		open := SlotKey{Date: NewDate(2024, time.May, 20), SlotID: "mon-19"}
		draft := newTestDraft([]BlockedMass{{Date: blocked.Date, Reason: "Retiro"}}, NewSlotSet(blocked, open), NewExtraSet())

		cleared, err := draft.ApplyRecurrence(time.Monday, "mon-19", RecurrenceClear, openNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cleared != 1 {
			t.Fatalf("expected only the open Monday to be cleared, got %d", cleared)
		}
		if !draft.Regular().Has(blocked) || draft.Regular().Has(open) {
			t.Fatalf("unexpected selections after clear: %v", draft.Regular().Keys())
		}
	})

	t.Run("rejects slots of another weekday", func(t *testing.T) {
		t.Parallel()

		draft := newTestDraft(nil, NewSlotSet(), NewExtraSet())
		var unknown *UnknownTargetError
		if _, err := draft.ApplyRecurrence(time.Tuesday, "mon-19", RecurrenceSet, openNow); !errors.As(err, &unknown) {
			t.Fatalf("expected UnknownTargetError, got %v", err)
		}
		if _, err := draft.ApplyRecurrence(time.Monday, "mon-19", RecurrenceMode("toggle"), openNow); !errors.As(err, &unknown) {
			t.Fatalf("expected invalid mode to be rejected, got %v", err)
		}
	})
}

func TestDraft_Diff(t *testing.T) {
	t.Parallel()

	kept := SlotKey{Date: NewDate(2024, time.May, 5), SlotID: "sun-8"}
	dropped := SlotKey{Date: NewDate(2024, time.May, 12), SlotID: "sun-10"}
	draft := newTestDraft(nil, NewSlotSet(kept, dropped), NewExtraSet("corpus"))

	steps := []func() error{
		func() error { _, err := draft.Toggle(NewDate(2024, time.May, 26), "sun-10", openNow); return err },
		func() error { _, err := draft.Toggle(NewDate(2024, time.May, 26), "sun-8", openNow); return err },
		func() error { _, err := draft.Toggle(NewDate(2024, time.May, 6), "mon-19", openNow); return err },
		func() error { _, err := draft.Toggle(dropped.Date, dropped.SlotID, openNow); return err },
		func() error { _, err := draft.ToggleExtra("corpus", openNow); return err },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
	}

	first := draft.Diff()
	second := draft.Diff()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("diff is not idempotent: %+v vs %+v", first, second)
	}

	wantInsert := []SlotKey{
		{Date: NewDate(2024, time.May, 6), SlotID: "mon-19"},
		{Date: NewDate(2024, time.May, 26), SlotID: "sun-8"},
		{Date: NewDate(2024, time.May, 26), SlotID: "sun-10"},
	}
	if !reflect.DeepEqual(first.ToInsertRegular, wantInsert) {
		t.Fatalf("expected chronological insertions %v, got %v", wantInsert, first.ToInsertRegular)
	}
	if !reflect.DeepEqual(first.ToDeleteRegular, []SlotKey{dropped}) {
		t.Fatalf("expected deletion of %v, got %v", dropped, first.ToDeleteRegular)
	}
	if !reflect.DeepEqual(first.ToDeleteExtras, []string{"corpus"}) || len(first.ToInsertExtras) != 0 {
		t.Fatalf("unexpected extra diff: %+v", first)
	}

	changes := first.Changes()
	if len(changes) != 5 {
		t.Fatalf("expected 5 changes, got %d", len(changes))
	}
	if changes[0].Insert() || changes[1].Insert() || !changes[2].Insert() {
		t.Fatalf("expected deletions before insertions: %+v", changes)
	}

	draft.MarkCommitted()
	if draft.HasPendingChanges() || !draft.Diff().Empty() {
		t.Fatalf("expected no pending changes after MarkCommitted")
	}
	if !draft.CommittedRegular().Has(wantInsert[0]) || draft.CommittedExtras().Has("corpus") {
		t.Fatalf("baseline not updated by MarkCommitted")
	}
}

func TestDraft_Discard(t *testing.T) {
	t.Parallel()

	committed := SlotKey{Date: NewDate(2024, time.May, 5), SlotID: "sun-8"}
	draft := newTestDraft(nil, NewSlotSet(committed), NewExtraSet())

	if _, err := draft.Toggle(committed.Date, committed.SlotID, openNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := draft.ToggleExtra("corpus", openNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	draft.Discard()

	if draft.HasPendingChanges() {
		t.Fatalf("expected discard to restore baseline")
	}
	if !draft.Regular().Has(committed) {
		t.Fatalf("expected committed selection to survive discard")
	}
}

func TestDraft_ValidateInsertions(t *testing.T) {
	t.Parallel()

	date := NewDate(2024, time.May, 19)
	draft := newTestDraft(nil, NewSlotSet(), NewExtraSet())
	if _, err := draft.Toggle(date, "sun-8", openNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := draft.ValidateInsertions(); err != nil {
		t.Fatalf("expected pending insertion to be valid, got %v", err)
	}

	draft.Refresh(testCatalog(), NewBlockOverlay([]BlockedMass{{Date: date, Reason: "Festa paroquial"}}), DefaultWindowConfig(), nil)

	var blockedErr *BlockedSlotError
	if err := draft.ValidateInsertions(); !errors.As(err, &blockedErr) {
		t.Fatalf("expected BlockedSlotError after refresh, got %v", err)
	}
	if !draft.HasPendingChanges() {
		t.Fatalf("refresh must not drop pending changes")
	}
}
