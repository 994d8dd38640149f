package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/parish-roster/internal/scheduler"
)

func TestAvailabilityService_OpenDraft(t *testing.T) {
	t.Parallel()

	t.Run("loads committed selections into the baseline", func(t *testing.T) {
		t.Parallel()
		h := newAvailabilityHarness(t, juneOpen, sundayMass("sun9", 3))
		h.selections.seed("m1", scheduler.SlotTarget(date(t, "2024-06-09"), "sun9"))

		state := openDraft(t, h, "m1")
		if len(state.Regular) != 1 || state.Regular[0].SlotID != "sun9" {
			t.Fatalf("expected committed selection in draft, got %+v", state.Regular)
		}
		if state.Pending {
			t.Fatalf("fresh draft must not have pending changes")
		}
		if !state.Window.Allowed || state.Window.Reason != scheduler.ReasonOpen {
			t.Fatalf("expected open window, got %+v", state.Window)
		}
	})

	t.Run("only administrators open drafts for other ministers", func(t *testing.T) {
		t.Parallel()
		h := newAvailabilityHarness(t, juneOpen, sundayMass("sun9", 3))

		_, err := h.service.OpenDraft(context.Background(), OpenDraftParams{
			Principal:  Principal{MinisterID: "m1"},
			MinisterID: "m2",
			Year:       2024,
			Month:      6,
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}

		state, err := h.service.OpenDraft(context.Background(), OpenDraftParams{
			Principal:  Principal{MinisterID: "admin", IsAdmin: true},
			MinisterID: "m2",
			Year:       2024,
			Month:      6,
		})
		if err != nil {
			t.Fatalf("expected admin to open draft, got %v", err)
		}
		if state.MinisterID != "m2" {
			t.Fatalf("expected draft for m2, got %s", state.MinisterID)
		}
	})

	t.Run("unknown minister", func(t *testing.T) {
		t.Parallel()
		h := newAvailabilityHarness(t, juneOpen)
		_, err := h.service.OpenDraft(context.Background(), OpenDraftParams{
			Principal:  Principal{MinisterID: "admin", IsAdmin: true},
			MinisterID: "ghost",
			Year:       2024,
			Month:      6,
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("invalid month", func(t *testing.T) {
		t.Parallel()
		h := newAvailabilityHarness(t, juneOpen)
		_, err := h.service.OpenDraft(context.Background(), OpenDraftParams{
			Principal: Principal{MinisterID: "m1"},
			Year:      2024,
			Month:     13,
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["month"] == "" {
			t.Fatalf("expected month validation error, got %v", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		h := newAvailabilityHarness(t, juneOpen)
		h.selections.loadErr = errors.New("disk I/O error")
		_, err := h.service.OpenDraft(context.Background(), OpenDraftParams{
			Principal: Principal{MinisterID: "m1"},
			Year:      2024,
			Month:     6,
		})
		if !errors.Is(err, ErrPersistence) {
			t.Fatalf("expected ErrPersistence, got %v", err)
		}
	})
}

func TestAvailabilityService_DraftAccess(t *testing.T) {
	t.Parallel()

	h := newAvailabilityHarness(t, juneOpen, sundayMass("sun9", 3))
	state := openDraft(t, h, "m1")

	if _, err := h.service.GetDraft(context.Background(), Principal{MinisterID: "m2"}, state.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected other minister to be rejected, got %v", err)
	}
	if _, err := h.service.GetDraft(context.Background(), Principal{MinisterID: "admin", IsAdmin: true}, state.ID); err != nil {
		t.Fatalf("expected admin access, got %v", err)
	}
	if _, err := h.service.GetDraft(context.Background(), Principal{MinisterID: "m1"}, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown draft, got %v", err)
	}
}

func TestAvailabilityService_Toggle(t *testing.T) {
	t.Parallel()

	t.Run("flips membership and reports the diff", func(t *testing.T) {
		t.Parallel()
		h := newAvailabilityHarness(t, juneOpen, sundayMass("sun9", 3))
		draft := openDraft(t, h, "m1")

		state, err := h.service.Toggle(context.Background(), Principal{MinisterID: "m1"}, draft.ID, "2024-06-02", "sun9")
		if err != nil {
			t.Fatalf("Toggle: %v", err)
		}
		if !state.Pending || len(state.Diff.ToInsertRegular) != 1 {
			t.Fatalf("expected one pending insertion, got %+v", state.Diff)
		}

		state, err = h.service.Toggle(context.Background(), Principal{MinisterID: "m1"}, draft.ID, "2024-06-02", "sun9")
		if err != nil {
			t.Fatalf("Toggle: %v", err)
		}
		if state.Pending {
			t.Fatalf("expected toggling twice to cancel out")
		}
	})

	t.Run("malformed date", func(t *testing.T) {
		t.Parallel()
		h := newAvailabilityHarness(t, juneOpen, sundayMass("sun9", 3))
		draft := openDraft(t, h, "m1")

		_, err := h.service.Toggle(context.Background(), Principal{MinisterID: "m1"}, draft.ID, "02/06/2024", "sun9")
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["date"] == "" {
			t.Fatalf("expected date validation error, got %v", err)
		}
	})

	t.Run("whole day block", func(t *testing.T) {
		t.Parallel()
		h := newAvailabilityHarness(t, juneOpen, sundayMass("sun9", 3))
		h.blocks.blocks["b1"] = scheduler.BlockedMass{ID: "b1", Date: date(t, "2024-06-02"), Reason: "Crisma"}
		draft := openDraft(t, h, "m1")

		_, err := h.service.Toggle(context.Background(), Principal{MinisterID: "m1"}, draft.ID, "2024-06-02", "sun9")
		var blockedErr *BlockedSlotError
		if !errors.As(err, &blockedErr) {
			t.Fatalf("expected BlockedSlotError, got %v", err)
		}
	})

	t.Run("window closed", func(t *testing.T) {
		t.Parallel()
		h := newAvailabilityHarness(t, juneClosed, sundayMass("sun9", 3))
		draft := openDraft(t, h, "m1")
		if draft.Window.Allowed {
			t.Fatalf("expected read-only draft after the month ended")
		}

		_, err := h.service.Toggle(context.Background(), Principal{MinisterID: "m1"}, draft.ID, "2024-06-02", "sun9")
		var windowErr *WindowNotEditableError
		if !errors.As(err, &windowErr) || windowErr.Reason() != scheduler.ReasonClosed {
			t.Fatalf("expected closed window error, got %v", err)
		}
	})

	t.Run("override granted after opening applies to the draft", func(t *testing.T) {
		t.Parallel()
		h := newAvailabilityHarness(t, juneClosed, sundayMass("sun9", 3))
		draft := openDraft(t, h, "m1")

		h.window.overrides["o1"] = scheduler.Override{
			ID:        "o1",
			Year:      2024,
			Month:     time.June,
			OpenFrom:  juneClosed.Add(-time.Hour),
			OpenUntil: juneClosed.Add(time.Hour),
		}

		state, err := h.service.Toggle(context.Background(), Principal{MinisterID: "m1"}, draft.ID, "2024-06-02", "sun9")
		if err != nil {
			t.Fatalf("expected override to allow editing, got %v", err)
		}
		if state.Window.Reason != scheduler.ReasonManualOverride {
			t.Fatalf("expected manual override reason, got %s", state.Window.Reason)
		}
	})
}

func TestAvailabilityService_ToggleExtra(t *testing.T) {
	t.Parallel()

	h := newAvailabilityHarness(t, juneOpen)
	h.catalog.extras["corpus"] = scheduler.ExtraEvent{
		ID:          "corpus",
		Date:        date(t, "2024-05-30"),
		Time:        scheduler.NewTimeOfDay(19, 0),
		Title:       "Corpus Christi",
		MinRequired: 2,
		MaxAllowed:  4,
		Active:      true,
	}
	h.catalog.extras["sagrado"] = scheduler.ExtraEvent{
		ID:          "sagrado",
		Date:        date(t, "2024-06-07"),
		Time:        scheduler.NewTimeOfDay(19, 0),
		Title:       "Sagrado Coração",
		MinRequired: 2,
		MaxAllowed:  4,
		Active:      true,
	}
	draft := openDraft(t, h, "m1")

	state, err := h.service.ToggleExtra(context.Background(), Principal{MinisterID: "m1"}, draft.ID, "sagrado")
	if err != nil {
		t.Fatalf("ToggleExtra: %v", err)
	}
	if len(state.Extras) != 1 || state.Extras[0] != "sagrado" {
		t.Fatalf("expected sagrado selected, got %v", state.Extras)
	}

	_, err = h.service.ToggleExtra(context.Background(), Principal{MinisterID: "m1"}, draft.ID, "corpus")
	var unknownErr *UnknownTargetError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected extra outside the month to be rejected, got %v", err)
	}
}

func TestAvailabilityService_ApplyRecurrence(t *testing.T) {
	t.Parallel()

	monday := scheduler.RecurringSlot{
		ID:          "mon7",
		Weekday:     time.Monday,
		Time:        scheduler.NewTimeOfDay(7, 0),
		MinRequired: 1,
		MaxAllowed:  2,
		Active:      true,
	}

	t.Run("sets every monday except blocked ones", func(t *testing.T) {
		t.Parallel()
		h := newAvailabilityHarness(t, juneOpen, monday)
		h.blocks.blocks["b1"] = scheduler.BlockedMass{ID: "b1", Date: date(t, "2024-06-10"), Reason: "Retiro"}
		draft := openDraft(t, h, "m1")

		changed, state, err := h.service.ApplyRecurrence(context.Background(), Principal{MinisterID: "m1"}, draft.ID, 1, "mon7", "set")
		if err != nil {
			t.Fatalf("ApplyRecurrence: %v", err)
		}
		if changed != 3 || len(state.Regular) != 3 {
			t.Fatalf("expected 3 mondays selected, got changed=%d regular=%d", changed, len(state.Regular))
		}

		changed, state, err = h.service.ApplyRecurrence(context.Background(), Principal{MinisterID: "m1"}, draft.ID, 1, "mon7", "CLEAR")
		if err != nil {
			t.Fatalf("ApplyRecurrence clear: %v", err)
		}
		if changed != 3 || len(state.Regular) != 0 {
			t.Fatalf("expected clear to remove 3 selections, got changed=%d regular=%d", changed, len(state.Regular))
		}
	})

	t.Run("validates weekday and mode", func(t *testing.T) {
		t.Parallel()
		h := newAvailabilityHarness(t, juneOpen, monday)
		draft := openDraft(t, h, "m1")

		_, _, err := h.service.ApplyRecurrence(context.Background(), Principal{MinisterID: "m1"}, draft.ID, 7, "mon7", "toggle")
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if vErr.FieldErrors["weekday"] == "" || vErr.FieldErrors["mode"] == "" {
			t.Fatalf("expected weekday and mode errors, got %v", vErr.FieldErrors)
		}
	})
}

func TestAvailabilityService_DiscardAndClose(t *testing.T) {
	t.Parallel()

	h := newAvailabilityHarness(t, juneOpen, sundayMass("sun9", 3))
	draft := openDraft(t, h, "m1")
	toggle(t, h, "m1", draft.ID, "2024-06-02", "sun9")

	state, err := h.service.Discard(context.Background(), Principal{MinisterID: "m1"}, draft.ID)
	if err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if state.Pending || len(state.Regular) != 0 {
		t.Fatalf("expected discard to restore the baseline, got %+v", state)
	}

	if err := h.service.CloseDraft(context.Background(), Principal{MinisterID: "m2"}, draft.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected other minister to be rejected, got %v", err)
	}
	if err := h.service.CloseDraft(context.Background(), Principal{MinisterID: "m1"}, draft.ID); err != nil {
		t.Fatalf("CloseDraft: %v", err)
	}
	if h.service.OpenDrafts() != 0 {
		t.Fatalf("expected draft to be removed")
	}
	if _, err := h.service.GetDraft(context.Background(), Principal{MinisterID: "m1"}, draft.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected closed draft to be gone, got %v", err)
	}
}

func TestAvailabilityService_Occupancy(t *testing.T) {
	t.Parallel()

	h := newAvailabilityHarness(t, juneOpen, sundayMass("sun9", 2))
	h.blocks.blocks["b1"] = scheduler.BlockedMass{ID: "b1", Date: date(t, "2024-06-23"), Reason: "Festa junina"}
	h.selections.seed("m1", scheduler.SlotTarget(date(t, "2024-06-02"), "sun9"))
	h.selections.seed("m2", scheduler.SlotTarget(date(t, "2024-06-02"), "sun9"))

	occupancy, err := h.service.Occupancy(context.Background(), 2024, 6)
	if err != nil {
		t.Fatalf("Occupancy: %v", err)
	}
	if len(occupancy.Entries) != 5 {
		t.Fatalf("expected 5 sundays in June 2024, got %d", len(occupancy.Entries))
	}
	first := occupancy.Entries[0]
	if first.Date != date(t, "2024-06-02") || first.Current != 2 || first.MaxAllowed != 2 {
		t.Fatalf("unexpected first entry %+v", first)
	}
	if !occupancy.Entries[3].Blocked {
		t.Fatalf("expected 2024-06-23 to be flagged as blocked")
	}

	h.selections.countErr = errors.New("no such table")
	if _, err := h.service.Occupancy(context.Background(), 2024, 6); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestAvailabilityService_Window(t *testing.T) {
	t.Parallel()

	h := newAvailabilityHarness(t, juneOpen)
	decision, err := h.service.Window(context.Background(), 2024, 6)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected June to be open, got %+v", decision)
	}

	decision, err = h.service.Window(context.Background(), 2024, 13)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if decision.Allowed || decision.Reason != scheduler.ReasonWrongMonth {
		t.Fatalf("expected wrong month for month 13, got %+v", decision)
	}
}
