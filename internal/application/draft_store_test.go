package application

import (
	"errors"
	"testing"
	"time"

	"github.com/example/parish-roster/internal/scheduler"
)

func TestDraftStore_SlidingExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 25, 10, 0, 0, 0, time.UTC)
	store, err := newDraftStore(4, time.Hour, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newDraftStore: %v", err)
	}
	store.put(scheduler.NewDraft(scheduler.DraftInputs{ID: "d1", MinisterID: "m1", Year: 2024, Month: time.June}))

	now = now.Add(50 * time.Minute)
	if _, ok := store.get("d1"); !ok {
		t.Fatalf("expected draft to be alive before ttl")
	}

	now = now.Add(50 * time.Minute)
	if _, ok := store.get("d1"); !ok {
		t.Fatalf("expected access to extend the ttl")
	}

	now = now.Add(61 * time.Minute)
	if _, ok := store.get("d1"); ok {
		t.Fatalf("expected draft to expire")
	}
	if store.len() != 0 {
		t.Fatalf("expected expired draft to be removed, got %d entries", store.len())
	}
}

func TestDraftStore_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	store, err := newDraftStore(2, time.Hour, nil)
	if err != nil {
		t.Fatalf("newDraftStore: %v", err)
	}
	for _, id := range []string{"d1", "d2"} {
		store.put(scheduler.NewDraft(scheduler.DraftInputs{ID: id}))
	}
	store.get("d1")
	store.put(scheduler.NewDraft(scheduler.DraftInputs{ID: "d3"}))

	if _, ok := store.get("d2"); ok {
		t.Fatalf("expected d2 to be evicted")
	}
	if _, ok := store.get("d1"); !ok {
		t.Fatalf("expected recently used d1 to survive")
	}
}

func TestDraftStore_With(t *testing.T) {
	t.Parallel()

	store, err := newDraftStore(0, 0, nil)
	if err != nil {
		t.Fatalf("newDraftStore: %v", err)
	}
	if err := store.with("missing", func(*scheduler.Draft) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	store.put(scheduler.NewDraft(scheduler.DraftInputs{ID: "d1", MinisterID: "m1"}))
	sentinel := errors.New("boom")
	err = store.with("d1", func(d *scheduler.Draft) error {
		if d.MinisterID() != "m1" {
			t.Fatalf("unexpected draft %s", d.ID())
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected callback error to be returned, got %v", err)
	}

	if !store.remove("d1") {
		t.Fatalf("expected remove to report the draft")
	}
	if store.remove("d1") {
		t.Fatalf("expected second remove to report nothing")
	}
}
