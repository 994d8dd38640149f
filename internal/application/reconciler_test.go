package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOccupancyReconciler_Run(t *testing.T) {
	t.Parallel()

	selections := newSelectionRepoStub()
	selections.reconciled = 3
	reconciler := NewOccupancyReconciler(selections, time.Second, nil)

	corrected, err := reconciler.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if corrected != 3 {
		t.Fatalf("expected 3 corrected counters, got %d", corrected)
	}

	selections.commitErr = errors.New("database is locked")
	if _, err := reconciler.Run(context.Background()); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestOccupancyReconciler_Register(t *testing.T) {
	t.Parallel()

	reconciler := NewOccupancyReconciler(newSelectionRepoStub(), 0, nil)
	c := NewCron()

	if _, err := reconciler.Register(c, "not a spec"); err == nil {
		t.Fatalf("expected invalid spec to be rejected")
	}
	id, err := reconciler.Register(c, "*/15 * * * *")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if entry := c.Entry(id); entry.ID != id {
		t.Fatalf("expected entry %d to be scheduled", id)
	}
}
