package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	t.Parallel()

	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.May, 20, 9, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	if updated := clock.Advance(90 * time.Minute); !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	nowFn := clock.NowFunc()
	clock.Set(start.Add(48 * time.Hour))
	if got := nowFn(); !got.Equal(start.Add(48 * time.Hour)) {
		t.Fatalf("expected NowFunc to follow Set, got %v", got)
	}
}

func TestClockCloseMonth(t *testing.T) {
	t.Parallel()

	clock := NewClock(time.Time{})
	clock.CloseMonth(2024, time.December)
	if got := clock.Now(); got.Year() != 2025 || got.Month() != time.January || got.Day() != 2 {
		t.Fatalf("expected 2025-01-02, got %v", got)
	}
}
