package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/parish-roster/internal/scheduler"
)

func TestWindowService_Settings(t *testing.T) {
	t.Parallel()

	repo := newWindowRepoStub()
	svc := NewWindowService(repo, WindowServiceConfig{Defaults: scheduler.WindowConfig{DaysBeforeNextMonth: 7}}, nil, fixedNow(juneOpen))

	settings, err := svc.Settings(context.Background())
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.Sequence != 0 || settings.Config.DaysBeforeNextMonth != 7 {
		t.Fatalf("expected defaults before any save, got %+v", settings)
	}

	if _, err := svc.UpdateSettings(context.Background(), Principal{MinisterID: "m1"}, WindowConfigInput{DaysBeforeNextMonth: 5}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var vErr *ValidationError
	if _, err := svc.UpdateSettings(context.Background(), adminPrincipal, WindowConfigInput{DaysBeforeNextMonth: 0}); !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	for _, days := range []int{5, 12} {
		if _, err := svc.UpdateSettings(context.Background(), adminPrincipal, WindowConfigInput{DaysBeforeNextMonth: days}); err != nil {
			t.Fatalf("UpdateSettings(%d): %v", days, err)
		}
	}
	settings, err = svc.Settings(context.Background())
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.Sequence != 2 || settings.Config.DaysBeforeNextMonth != 12 || settings.CreatedBy != "admin" {
		t.Fatalf("expected latest version to win, got %+v", settings)
	}

	repo.latestErr = errors.New("database disk image is malformed")
	if _, err := svc.Settings(context.Background()); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestWindowService_Evaluate(t *testing.T) {
	t.Parallel()

	svc := NewWindowService(newWindowRepoStub(), WindowServiceConfig{Defaults: scheduler.DefaultWindowConfig()}, nil, fixedNow(time.Date(2024, time.May, 6, 12, 0, 0, 0, time.UTC)))

	decision, err := svc.Evaluate(context.Background(), 2024, 6)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if decision.Allowed || decision.Reason != scheduler.ReasonNotYetOpen {
		t.Fatalf("expected not yet open 25 days before, got %+v", decision)
	}
}

func TestWindowService_Overrides(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}
	now := time.Date(2024, time.July, 3, 12, 0, 0, 0, loc)
	repo := newWindowRepoStub()
	svc := NewWindowService(repo, WindowServiceConfig{Defaults: scheduler.DefaultWindowConfig(), Location: loc}, sequentialIDs("ovr"), fixedNow(now))

	if _, err := svc.OpenCurrentMonth(context.Background(), Principal{MinisterID: "m1"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	current, err := svc.OpenCurrentMonth(context.Background(), adminPrincipal)
	if err != nil {
		t.Fatalf("OpenCurrentMonth: %v", err)
	}
	wantUntil := time.Date(2024, time.August, 1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
	if current.Year != 2024 || current.Month != time.July || !current.OpenUntil.Equal(wantUntil) {
		t.Fatalf("unexpected current month override %+v", current)
	}

	next, err := svc.OpenNextMonth(context.Background(), adminPrincipal)
	if err != nil {
		t.Fatalf("OpenNextMonth: %v", err)
	}
	if next.Month != time.August || !next.OpenFrom.Equal(now) {
		t.Fatalf("unexpected next month override %+v", next)
	}

	decision, err := svc.Evaluate(context.Background(), 2024, 7)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !decision.Allowed || decision.Reason != scheduler.ReasonManualOverride {
		t.Fatalf("expected override to open July, got %+v", decision)
	}

	if _, err := svc.CreateOverride(context.Background(), adminPrincipal, OverrideInput{Year: 2024, Month: 9, OpenFrom: now, OpenUntil: now}); err == nil {
		t.Fatalf("expected empty override range to be rejected")
	}

	expired, err := svc.CreateOverride(context.Background(), adminPrincipal, OverrideInput{
		Year:      2024,
		Month:     5,
		OpenFrom:  now.AddDate(0, -2, 0),
		OpenUntil: now.AddDate(0, -1, 0),
	})
	if err != nil {
		t.Fatalf("CreateOverride: %v", err)
	}

	all, err := svc.ListOverrides(context.Background(), adminPrincipal, 0, 0, false)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 overrides, got %d (%v)", len(all), err)
	}
	active, err := svc.ListOverrides(context.Background(), adminPrincipal, 0, 0, true)
	if err != nil || len(active) != 2 {
		t.Fatalf("expected 2 active overrides, got %d (%v)", len(active), err)
	}

	if err := svc.RevokeOverride(context.Background(), adminPrincipal, expired.ID); err != nil {
		t.Fatalf("RevokeOverride: %v", err)
	}
	if err := svc.RevokeOverride(context.Background(), adminPrincipal, expired.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
