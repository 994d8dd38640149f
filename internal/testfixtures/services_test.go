package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/parish-roster/internal/application"
)

func TestServiceFactoryWiresSQLiteStack(t *testing.T) {
	t.Parallel()

	clock := NewClock(time.Time{})
	factory := NewServiceFactory(WithClock(clock), WithIDGenerator(NewIDGenerator("seed")))
	harness := NewSQLiteHarness(t, clock.NowFunc())

	services, err := factory.NewServices(harness.Repositories(), nil)
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}

	ctx := context.Background()
	admin := NewMinisterFixture(WithMinisterID("admin"), AsAdmin())
	if _, err := harness.Ministers.CreateMinister(ctx, admin.Application()); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	minister, err := services.Ministers.CreateMinister(ctx, admin.Principal(), application.MinisterInput{Name: "Rita"})
	if err != nil {
		t.Fatalf("CreateMinister: %v", err)
	}
	if minister.ID != "seed-1" {
		t.Fatalf("expected deterministic id seed-1, got %q", minister.ID)
	}
	if !minister.CreatedAt.Equal(clock.Now()) {
		t.Fatalf("expected creation time from the shared clock, got %v", minister.CreatedAt)
	}

	year, month := ReferenceMonth()
	decision, err := services.Availability.Window(ctx, year, int(month))
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected the reference month to be open at the reference time, got %+v", decision)
	}
}
