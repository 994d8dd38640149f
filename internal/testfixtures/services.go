package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/parish-roster/internal/application"
	"github.com/example/parish-roster/internal/scheduler"
)

// ServiceFactory builds application services with a shared clock and
// deterministic identifiers.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
	Logger      *slog.Logger
}

type ServiceFactoryOption func(*ServiceFactory)

func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Location == nil {
		factory.Location = time.UTC
	}
	return factory
}

func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Clock = clock }
}

func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.IDGenerator = generator }
}

func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Location = loc }
}

func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Logger = logger }
}

// Repositories groups the stores a full service stack needs.
type Repositories struct {
	Ministers  application.MinisterRepository
	Catalog    application.CatalogRepository
	Blocks     application.BlockRepository
	Window     application.WindowRepository
	Selections application.SelectionRepository
}

// Repositories returns the application repositories of the harness.
func (h *SQLiteHarness) Repositories() Repositories {
	return Repositories{
		Ministers:  h.Ministers,
		Catalog:    h.Catalog,
		Blocks:     h.Blocks,
		Window:     h.Window,
		Selections: h.Selections,
	}
}

// Services is a wired application stack.
type Services struct {
	Ministers    *application.MinisterService
	Catalog      *application.CatalogService
	Window       *application.WindowService
	Availability *application.AvailabilityService
	Reports      *application.ReportService
	Commits      *application.CommitCoordinator
}

// NewServices wires every service over repos. publisher may be nil.
func (f *ServiceFactory) NewServices(repos Repositories, publisher application.EventPublisher) (Services, error) {
	now := f.Clock.NowFunc()
	ids := f.IDGenerator.NextFunc()

	window := application.NewWindowServiceWithLogger(repos.Window, application.WindowServiceConfig{
		Defaults: scheduler.DefaultWindowConfig(),
		Location: f.Location,
	}, ids, now, f.Logger)
	loader := application.NewSnapshotLoader(repos.Catalog, repos.Blocks, window)
	commits := application.NewCommitCoordinator(repos.Selections, loader, publisher, 5*time.Second, now, f.Logger)

	availability, err := application.NewAvailabilityService(application.AvailabilityDependencies{
		Loader:      loader,
		Selections:  repos.Selections,
		Ministers:   repos.Ministers,
		Commits:     commits,
		IDGenerator: ids,
		Now:         now,
		Logger:      f.Logger,
	})
	if err != nil {
		return Services{}, err
	}

	return Services{
		Ministers:    application.NewMinisterServiceWithLogger(repos.Ministers, ids, now, f.Logger),
		Catalog:      application.NewCatalogServiceWithLogger(repos.Catalog, repos.Blocks, ids, f.Logger),
		Window:       window,
		Availability: availability,
		Reports:      application.NewReportService(availability, repos.Selections, repos.Ministers, f.Logger),
		Commits:      commits,
	}, nil
}
