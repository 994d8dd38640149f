package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/example/parish-roster/internal/adapters"
	"github.com/example/parish-roster/internal/application"
	"github.com/example/parish-roster/internal/config"
	"github.com/example/parish-roster/internal/events"
	httptransport "github.com/example/parish-roster/internal/http"
	"github.com/example/parish-roster/internal/logging"
	"github.com/example/parish-roster/internal/persistence/sqlite"
	"github.com/example/parish-roster/internal/persistence/sqlite/migration"
	"github.com/example/parish-roster/internal/scheduler"
)

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, cfg.LoggingOptions())
	if err != nil {
		bootLogger.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}

	app, err := newApp(ctx, cfg, logger, time.Now)
	if err != nil {
		logger.Error("failed to start roster", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// app owns every long lived resource of the process.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	storage   *sqlite.Storage
	publisher interface {
		application.EventPublisher
		Close() error
	}
	cron    *cron.Cron
	handler http.Handler

	ministers    *application.MinisterService
	availability *application.AvailabilityService
	reconciler   *application.OccupancyReconciler
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, now func() time.Time) (*app, error) {
	storage, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, storage: storage}
	if err := a.wire(ctx, now); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, now func() time.Time) error {
	cfg, logger, storage := a.cfg, a.logger, a.storage

	if cfg.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("connect event broker: %w", err)
		}
		a.publisher = publisher
		logger.Info("commit notifications enabled", "exchange", cfg.AMQPExchange)
	} else {
		a.publisher = events.NewLogPublisher(logger)
	}

	idGenerator := uuid.NewString

	ministerRepo := adapters.NewMinisterRepository(storage.Ministers)
	catalogRepo := adapters.NewCatalogRepository(storage.Catalog)
	blockRepo := adapters.NewBlockRepository(storage.Blocks)
	windowRepo := adapters.NewWindowRepository(storage.Window, now)
	selectionRepo := adapters.NewSelectionRepository(storage.Selections)

	windowService := application.NewWindowServiceWithLogger(windowRepo, application.WindowServiceConfig{
		Defaults: scheduler.WindowConfig{DaysBeforeNextMonth: cfg.DefaultDaysBefore},
		Location: cfg.Location(),
	}, idGenerator, now, logger)
	loader := application.NewSnapshotLoader(catalogRepo, blockRepo, windowService)
	commits := application.NewCommitCoordinator(selectionRepo, loader, a.publisher, cfg.CommitTimeout, now, logger)

	availability, err := application.NewAvailabilityService(application.AvailabilityDependencies{
		Loader:      loader,
		Selections:  selectionRepo,
		Ministers:   ministerRepo,
		Commits:     commits,
		DraftSize:   cfg.DraftCacheSize,
		DraftTTL:    cfg.DraftTTL,
		IDGenerator: idGenerator,
		Now:         now,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("build availability service: %w", err)
	}

	ministerService := application.NewMinisterServiceWithLogger(ministerRepo, idGenerator, now, logger)
	catalogService := application.NewCatalogServiceWithLogger(catalogRepo, blockRepo, idGenerator, logger)
	reportService := application.NewReportService(availability, selectionRepo, ministerRepo, logger)

	if cfg.BootstrapAdminID != "" {
		if _, err := ministerService.BootstrapAdmin(ctx, cfg.BootstrapAdminID, cfg.BootstrapAdminName); err != nil {
			return fmt.Errorf("bootstrap administrator: %w", err)
		}
	}

	a.reconciler = application.NewOccupancyReconciler(selectionRepo, time.Minute, logger)
	if cfg.ReconcileSchedule != "" {
		a.cron = application.NewCron()
		if _, err := a.reconciler.Register(a.cron, cfg.ReconcileSchedule); err != nil {
			return err
		}
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Availability: httptransport.NewAvailabilityHandler(availability, logger),
		Catalog:      httptransport.NewCatalogHandler(catalogService, logger),
		Window:       httptransport.NewWindowHandler(windowService, logger),
		Ministers:    httptransport.NewMinisterHandler(ministerService, logger),
		Reports:      httptransport.NewReportHandler(reportService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RequireMinister(ministerService, logger),
		},
	})

	a.handler = router
	a.ministers = ministerService
	a.availability = availability
	return nil
}

// Run serves HTTP until ctx is cancelled and then shuts down gracefully.
func (a *app) Run(ctx context.Context) error {
	// Counters may have drifted while the process was down.
	if _, err := a.reconciler.Run(ctx); err != nil {
		a.logger.Warn("startup reconciliation failed", "error", err)
	}
	if a.cron != nil {
		a.cron.Start()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	a.logger.Info("roster API listening", "addr", server.Addr, "timezone", a.cfg.Timezone)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.logger.Info("roster API stopped", "open_drafts", a.availability.OpenDrafts())
	return nil
}

// Close stops background jobs and releases the broker and the database.
func (a *app) Close() {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("failed to close event publisher", "error", err)
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Error("failed to close storage", "error", err)
		}
	}
}
