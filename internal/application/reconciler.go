package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// OccupancyReconciler rewrites stored occupancy counters that no longer match
// the committed selection rows.
type OccupancyReconciler struct {
	selections SelectionRepository
	timeout    time.Duration
	logger     *slog.Logger
}

// NewOccupancyReconciler constructs a reconciler. Each run is bounded by timeout.
func NewOccupancyReconciler(selections SelectionRepository, timeout time.Duration, logger *slog.Logger) *OccupancyReconciler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &OccupancyReconciler{selections: selections, timeout: timeout, logger: defaultLogger(logger)}
}

// Run recounts every counter once and returns how many were corrected.
func (r *OccupancyReconciler) Run(ctx context.Context) (corrected int, err error) {
	if r == nil || r.selections == nil {
		return 0, fmt.Errorf("selection repository not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	logger := serviceLogger(ctx, r.logger, "OccupancyReconciler", "Run")
	corrected, err = r.selections.ReconcileOccupancy(ctx)
	if err != nil {
		err = persistenceError(err)
		logger.ErrorContext(ctx, "failed to reconcile occupancy", "error", err, "error_kind", ErrorKind(err))
		return 0, err
	}
	if corrected > 0 {
		logger.WarnContext(ctx, "occupancy counters corrected", "corrected", corrected)
	} else {
		logger.DebugContext(ctx, "occupancy counters consistent")
	}
	return corrected, nil
}

// Register schedules Run on c using a standard five field cron spec.
func (r *OccupancyReconciler) Register(c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		_, _ = r.Run(context.Background())
	})
	if err != nil {
		return 0, fmt.Errorf("schedule occupancy reconciler %q: %w", spec, err)
	}
	return id, nil
}

// NewCron returns a scheduler that skips a run while the previous one is still active.
func NewCron() *cron.Cron {
	return cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
}
