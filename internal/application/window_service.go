package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/parish-roster/internal/persistence"
	"github.com/example/parish-roster/internal/scheduler"
)

// WindowRepository stores versioned window configuration and manual overrides.
type WindowRepository interface {
	// LatestWindowConfig returns ErrNotFound when no configuration was saved.
	LatestWindowConfig(ctx context.Context) (WindowSettings, error)
	AppendWindowConfig(ctx context.Context, settings WindowSettings) (WindowSettings, error)
	// ListOverrides returns the overrides of (year, month); year 0 lists all.
	ListOverrides(ctx context.Context, year int, month time.Month) ([]scheduler.Override, error)
	CreateOverride(ctx context.Context, override scheduler.Override) error
	DeleteOverride(ctx context.Context, id string) error
}

// WindowService evaluates and administers the availability window.
type WindowService struct {
	window      WindowRepository
	defaults    scheduler.WindowConfig
	location    *time.Location
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// WindowServiceConfig carries the policy defaults of a WindowService.
type WindowServiceConfig struct {
	Defaults scheduler.WindowConfig
	Location *time.Location
}

// NewWindowService constructs a window service.
func NewWindowService(window WindowRepository, cfg WindowServiceConfig, idGenerator func() string, now func() time.Time) *WindowService {
	return NewWindowServiceWithLogger(window, cfg, idGenerator, now, nil)
}

// NewWindowServiceWithLogger constructs a window service with a specified logger.
func NewWindowServiceWithLogger(window WindowRepository, cfg WindowServiceConfig, idGenerator func() string, now func() time.Time, logger *slog.Logger) *WindowService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &WindowService{
		window:      window,
		defaults:    cfg.Defaults.Normalized(),
		location:    loc,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *WindowService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "WindowService", operation, attrs...)
}

// Location returns the parish time zone used for every window decision.
func (s *WindowService) Location() *time.Location {
	return s.location
}

// Settings returns the latest saved configuration, or the defaults with a zero
// sequence when none was saved.
func (s *WindowService) Settings(ctx context.Context) (WindowSettings, error) {
	if s.window == nil {
		return WindowSettings{Config: s.defaults}, nil
	}
	settings, err := s.window.LatestWindowConfig(ctx)
	switch {
	case err == nil:
		settings.Config = settings.Config.Normalized()
		return settings, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return WindowSettings{Config: s.defaults}, nil
	}
	return WindowSettings{}, persistenceError(err)
}

// Overrides returns the overrides recorded for (year, month).
func (s *WindowService) Overrides(ctx context.Context, year int, month time.Month) ([]scheduler.Override, error) {
	if s.window == nil {
		return nil, nil
	}
	overrides, err := s.window.ListOverrides(ctx, year, month)
	if err != nil {
		return nil, persistenceError(err)
	}
	return overrides, nil
}

// Evaluate decides whether (year, month) is editable now. A month outside
// 1-12 is reported as WrongMonth.
func (s *WindowService) Evaluate(ctx context.Context, year, month int) (scheduler.Decision, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return scheduler.Decision{}, err
	}
	overrides, err := s.Overrides(ctx, year, time.Month(month))
	if err != nil {
		return scheduler.Decision{}, err
	}
	return scheduler.IsEditable(year, time.Month(month), s.now(), settings.Config, overrides, s.location), nil
}

// UpdateSettings appends a new configuration version.
func (s *WindowService) UpdateSettings(ctx context.Context, principal Principal, input WindowConfigInput) (settings WindowSettings, err error) {
	logger := s.loggerWith(ctx, "UpdateSettings", "principal_id", principal.MinisterID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save window settings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"sequence", settings.Sequence,
			"days_before_next_month", settings.Config.DaysBeforeNextMonth,
			"hard_close", settings.Config.HardClose,
		).InfoContext(ctx, "window settings saved")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if vErr := validateInput(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if s.window == nil {
		err = fmt.Errorf("window repository not configured")
		return
	}

	settings, err = s.window.AppendWindowConfig(ctx, WindowSettings{
		Config: scheduler.WindowConfig{
			DaysBeforeNextMonth: input.DaysBeforeNextMonth,
			HardClose:           input.HardClose,
		},
		CreatedBy: principal.MinisterID,
		CreatedAt: s.now(),
	})
	if err != nil {
		err = persistenceError(err)
	}
	return
}

// ListOverrides returns the overrides of (year, month), or every override when
// year is zero. activeOnly drops overrides whose OpenUntil has passed.
func (s *WindowService) ListOverrides(ctx context.Context, principal Principal, year, month int, activeOnly bool) ([]scheduler.Override, error) {
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	if year != 0 {
		if err := validateMonth(year, month); err != nil {
			return nil, err
		}
	}
	overrides, err := s.Overrides(ctx, year, time.Month(month))
	if err != nil || !activeOnly {
		return overrides, err
	}

	now := s.now()
	active := overrides[:0]
	for _, override := range overrides {
		if !override.OpenUntil.Before(now) {
			active = append(active, override)
		}
	}
	return active, nil
}

// CreateOverride releases (year, month) for editing between OpenFrom and OpenUntil.
func (s *WindowService) CreateOverride(ctx context.Context, principal Principal, input OverrideInput) (scheduler.Override, error) {
	if !principal.IsAdmin {
		return scheduler.Override{}, ErrUnauthorized
	}
	vErr := validateInput(input)
	if input.OpenFrom.IsZero() {
		vErr.add("open_from", "campo obrigatório")
	}
	if input.OpenUntil.IsZero() {
		vErr.add("open_until", "campo obrigatório")
	}
	if !input.OpenFrom.IsZero() && !input.OpenUntil.IsZero() && !input.OpenUntil.After(input.OpenFrom) {
		vErr.add("open_until", "deve ser posterior ao início")
	}
	if vErr.HasErrors() {
		return scheduler.Override{}, vErr
	}
	return s.storeOverride(ctx, principal, "CreateOverride", input.Year, time.Month(input.Month), input.OpenFrom, input.OpenUntil)
}

// OpenCurrentMonth releases the current month from now until its last instant.
func (s *WindowService) OpenCurrentMonth(ctx context.Context, principal Principal) (scheduler.Override, error) {
	if !principal.IsAdmin {
		return scheduler.Override{}, ErrUnauthorized
	}
	now := s.now().In(s.location)
	return s.storeOverride(ctx, principal, "OpenCurrentMonth", now.Year(), now.Month(), now, endOfMonth(now.Year(), now.Month(), s.location))
}

// OpenNextMonth releases the following month from now until its last instant.
func (s *WindowService) OpenNextMonth(ctx context.Context, principal Principal) (scheduler.Override, error) {
	if !principal.IsAdmin {
		return scheduler.Override{}, ErrUnauthorized
	}
	now := s.now().In(s.location)
	next := scheduler.FirstOfMonth(now.Year(), now.Month()).AddDays(32)
	return s.storeOverride(ctx, principal, "OpenNextMonth", next.Year, next.Month, now, endOfMonth(next.Year, next.Month, s.location))
}

// RevokeOverride deletes an override.
func (s *WindowService) RevokeOverride(ctx context.Context, principal Principal, id string) error {
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.window == nil {
		return fmt.Errorf("window repository not configured")
	}

	logger := s.loggerWith(ctx, "RevokeOverride", "principal_id", principal.MinisterID, "override_id", id)
	if err := s.window.DeleteOverride(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
			err = ErrNotFound
		} else {
			err = persistenceError(err)
		}
		logger.ErrorContext(ctx, "failed to revoke override", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "override revoked")
	return nil
}

func (s *WindowService) storeOverride(ctx context.Context, principal Principal, operation string, year int, month time.Month, from, until time.Time) (override scheduler.Override, err error) {
	logger := s.loggerWith(ctx, operation, "principal_id", principal.MinisterID, "year", year, "month", int(month))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create override", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("override_id", override.ID, "open_until", override.OpenUntil).InfoContext(ctx, "override created")
	}()

	if s.window == nil {
		err = fmt.Errorf("window repository not configured")
		return
	}

	override = scheduler.Override{
		ID:        s.idGenerator(),
		Year:      year,
		Month:     month,
		OpenFrom:  from,
		OpenUntil: until,
		CreatedBy: principal.MinisterID,
	}
	if err = s.window.CreateOverride(ctx, override); err != nil {
		err = persistenceError(err)
	}
	return
}

// endOfMonth returns the last representable instant of (year, month) in loc.
func endOfMonth(year int, month time.Month, loc *time.Location) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
}

func validateMonth(year, month int) error {
	vErr := &ValidationError{}
	if year < 1 || year > 9999 {
		vErr.add("year", "ano inválido")
	}
	if month < 1 || month > 12 {
		vErr.add("month", "deve estar entre 1 e 12")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
