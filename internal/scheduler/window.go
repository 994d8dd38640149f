package scheduler

import "time"

// DefaultDaysBeforeNextMonth is used when no window configuration has been saved
// or the saved value is below one.
const DefaultDaysBeforeNextMonth = 10

// WindowConfig is the latest saved availability window configuration.
type WindowConfig struct {
	DaysBeforeNextMonth int
	HardClose           bool
}

// DefaultWindowConfig returns the configuration used when none has been saved.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{DaysBeforeNextMonth: DefaultDaysBeforeNextMonth}
}

// Normalized replaces out of range values with defaults.
func (c WindowConfig) Normalized() WindowConfig {
	if c.DaysBeforeNextMonth < 1 {
		c.DaysBeforeNextMonth = DefaultDaysBeforeNextMonth
	}
	return c
}

// Override opens editing of a specific month between OpenFrom and OpenUntil,
// both inclusive.
type Override struct {
	ID        string
	Year      int
	Month     time.Month
	OpenFrom  time.Time
	OpenUntil time.Time
	CreatedBy string
}

// Active reports whether the override applies to (year, month) at now.
func (o Override) Active(year int, month time.Month, now time.Time) bool {
	if o.Year != year || o.Month != month {
		return false
	}
	return !now.Before(o.OpenFrom) && !now.After(o.OpenUntil)
}

// WindowReason explains a window decision.
type WindowReason string

const (
	ReasonManualOverride WindowReason = "manual_override"
	ReasonHardClosed     WindowReason = "hard_closed"
	ReasonWrongMonth     WindowReason = "wrong_month"
	ReasonNotYetOpen     WindowReason = "not_yet_open"
	ReasonClosed         WindowReason = "closed"
	ReasonOpen           WindowReason = "open"
)

// Decision is the outcome of a window evaluation. OpensAt and ClosesAt describe
// the regular window of the evaluated month; OverrideUntil is set when an
// override granted access.
type Decision struct {
	Allowed       bool
	Reason        WindowReason
	OpensAt       time.Time
	ClosesAt      time.Time
	OverrideUntil time.Time
}

// IsEditable decides whether availability for (year, month) may be edited at now.
//
// Rules are evaluated in order and the first match wins:
//  1. an active override for the month allows editing, even when hard closed
//  2. a hard close denies editing
//  3. a month that has already ended is closed
//  4. only the calendar month following now's month may be edited
//  5. editing opens DaysBeforeNextMonth days before the first of the month
//
// Every instant is interpreted in loc.
func IsEditable(year int, month time.Month, now time.Time, cfg WindowConfig, overrides []Override, loc *time.Location) Decision {
	if loc == nil {
		loc = time.UTC
	}
	if month < time.January || month > time.December {
		return Decision{Reason: ReasonWrongMonth}
	}

	cfg = cfg.Normalized()
	now = now.In(loc)
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	nextMonthStart := monthStart.AddDate(0, 1, 0)
	decision := Decision{
		OpensAt:  monthStart.AddDate(0, 0, -cfg.DaysBeforeNextMonth),
		ClosesAt: nextMonthStart.Add(-time.Nanosecond),
	}

	for _, override := range overrides {
		if override.Active(year, month, now) {
			decision.Allowed = true
			decision.Reason = ReasonManualOverride
			decision.OverrideUntil = override.OpenUntil
			return decision
		}
	}

	if cfg.HardClose {
		decision.Reason = ReasonHardClosed
		return decision
	}

	if now.After(decision.ClosesAt) {
		decision.Reason = ReasonClosed
		return decision
	}

	nowMonthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	if !nowMonthStart.AddDate(0, 1, 0).Equal(monthStart) {
		decision.Reason = ReasonWrongMonth
		return decision
	}

	if now.Before(decision.OpensAt) {
		decision.Reason = ReasonNotYetOpen
		return decision
	}

	decision.Allowed = true
	decision.Reason = ReasonOpen
	return decision
}
