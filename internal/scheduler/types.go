package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidDate indicates a date string is not in YYYY-MM-DD form or does not exist.
	ErrInvalidDate = errors.New("scheduler: invalid date")
	// ErrInvalidTime indicates a time-of-day string is not in HH:MM or HH:MM:SS form.
	ErrInvalidTime = errors.New("scheduler: invalid time of day")
)

// Date is a civil calendar date without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the normalized date for the given components, so that
// NewDate(2024, 1, 32) yields 2024-02-01.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 12, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return DateOf(t), nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.In(time.UTC).Weekday()
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// InMonth reports whether d falls within the given year and month.
func (d Date) InMonth(year int, month time.Month) bool {
	return d.Year == year && d.Month == month
}

// FirstOfMonth returns the first day of the month.
func FirstOfMonth(year int, month time.Month) Date {
	return Date{Year: year, Month: month, Day: 1}
}

// LastOfMonth returns the last day of the month.
func LastOfMonth(year int, month time.Month) Date {
	return NewDate(year, month+1, 0)
}

// TimeOfDay is a wall clock time with minute granularity, stored as minutes
// since midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses HH:MM or HH:MM:SS. Seconds are truncated.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	limits := []int{23, 59, 59}
	values := make([]int, len(parts))
	for i, part := range parts {
		if len(part) != 2 || !isDigit(part[0]) || !isDigit(part[1]) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
		}
		n := int(part[0]-'0')*10 + int(part[1]-'0')
		if n > limits[i] {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, value)
		}
		values[i] = n
	}
	return NewTimeOfDay(values[0], values[1]), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String formats the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// TargetKind distinguishes recurring slot occurrences from extra events.
type TargetKind string

const (
	// TargetSlot identifies a (date, recurring slot) pair.
	TargetSlot TargetKind = "slot"
	// TargetExtra identifies an extra event.
	TargetExtra TargetKind = "extra"
)

// Target identifies a unit of capacity: a recurring slot on a date, or an extra event.
type Target struct {
	Kind    TargetKind
	Date    Date
	SlotID  string
	ExtraID string
}

// SlotTarget returns the target for slot on date.
func SlotTarget(date Date, slotID string) Target {
	return Target{Kind: TargetSlot, Date: date, SlotID: slotID}
}

// ExtraTarget returns the target for an extra event.
func ExtraTarget(extraID string) Target {
	return Target{Kind: TargetExtra, ExtraID: extraID}
}

// String renders a stable key, also used for lock ordering.
func (t Target) String() string {
	if t.Kind == TargetExtra {
		return "extra:" + t.ExtraID
	}
	return "slot:" + t.Date.String() + ":" + t.SlotID
}
