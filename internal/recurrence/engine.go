package recurrence

import (
	"errors"
	"time"
)

var brt = time.FixedZone("BRT", -3*60*60)

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyWeekly generates occurrences for the selected weekdays.
	FrequencyWeekly
)

// Rule describes a recurring selection of a mass slot.
type Rule struct {
	ID        string
	SlotID    string
	Frequency Frequency
	Weekdays  []time.Weekday
	StartsOn  time.Time
	EndsOn    *time.Time
}

// Occurrence is one day produced by a rule, at midnight in the engine location.
type Occurrence struct {
	RuleID string
	SlotID string
	Day    time.Time
}

// Engine expands recurrence rules into days.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that normalizes results to the provided location.
// If loc is nil, Brasília time (UTC-3) is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = brt
	}
	return &Engine{location: loc}
}

// ErrInvalidFrequency indicates the recurrence frequency is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrInvalidWindow indicates the rule has no end bound.
var ErrInvalidWindow = errors.New("recurrence: generation window requires an end bound")

// GenerateOccurrences produces one occurrence per matching day between the
// rule's StartsOn and EndsOn, both inclusive by calendar day in the engine
// location.
func (e *Engine) GenerateOccurrences(rule Rule) ([]Occurrence, error) {
	loc := e.loc()
	if rule.EndsOn == nil {
		return nil, ErrInvalidWindow
	}
	upper := midnight(*rule.EndsOn, loc)
	lower := midnight(rule.StartsOn, loc)
	if lower.After(upper) {
		return nil, nil
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	occurrences := make([]Occurrence, 0)
	// AddDate keeps the walk on calendar days across DST transitions.
	for current := lower; !current.After(upper); current = current.AddDate(0, 0, 1) {
		include, err := shouldInclude(rule.Frequency, weekdaySet, current.Weekday())
		if err != nil {
			return nil, err
		}
		if include {
			occurrences = append(occurrences, Occurrence{
				RuleID: rule.ID,
				SlotID: rule.SlotID,
				Day:    current,
			})
		}
	}

	return occurrences, nil
}

// MonthWeekdays returns every day of (year, month) that falls on one of the
// weekdays, in chronological order.
func (e *Engine) MonthWeekdays(year int, month time.Month, weekdays ...time.Weekday) []time.Time {
	if len(weekdays) == 0 || month < time.January || month > time.December {
		return nil
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, e.loc())
	last := first.AddDate(0, 1, -1)
	occurrences, err := e.GenerateOccurrences(Rule{
		Frequency: FrequencyWeekly,
		Weekdays:  weekdays,
		StartsOn:  first,
		EndsOn:    &last,
	})
	if err != nil {
		return nil
	}
	days := make([]time.Time, len(occurrences))
	for i, occurrence := range occurrences {
		days[i] = occurrence.Day
	}
	return days
}

func (e *Engine) loc() *time.Location {
	if e.location == nil {
		return brt
	}
	return e.location
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func shouldInclude(freq Frequency, weekdaySet map[time.Weekday]struct{}, day time.Weekday) (bool, error) {
	switch freq {
	case FrequencyWeekly:
		if len(weekdaySet) == 0 {
			return false, nil
		}
		_, ok := weekdaySet[day]
		return ok, nil
	case FrequencyUnspecified:
		fallthrough
	default:
		return false, ErrInvalidFrequency
	}
}
