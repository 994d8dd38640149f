package scheduler

import "fmt"

// WindowNotEditableError is returned when a month cannot be edited at the evaluated instant.
type WindowNotEditableError struct {
	Decision Decision
}

func (e *WindowNotEditableError) Error() string {
	return fmt.Sprintf("scheduler: availability window not editable (%s)", e.Decision.Reason)
}

// Reason returns the reason of the underlying decision.
func (e *WindowNotEditableError) Reason() WindowReason {
	return e.Decision.Reason
}

// BlockedSlotError is returned when a change targets a blocked date or time.
type BlockedSlotError struct {
	Date   Date
	Time   TimeOfDay
	Reason string
}

func (e *BlockedSlotError) Error() string {
	return fmt.Sprintf("scheduler: %s %s is blocked: %s", e.Date, e.Time, e.Reason)
}

// UnknownTargetError is returned when a slot or extra does not exist, is inactive,
// or does not belong to the draft month.
type UnknownTargetError struct {
	Target Target
	Reason string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("scheduler: unknown target %s: %s", e.Target, e.Reason)
}

// CapacityError reports that an insertion would exceed a target's maximum.
type CapacityError struct {
	Target  Target
	Current int
	Max     int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("scheduler: capacity exceeded for %s (%d/%d)", e.Target, e.Current, e.Max)
}
