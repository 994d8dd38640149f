// Package adapters bridges the SQLite repositories and the application layer.
// Persistence keeps dates and times as text; the application works with
// scheduler values.
package adapters

import (
	"fmt"
	"time"

	"github.com/example/parish-roster/internal/application"
	"github.com/example/parish-roster/internal/persistence"
	"github.com/example/parish-roster/internal/scheduler"
)

func formatDate(d scheduler.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseDate(value string) (scheduler.Date, error) {
	if value == "" {
		return scheduler.Date{}, nil
	}
	d, err := scheduler.ParseDate(value)
	if err != nil {
		return scheduler.Date{}, fmt.Errorf("adapters: stored date: %w", err)
	}
	return d, nil
}

func parseTime(value string) (scheduler.TimeOfDay, error) {
	t, err := scheduler.ParseTimeOfDay(value)
	if err != nil {
		return 0, fmt.Errorf("adapters: stored time: %w", err)
	}
	return t, nil
}

func toApplicationMinister(model persistence.Minister) application.Minister {
	return application.Minister{
		ID:        model.ID,
		Name:      model.Name,
		IsAdmin:   model.IsAdmin,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceMinister(minister application.Minister) persistence.Minister {
	return persistence.Minister{
		ID:        minister.ID,
		Name:      minister.Name,
		IsAdmin:   minister.IsAdmin,
		CreatedAt: minister.CreatedAt,
		UpdatedAt: minister.UpdatedAt,
	}
}

func toSchedulerSlot(model persistence.RecurringSlot) (scheduler.RecurringSlot, error) {
	t, err := parseTime(model.Time)
	if err != nil {
		return scheduler.RecurringSlot{}, err
	}
	return scheduler.RecurringSlot{
		ID:          model.ID,
		Weekday:     time.Weekday(model.Weekday),
		Time:        t,
		MinRequired: model.MinRequired,
		MaxAllowed:  model.MaxAllowed,
		Active:      model.Active,
	}, nil
}

func toPersistenceSlot(slot scheduler.RecurringSlot) persistence.RecurringSlot {
	return persistence.RecurringSlot{
		ID:          slot.ID,
		Weekday:     int(slot.Weekday),
		Time:        slot.Time.String(),
		MinRequired: slot.MinRequired,
		MaxAllowed:  slot.MaxAllowed,
		Active:      slot.Active,
	}
}

func toSchedulerExtra(model persistence.ExtraEvent) (scheduler.ExtraEvent, error) {
	d, err := parseDate(model.Date)
	if err != nil {
		return scheduler.ExtraEvent{}, err
	}
	t, err := parseTime(model.Time)
	if err != nil {
		return scheduler.ExtraEvent{}, err
	}
	return scheduler.ExtraEvent{
		ID:          model.ID,
		Date:        d,
		Time:        t,
		Title:       model.Title,
		MinRequired: model.MinRequired,
		MaxAllowed:  model.MaxAllowed,
		Active:      model.Active,
	}, nil
}

func toPersistenceExtra(extra scheduler.ExtraEvent) persistence.ExtraEvent {
	return persistence.ExtraEvent{
		ID:          extra.ID,
		Date:        formatDate(extra.Date),
		Time:        extra.Time.String(),
		Title:       extra.Title,
		MinRequired: extra.MinRequired,
		MaxAllowed:  extra.MaxAllowed,
		Active:      extra.Active,
	}
}

func toSchedulerBlock(model persistence.BlockedMass) (scheduler.BlockedMass, error) {
	d, err := parseDate(model.Date)
	if err != nil {
		return scheduler.BlockedMass{}, err
	}
	block := scheduler.BlockedMass{ID: model.ID, Date: d, Reason: model.Reason}
	if model.Times != nil {
		block.Times = make([]scheduler.TimeOfDay, 0, len(model.Times))
		for _, raw := range model.Times {
			t, err := parseTime(raw)
			if err != nil {
				return scheduler.BlockedMass{}, err
			}
			block.Times = append(block.Times, t)
		}
	}
	return block, nil
}

func toPersistenceBlock(block scheduler.BlockedMass) persistence.BlockedMass {
	model := persistence.BlockedMass{ID: block.ID, Date: formatDate(block.Date), Reason: block.Reason}
	if !block.WholeDay() {
		model.Times = make([]string, 0, len(block.Times))
		for _, t := range block.Times {
			model.Times = append(model.Times, t.String())
		}
	}
	return model
}

func toWindowSettings(model persistence.WindowConfig) application.WindowSettings {
	return application.WindowSettings{
		Sequence: model.Sequence,
		Config: scheduler.WindowConfig{
			DaysBeforeNextMonth: model.DaysBeforeNextMonth,
			HardClose:           model.HardClose,
		},
		CreatedBy: model.CreatedBy,
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceWindowConfig(settings application.WindowSettings) persistence.WindowConfig {
	return persistence.WindowConfig{
		Sequence:            settings.Sequence,
		DaysBeforeNextMonth: settings.Config.DaysBeforeNextMonth,
		HardClose:           settings.Config.HardClose,
		CreatedBy:           settings.CreatedBy,
		CreatedAt:           settings.CreatedAt,
	}
}

func toSchedulerOverride(model persistence.WindowOverride) scheduler.Override {
	return scheduler.Override{
		ID:        model.ID,
		Year:      model.Year,
		Month:     time.Month(model.Month),
		OpenFrom:  model.OpenFrom,
		OpenUntil: model.OpenUntil,
		CreatedBy: model.CreatedBy,
	}
}

func toPersistenceOverride(override scheduler.Override, createdAt time.Time) persistence.WindowOverride {
	return persistence.WindowOverride{
		ID:        override.ID,
		Year:      override.Year,
		Month:     int(override.Month),
		OpenFrom:  override.OpenFrom,
		OpenUntil: override.OpenUntil,
		CreatedBy: override.CreatedBy,
		CreatedAt: createdAt,
	}
}

func toTargetKey(target scheduler.Target) persistence.TargetKey {
	if target.Kind == scheduler.TargetExtra {
		return persistence.TargetKey{Kind: persistence.TargetKindExtra, ExtraID: target.ExtraID}
	}
	return persistence.TargetKey{Kind: persistence.TargetKindSlot, Date: formatDate(target.Date), SlotID: target.SlotID}
}

func toTarget(key persistence.TargetKey) (scheduler.Target, error) {
	if key.Kind == persistence.TargetKindExtra {
		return scheduler.ExtraTarget(key.ExtraID), nil
	}
	d, err := parseDate(key.Date)
	if err != nil {
		return scheduler.Target{}, err
	}
	return scheduler.SlotTarget(d, key.SlotID), nil
}

func toSelectionChange(ministerID string, change scheduler.SlotChange) persistence.SelectionChange {
	out := persistence.SelectionChange{Insert: change.Insert()}
	if change.Target.Kind == scheduler.TargetExtra {
		out.Extra = &persistence.ExtraSelection{MinisterID: ministerID, ExtraID: change.Target.ExtraID}
	} else {
		out.Regular = &persistence.RegularSelection{
			MinisterID: ministerID,
			Date:       formatDate(change.Target.Date),
			SlotID:     change.Target.SlotID,
		}
	}
	return out
}

func toSlotChange(change persistence.SelectionChange) (scheduler.SlotChange, error) {
	target, err := toTarget(change.Target())
	if err != nil {
		return scheduler.SlotChange{}, err
	}
	delta := -1
	if change.Insert {
		delta = 1
	}
	return scheduler.SlotChange{Target: target, Delta: delta}, nil
}
