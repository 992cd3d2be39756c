// Package schedule computes trigger instants for recurring booking slots and
// runs the minute-resolution loop that dispatches due configs to the engine.
package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/court-agent/internal/types"
)

const (
	// LeadDays is how many calendar days before the reservation slot's date
	// the portal opens bookings; the trigger fires on slot day minus this.
	LeadDays = 2

	// TriggerHour is the local hour the portal releases slots at.
	TriggerHour = 18

	// horizonWeeks bounds the look-ahead so configs whose trigger already
	// elapsed this cycle still resolve to a future instant.
	horizonWeeks = 4
)

// TriggerInstant is a computed absolute trigger timestamp together with the
// slot that produced it. Never cached: recomputation is pure, so schedule
// edits invalidate old instants implicitly.
type TriggerInstant struct {
	At       time.Time
	ConfigID uuid.UUID
	Weekday  time.Weekday
	Slot     types.ClockTime
}

// NextTrigger returns the earliest trigger instant strictly after now for any
// slot in the config, or nil if no candidate exists within the horizon.
// Deterministic: same (config, now) always yields the same instant.
func NextTrigger(cfg types.BookingConfig, now time.Time) *TriggerInstant {
	var best *TriggerInstant
	for weekday, slots := range cfg.Schedule {
		for _, slot := range slots {
			occurrence := nextOccurrence(now, weekday, slot)
			for week := 0; week < horizonWeeks; week++ {
				slotDay := occurrence.AddDate(0, 0, 7*week)
				trigger := triggerFor(slotDay)
				if !trigger.After(now) {
					// This week's trigger already passed; roll forward rather
					// than firing late.
					continue
				}
				if best == nil || trigger.Before(best.At) {
					best = &TriggerInstant{
						At:       trigger,
						ConfigID: cfg.ID,
						Weekday:  weekday,
						Slot:     slot,
					}
				}
				break
			}
		}
	}
	return best
}

// SlotOccurrence is one upcoming calendar occurrence of a scheduled slot.
type SlotOccurrence struct {
	Weekday time.Weekday
	Slot    types.ClockTime
	At      time.Time
}

// NextSlot returns the earliest upcoming occurrence among the config's slots
// at-or-after now, or nil for an empty schedule. At trigger time this is the
// slot the run is booking: the one opening LeadDays ahead.
func NextSlot(cfg types.BookingConfig, now time.Time) *SlotOccurrence {
	var best *SlotOccurrence
	for weekday, slots := range cfg.Schedule {
		for _, slot := range slots {
			at := nextOccurrence(now, weekday, slot)
			if best == nil || at.Before(best.At) {
				best = &SlotOccurrence{Weekday: weekday, Slot: slot, At: at}
			}
		}
	}
	return best
}

// dueTrigger returns a trigger instant that falls inside (now-window, now],
// or nil if none is due. window is the loop's match tolerance.
func dueTrigger(cfg types.BookingConfig, now time.Time, window time.Duration) *TriggerInstant {
	tr := NextTrigger(cfg, now.Add(-window))
	if tr == nil || tr.At.After(now) {
		return nil
	}
	return tr
}

// nextOccurrence returns the first calendar occurrence of (weekday, slot)
// at-or-after now, in now's location.
func nextOccurrence(now time.Time, weekday time.Weekday, slot types.ClockTime) time.Time {
	days := (int(weekday) - int(now.Weekday()) + 7) % 7
	candidate := slot.On(now.AddDate(0, 0, days))
	if candidate.Before(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// triggerFor pins the trigger for a slot day: LeadDays calendar days earlier
// at TriggerHour. AddDate keeps the day arithmetic calendar-correct across
// DST transitions, where a fixed 48h offset would land a day off.
func triggerFor(slotDay time.Time) time.Time {
	d := slotDay.AddDate(0, 0, -LeadDays)
	return time.Date(d.Year(), d.Month(), d.Day(), TriggerHour, 0, 0, 0, d.Location())
}
