package chore

import (
	"time"

	"github.com/choretrack/choretrack/internal/detector"
)

// Reset policy type tags.
const (
	ResetDelay          = "delay"
	ResetDaily          = "daily_reset"
	ResetImplicitDaily  = "implicit_daily"
	ResetImplicitWeekly = "implicit_weekly"
	ResetImplicitEvent  = "implicit_event"
)

// ResetPolicy decides when a completed chore returns to inactive and is
// ready to trigger again.
type ResetPolicy interface {
	// Type returns the policy's type tag.
	Type() string

	// ShouldReset reports whether the cycle should reset, given the time a
	// completion was recorded.
	ShouldReset(now, completedAt time.Time) bool

	// NextResetAt returns the scheduled reset time, or nil when the reset is
	// event-driven rather than clock-driven.
	NextResetAt(completedAt time.Time) *time.Time
}

// DelayReset resets a fixed number of minutes after completion. A
// non-positive delay resets on the next evaluation.
type DelayReset struct {
	minutes int
}

func (p *DelayReset) Type() string { return ResetDelay }

func (p *DelayReset) ShouldReset(now, completedAt time.Time) bool {
	if p.minutes <= 0 {
		return true
	}
	return !now.Before(completedAt.Add(time.Duration(p.minutes) * time.Minute))
}

func (p *DelayReset) NextResetAt(completedAt time.Time) *time.Time {
	at := completedAt.Add(time.Duration(p.minutes) * time.Minute)
	return &at
}

// ClockReset resets at the next occurrence of a time of day after
// completion. Covers both the explicit daily_reset policy and the implicit
// policy derived from a daily trigger.
type ClockReset struct {
	typ string
	at  detector.ClockTime
}

func (p *ClockReset) Type() string { return p.typ }

func (p *ClockReset) ShouldReset(now, completedAt time.Time) bool {
	return !now.Before(p.at.NextAfter(completedAt))
}

func (p *ClockReset) NextResetAt(completedAt time.Time) *time.Time {
	at := p.at.NextAfter(completedAt)
	return &at
}

// ScheduleReset resets at the next slot of a weekly schedule after
// completion. Implicit policy for weekly triggers.
type ScheduleReset struct {
	slots []detector.WeekdaySlot
}

func (p *ScheduleReset) Type() string { return ResetImplicitWeekly }

func (p *ScheduleReset) ShouldReset(now, completedAt time.Time) bool {
	return !now.Before(detector.NextSlotAfter(p.slots, completedAt))
}

func (p *ScheduleReset) NextResetAt(completedAt time.Time) *time.Time {
	at := detector.NextSlotAfter(p.slots, completedAt)
	return &at
}

// EventReset never resets on the clock. The cycle resets when the trigger
// detector produces its next occurrence, which the chore handles directly.
type EventReset struct{}

func (p *EventReset) Type() string { return ResetImplicitEvent }

func (p *EventReset) ShouldReset(now, completedAt time.Time) bool { return true }

func (p *EventReset) NextResetAt(completedAt time.Time) *time.Time { return nil }

// NewResetPolicy resolves the policy for a chore. Explicit configuration
// wins; otherwise the policy is derived from the trigger type so scheduled
// chores realign with their schedule and event chores re-arm immediately.
func NewResetPolicy(cfg *ResetConfig, trigger *TriggerStage) (ResetPolicy, error) {
	if cfg != nil {
		switch cfg.Type {
		case ResetDelay:
			return &DelayReset{minutes: cfg.Minutes}, nil
		case ResetDaily:
			at, err := detector.ParseClock(cfg.Time)
			if err != nil {
				return nil, &detector.ConfigError{Detector: "reset", Field: "time", Message: err.Error()}
			}
			return &ClockReset{typ: ResetDaily, at: at}, nil
		case "":
		default:
			return nil, &detector.ConfigError{Detector: "reset", Field: "type", Message: "unknown reset type " + cfg.Type}
		}
	}

	switch det := trigger.Detector().(type) {
	case *detector.Daily:
		return &ClockReset{typ: ResetImplicitDaily, at: det.At()}, nil
	case *detector.Weekly:
		return &ScheduleReset{slots: det.Schedule()}, nil
	}
	return &EventReset{}, nil
}
