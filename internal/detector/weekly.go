package detector

import (
	"time"

	"github.com/choretrack/choretrack/internal/entities"
)

// Weekly fires on a per-weekday time table, at most once per local calendar
// day. Same latch mechanics as Daily; trigger role only.
type Weekly struct {
	Core
	slots   []WeekdaySlot
	firedOn string
}

func newWeekly(cfg Config) (Detector, error) {
	if len(cfg.Schedule) == 0 {
		return nil, &ConfigError{Detector: cfg.Type, Field: "schedule", Message: "at least one entry is required"}
	}
	slots, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, &ConfigError{Detector: cfg.Type, Field: "schedule", Message: err.Error()}
	}
	return &Weekly{slots: slots}, nil
}

func (d *Weekly) Type() Type { return TypeWeekly }

func (d *Weekly) SupportsStage(s Stage) bool { return s == StageTrigger }

// Schedule returns the resolved weekly slots.
func (d *Weekly) Schedule() []WeekdaySlot { return d.slots }

// NextTrigger returns the next scheduled fire time after now.
func (d *Weekly) NextTrigger(now time.Time) time.Time {
	return NextSlotAfter(d.slots, now)
}

func (d *Weekly) Reset(at time.Time) {
	d.Core.Reset(at)
	d.firedOn = ""
}

// todaysSlot returns the slot scheduled for now's weekday, if any.
func (d *Weekly) todaysSlot(now time.Time) (ClockTime, bool) {
	for _, slot := range d.slots {
		if slot.Day == now.Local().Weekday() {
			return slot.At, true
		}
	}
	return ClockTime{}, false
}

func (d *Weekly) Evaluate(r entities.Reader, now time.Time) Phase {
	if d.Phase() == PhaseIdle && d.firedOn != localDate(now) {
		if at, ok := d.todaysSlot(now); ok {
			if !now.Local().Before(at.On(now.Local())) {
				d.firedOn = localDate(now)
				d.SetPhase(PhaseDone, now)
			}
		}
	}
	return d.Phase()
}

func (d *Weekly) Attributes(r entities.Reader, now time.Time) map[string]any {
	schedule := make([]map[string]string, 0, len(d.slots))
	for _, slot := range d.slots {
		schedule = append(schedule, map[string]string{
			"day":  slot.Day.String()[:3],
			"time": slot.At.String(),
		})
	}
	return map[string]any{
		"detector_type": string(TypeWeekly),
		"schedule":      schedule,
		"next_trigger":  d.NextTrigger(now).Format(time.RFC3339),
		"fired_today":   d.firedOn == localDate(now),
	}
}

func (d *Weekly) Snapshot() Snapshot {
	snap := d.Core.Snapshot()
	snap.FiredOn = d.firedOn
	return snap
}

func (d *Weekly) Restore(snap Snapshot) {
	d.restoreCore(snap)
	d.firedOn = snap.FiredOn
}
