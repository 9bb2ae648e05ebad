package detector

import (
	"time"

	"github.com/choretrack/choretrack/internal/entities"
)

// Duration detects an entity remaining in a target state for a configured
// number of hours.
//
// Active: entity entered the target state; an absolute deadline is recorded.
// Done: the deadline has passed (checked on tick). The deadline persists
// across restarts; a restored deadline already in the past reports done on
// the first evaluation.
type Duration struct {
	Core
	entityID string
	target   string
	duration time.Duration
	deadline *time.Time
}

func newDuration(cfg Config) (Detector, error) {
	if cfg.EntityID == "" {
		return nil, &ConfigError{Detector: cfg.Type, Field: "entity_id", Message: "required"}
	}
	if cfg.DurationHours <= 0 {
		return nil, &ConfigError{Detector: cfg.Type, Field: "duration_hours", Message: "must be positive"}
	}
	target := cfg.State
	if target == "" {
		target = "on"
	}
	return &Duration{
		entityID: cfg.EntityID,
		target:   target,
		duration: time.Duration(cfg.DurationHours * float64(time.Hour)),
	}, nil
}

func (d *Duration) Type() Type { return TypeDuration }

func (d *Duration) Reset(at time.Time) {
	d.Core.Reset(at)
	d.deadline = nil
}

func (d *Duration) SetupListeners(w entities.World, notify Notify) {
	d.track(w.Subscribe([]string{d.entityID}, func(change entities.Change) {
		// Transitions through unavailable/unknown preserve the timer.
		if !change.HasOld || !entities.Readable(change.New) {
			return
		}
		switch {
		case change.New == d.target && d.Phase() == PhaseIdle:
			deadline := change.At.Add(d.duration)
			d.deadline = &deadline
			d.SetPhase(PhaseActive, change.At)
			notify()
		case change.New != d.target && d.Phase() == PhaseActive:
			d.deadline = nil
			d.SetPhase(PhaseIdle, change.At)
			notify()
		}
	}))
}

func (d *Duration) Evaluate(r entities.Reader, now time.Time) Phase {
	value, _, ok := r.State(d.entityID)
	readable := ok && entities.Readable(value)

	// Startup recovery: entity already in the target state with no event seen.
	if d.Phase() == PhaseIdle && readable && value == d.target {
		if d.deadline == nil {
			deadline := now.Add(d.duration)
			d.deadline = &deadline
		}
		d.SetPhase(PhaseActive, now)
	}

	if d.Phase() == PhaseActive && d.deadline != nil {
		if readable && value != d.target {
			d.deadline = nil
			d.SetPhase(PhaseIdle, now)
		} else if !now.Before(*d.deadline) {
			d.SetPhase(PhaseDone, now)
		}
	}
	return d.Phase()
}

func (d *Duration) Attributes(r entities.Reader, now time.Time) map[string]any {
	value, _, _ := r.State(d.entityID)
	attrs := map[string]any{
		"detector_type":        string(TypeDuration),
		"watched_entity":       d.entityID,
		"watched_entity_state": value,
		"target_state":         d.target,
		"duration_hours":       d.duration.Hours(),
	}
	if d.deadline != nil {
		remaining := d.deadline.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		attrs["deadline"] = d.deadline.Format(time.RFC3339)
		attrs["time_remaining_seconds"] = int(remaining.Seconds())
	}
	return attrs
}

func (d *Duration) Snapshot() Snapshot {
	snap := d.Core.Snapshot()
	snap.Deadline = d.deadline
	return snap
}

func (d *Duration) Restore(snap Snapshot) {
	d.restoreCore(snap)
	d.deadline = snap.Deadline
}
