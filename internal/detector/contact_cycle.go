package detector

import (
	"time"

	"github.com/choretrack/choretrack/internal/entities"
)

// ContactCycle detects an open-then-close contact cycle (two-step).
//
// An open is debounced: it is held as pending and only confirms the active
// step once the debounce window has elapsed without the contact closing
// again. The window is a recorded timestamp re-checked on events and ticks,
// not a timer. A close while active completes the cycle.
type ContactCycle struct {
	Core
	entityID     string
	debounce     time.Duration
	pendingSince *time.Time
}

func newContactCycle(cfg Config) (Detector, error) {
	if cfg.EntityID == "" {
		return nil, &ConfigError{Detector: cfg.Type, Field: "entity_id", Message: "required"}
	}
	debounce := DefaultDebounceSeconds * time.Second
	if cfg.DebounceSeconds != nil {
		if *cfg.DebounceSeconds < 0 {
			return nil, &ConfigError{Detector: cfg.Type, Field: "debounce_seconds", Message: "must not be negative"}
		}
		debounce = time.Duration(*cfg.DebounceSeconds) * time.Second
	}
	return &ContactCycle{entityID: cfg.EntityID, debounce: debounce}, nil
}

func (d *ContactCycle) Type() Type { return TypeContactCycle }

func (d *ContactCycle) Steps() int { return 2 }

func (d *ContactCycle) Reset(at time.Time) {
	d.Core.Reset(at)
	d.pendingSince = nil
}

// confirmPending promotes a pending open to the active step once the
// debounce window has elapsed.
func (d *ContactCycle) confirmPending(at time.Time) bool {
	if d.Phase() == PhaseIdle && d.pendingSince != nil && at.Sub(*d.pendingSince) >= d.debounce {
		d.pendingSince = nil
		d.SetPhase(PhaseActive, at)
		return true
	}
	return false
}

func (d *ContactCycle) SetupListeners(w entities.World, notify Notify) {
	d.track(w.Subscribe([]string{d.entityID}, func(change entities.Change) {
		if !change.HasOld {
			return
		}
		switch {
		case change.New == "on" && d.Phase() == PhaseIdle:
			t := change.At
			d.pendingSince = &t
		case change.New == "off" && d.Phase() == PhaseIdle && d.pendingSince != nil:
			// A close before the debounce elapsed cancels the open; a
			// close after it means a full cycle happened between ticks.
			if d.confirmPending(change.At) {
				d.SetPhase(PhaseDone, change.At)
				notify()
			} else {
				d.pendingSince = nil
			}
		case change.New == "off" && d.Phase() == PhaseActive:
			d.SetPhase(PhaseDone, change.At)
			notify()
		}
	}))
}

func (d *ContactCycle) Evaluate(r entities.Reader, now time.Time) Phase {
	d.confirmPending(now)
	return d.Phase()
}

func (d *ContactCycle) Attributes(r entities.Reader, now time.Time) map[string]any {
	value, _, _ := r.State(d.entityID)
	return map[string]any{
		"detector_type":        string(TypeContactCycle),
		"watched_entity":       d.entityID,
		"watched_entity_state": value,
	}
}

func (d *ContactCycle) Snapshot() Snapshot {
	snap := d.Core.Snapshot()
	snap.PendingSince = d.pendingSince
	return snap
}

func (d *ContactCycle) Restore(snap Snapshot) {
	d.restoreCore(snap)
	d.pendingSince = snap.PendingSince
}
