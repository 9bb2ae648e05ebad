package detector

import (
	"strconv"
	"time"

	"github.com/choretrack/choretrack/internal/entities"
)

// PowerCycle detects appliance run cycles (washing machine, dishwasher)
// from power and/or current readings.
//
// Active: power or current above its threshold (machine running).
// Done: both readings back below threshold for the cooldown duration.
type PowerCycle struct {
	Core
	powerSensor      string
	currentSensor    string
	powerThreshold   float64
	currentThreshold float64
	cooldown         time.Duration
	droppedAt        *time.Time
	running          bool
}

func newPowerCycle(cfg Config) (Detector, error) {
	if cfg.PowerSensor == "" && cfg.CurrentSensor == "" {
		return nil, &ConfigError{
			Detector: cfg.Type,
			Message:  "at least one of power_sensor or current_sensor is required",
		}
	}
	d := &PowerCycle{
		powerSensor:      cfg.PowerSensor,
		currentSensor:    cfg.CurrentSensor,
		powerThreshold:   cfg.PowerThreshold,
		currentThreshold: cfg.CurrentThreshold,
		cooldown:         time.Duration(cfg.CooldownMinutes) * time.Minute,
	}
	if d.powerThreshold == 0 {
		d.powerThreshold = DefaultPowerThreshold
	}
	if d.currentThreshold == 0 {
		d.currentThreshold = DefaultCurrentThreshold
	}
	if cfg.CooldownMinutes == 0 {
		d.cooldown = DefaultCooldownMinutes * time.Minute
	}
	return d, nil
}

func (d *PowerCycle) Type() Type { return TypePowerCycle }

func (d *PowerCycle) Reset(at time.Time) {
	d.Core.Reset(at)
	d.droppedAt = nil
	d.running = false
}

func (d *PowerCycle) SetupListeners(w entities.World, notify Notify) {
	var ids []string
	if d.powerSensor != "" {
		ids = append(ids, d.powerSensor)
	}
	if d.currentSensor != "" {
		ids = append(ids, d.currentSensor)
	}
	d.track(w.Subscribe(ids, func(change entities.Change) {
		d.observe(w, change.At)
		notify()
	}))
}

// aboveThreshold checks the readings against their thresholds. The second
// result is false when every configured sensor is missing or unreadable, in
// which case the detector holds its current tracking state.
func (d *PowerCycle) aboveThreshold(r entities.Reader) (above, readable bool) {
	check := func(entityID string, threshold float64) {
		if entityID == "" {
			return
		}
		value, _, ok := r.State(entityID)
		if !ok || !entities.Readable(value) {
			return
		}
		readable = true
		if v, err := strconv.ParseFloat(value, 64); err == nil && v > threshold {
			above = true
		}
	}
	check(d.powerSensor, d.powerThreshold)
	check(d.currentSensor, d.currentThreshold)
	return above, readable
}

// observe updates run tracking from the current readings.
func (d *PowerCycle) observe(r entities.Reader, at time.Time) {
	above, readable := d.aboveThreshold(r)
	if !readable {
		return
	}
	if above {
		d.running = true
		d.droppedAt = nil
		if d.Phase() == PhaseIdle {
			d.SetPhase(PhaseActive, at)
		}
	} else if d.running && d.droppedAt == nil {
		t := at
		d.droppedAt = &t
	}
}

// Evaluate checks the cooldown deadline on every tick.
func (d *PowerCycle) Evaluate(r entities.Reader, now time.Time) Phase {
	if d.Phase() == PhaseActive && d.droppedAt != nil {
		if now.Sub(*d.droppedAt) >= d.cooldown {
			d.SetPhase(PhaseDone, now)
			d.running = false
		}
	}
	return d.Phase()
}

func (d *PowerCycle) Attributes(r entities.Reader, now time.Time) map[string]any {
	attrs := map[string]any{
		"detector_type":   string(TypePowerCycle),
		"machine_running": d.running,
	}
	if d.powerSensor != "" {
		value, _, _ := r.State(d.powerSensor)
		attrs["power_value"] = value
	}
	if d.currentSensor != "" {
		value, _, _ := r.State(d.currentSensor)
		attrs["current_value"] = value
	}
	if d.droppedAt != nil {
		remaining := d.cooldown - now.Sub(*d.droppedAt)
		if remaining < 0 {
			remaining = 0
		}
		attrs["cooldown_remaining"] = int(remaining.Seconds())
	}
	return attrs
}

func (d *PowerCycle) Snapshot() Snapshot {
	snap := d.Core.Snapshot()
	snap.PowerDroppedAt = d.droppedAt
	return snap
}

// Restore rehydrates tracking state. The running flag is not persisted; it
// is recomputed from the restored phase and refreshed by the next reading.
func (d *PowerCycle) Restore(snap Snapshot) {
	d.restoreCore(snap)
	d.droppedAt = snap.PowerDroppedAt
	d.running = d.Phase() == PhaseActive
}
