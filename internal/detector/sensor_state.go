package detector

import (
	"time"

	"github.com/choretrack/choretrack/internal/entities"
)

// SensorState detects an entity entering a specific target value.
// Single-shot: idle -> done.
type SensorState struct {
	Core
	entityID string
	target   string
}

func newSensorState(cfg Config) (Detector, error) {
	if cfg.EntityID == "" {
		return nil, &ConfigError{Detector: cfg.Type, Field: "entity_id", Message: "required"}
	}
	target := cfg.State
	if target == "" {
		target = "on"
	}
	return &SensorState{entityID: cfg.EntityID, target: target}, nil
}

func (d *SensorState) Type() Type { return TypeSensorState }

func (d *SensorState) SetupListeners(w entities.World, notify Notify) {
	d.track(w.Subscribe([]string{d.entityID}, func(change entities.Change) {
		if change.New == d.target && d.Phase() != PhaseDone {
			d.SetPhase(PhaseDone, change.At)
			notify()
		}
	}))
}

func (d *SensorState) Attributes(r entities.Reader, now time.Time) map[string]any {
	value, _, _ := r.State(d.entityID)
	return map[string]any{
		"detector_type":        string(TypeSensorState),
		"watched_entity":       d.entityID,
		"watched_entity_state": value,
		"target_state":         d.target,
	}
}
