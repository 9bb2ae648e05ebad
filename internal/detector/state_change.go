package detector

import (
	"time"

	"github.com/choretrack/choretrack/internal/entities"
)

// StateChange detects an entity transitioning from one value to another.
//
// Active: entity is at the from value.
// Done: entity moved from the from value to the to value.
type StateChange struct {
	Core
	entityID string
	from     string
	to       string
}

func newStateChange(cfg Config) (Detector, error) {
	if cfg.EntityID == "" {
		return nil, &ConfigError{Detector: cfg.Type, Field: "entity_id", Message: "required"}
	}
	if cfg.From == "" || cfg.To == "" {
		return nil, &ConfigError{Detector: cfg.Type, Message: "both from and to are required"}
	}
	if cfg.From == cfg.To {
		return nil, &ConfigError{Detector: cfg.Type, Message: "from and to must differ"}
	}
	return &StateChange{entityID: cfg.EntityID, from: cfg.From, to: cfg.To}, nil
}

func (d *StateChange) Type() Type { return TypeStateChange }

func (d *StateChange) SetupListeners(w entities.World, notify Notify) {
	d.track(w.Subscribe([]string{d.entityID}, func(change entities.Change) {
		switch {
		case change.New == d.from && d.Phase() == PhaseIdle:
			d.SetPhase(PhaseActive, change.At)
			notify()
		case change.HasOld && change.Old == d.from && change.New == d.to && d.Phase() != PhaseDone:
			d.SetPhase(PhaseDone, change.At)
			notify()
		}
	}))
}

func (d *StateChange) Attributes(r entities.Reader, now time.Time) map[string]any {
	value, _, _ := r.State(d.entityID)
	return map[string]any{
		"detector_type":        string(TypeStateChange),
		"watched_entity":       d.entityID,
		"watched_entity_state": value,
		"expected_from":        d.from,
		"expected_to":          d.to,
	}
}
