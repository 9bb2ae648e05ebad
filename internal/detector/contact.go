package detector

import (
	"time"

	"github.com/choretrack/choretrack/internal/entities"
)

// Contact detects a contact sensor opening. Single-shot: done the instant
// the contact reports "on".
type Contact struct {
	Core
	entityID string
}

func newContact(cfg Config) (Detector, error) {
	if cfg.EntityID == "" {
		return nil, &ConfigError{Detector: cfg.Type, Field: "entity_id", Message: "required"}
	}
	return &Contact{entityID: cfg.EntityID}, nil
}

func (d *Contact) Type() Type { return TypeContact }

func (d *Contact) SetupListeners(w entities.World, notify Notify) {
	d.track(w.Subscribe([]string{d.entityID}, func(change entities.Change) {
		if change.New == "on" && d.Phase() != PhaseDone {
			d.SetPhase(PhaseDone, change.At)
			notify()
		}
	}))
}

func (d *Contact) Attributes(r entities.Reader, now time.Time) map[string]any {
	value, _, _ := r.State(d.entityID)
	return map[string]any{
		"detector_type":        string(TypeContact),
		"watched_entity":       d.entityID,
		"watched_entity_state": value,
	}
}
