package detector

import (
	"strings"
	"time"

	"github.com/choretrack/choretrack/internal/entities"
)

// PresenceCycle detects a leave-then-return presence cycle (two-step).
//
// The away/home vocabulary is derived from the entity domain:
// person.* and device_tracker.* use not_home/home, everything else off/on.
type PresenceCycle struct {
	Core
	entityID string
	away     string
	home     string
}

func newPresenceCycle(cfg Config) (Detector, error) {
	if cfg.EntityID == "" {
		return nil, &ConfigError{Detector: cfg.Type, Field: "entity_id", Message: "required"}
	}
	d := &PresenceCycle{entityID: cfg.EntityID, away: "off", home: "on"}
	if strings.HasPrefix(cfg.EntityID, "person.") || strings.HasPrefix(cfg.EntityID, "device_tracker.") {
		d.away = "not_home"
		d.home = "home"
	}
	return d, nil
}

func (d *PresenceCycle) Type() Type { return TypePresenceCycle }

func (d *PresenceCycle) Steps() int { return 2 }

func (d *PresenceCycle) SetupListeners(w entities.World, notify Notify) {
	d.track(w.Subscribe([]string{d.entityID}, func(change entities.Change) {
		if !change.HasOld {
			return
		}
		switch {
		case change.New == d.away && d.Phase() == PhaseIdle:
			d.SetPhase(PhaseActive, change.At)
			notify()
		case change.New == d.home && d.Phase() == PhaseActive:
			d.SetPhase(PhaseDone, change.At)
			notify()
		}
	}))
}

func (d *PresenceCycle) Attributes(r entities.Reader, now time.Time) map[string]any {
	value, _, _ := r.State(d.entityID)
	return map[string]any{
		"detector_type":        string(TypePresenceCycle),
		"watched_entity":       d.entityID,
		"watched_entity_state": value,
		"away_state":           d.away,
		"home_state":           d.home,
	}
}
