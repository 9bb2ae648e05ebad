package detector

import (
	"strconv"
	"time"

	"github.com/choretrack/choretrack/internal/entities"
)

// Threshold comparators.
const (
	OperatorAbove = "above"
	OperatorBelow = "below"
	OperatorEqual = "equal"
)

// SensorThreshold detects a numeric reading crossing a configured threshold.
// Single-shot: idle -> done. Implements CheckImmediate so a completion
// armed while the condition already holds finishes right away.
type SensorThreshold struct {
	Core
	entityID  string
	threshold float64
	operator  string
}

func newSensorThreshold(cfg Config) (Detector, error) {
	if cfg.EntityID == "" {
		return nil, &ConfigError{Detector: cfg.Type, Field: "entity_id", Message: "required"}
	}
	if cfg.Threshold == nil {
		return nil, &ConfigError{Detector: cfg.Type, Field: "threshold", Message: "required"}
	}
	operator := cfg.Operator
	if operator == "" {
		operator = OperatorAbove
	}
	switch operator {
	case OperatorAbove, OperatorBelow, OperatorEqual:
	default:
		return nil, &ConfigError{Detector: cfg.Type, Field: "operator", Message: "must be above, below or equal"}
	}
	return &SensorThreshold{entityID: cfg.EntityID, threshold: *cfg.Threshold, operator: operator}, nil
}

func (d *SensorThreshold) Type() Type { return TypeSensorThreshold }

func (d *SensorThreshold) crossed(value float64) bool {
	switch d.operator {
	case OperatorAbove:
		return value > d.threshold
	case OperatorBelow:
		return value < d.threshold
	default:
		return value == d.threshold
	}
}

// observe marks done when the reading satisfies the condition.
func (d *SensorThreshold) observe(raw string, at time.Time, notify Notify) {
	if !entities.Readable(raw) {
		return
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return
	}
	if d.crossed(value) && d.Phase() != PhaseDone {
		d.SetPhase(PhaseDone, at)
		notify()
	}
}

func (d *SensorThreshold) SetupListeners(w entities.World, notify Notify) {
	d.track(w.Subscribe([]string{d.entityID}, func(change entities.Change) {
		d.observe(change.New, change.At, notify)
	}))
}

func (d *SensorThreshold) CheckImmediate(r entities.Reader, now time.Time, notify Notify) {
	value, _, ok := r.State(d.entityID)
	if ok {
		d.observe(value, now, notify)
	}
}

func (d *SensorThreshold) Attributes(r entities.Reader, now time.Time) map[string]any {
	value, _, _ := r.State(d.entityID)
	return map[string]any{
		"detector_type":  string(TypeSensorThreshold),
		"watched_entity": d.entityID,
		"current_value":  value,
		"threshold":      d.threshold,
		"operator":       d.operator,
	}
}
