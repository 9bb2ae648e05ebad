package chore

import (
	"time"

	"github.com/choretrack/choretrack/internal/detector"
	"github.com/choretrack/choretrack/internal/entities"
)

// TriggerStage wraps a detector for the trigger role. Triggers are
// always-on: they listen from startup and reset after the chore completes a
// cycle.
//
// Gate handling: the gate is evaluated only at the point the stage would
// otherwise report done. If unmet, the stage holds at active (the chore goes
// pending) while the detector internally stays done; when the gate entity
// enters the expected state the hold is released and the stage reports done.
type TriggerStage struct {
	det     detector.Detector
	gate    *Gate
	holding bool
}

// NewTriggerStage builds the detector from configuration and wraps it with
// the optional gate.
func NewTriggerStage(cfg StageConfig) (*TriggerStage, error) {
	det, err := detector.New(cfg.Config)
	if err != nil {
		return nil, err
	}
	if !det.SupportsStage(detector.StageTrigger) {
		return nil, &detector.ConfigError{Detector: cfg.Type, Message: "detector does not support the trigger stage"}
	}
	s := &TriggerStage{det: det}
	if cfg.Gate != nil {
		s.gate = NewGate(*cfg.Gate)
	}
	return s, nil
}

// Detector exposes the wrapped detector for introspection.
func (s *TriggerStage) Detector() detector.Detector { return s.det }

// Type returns the wrapped detector's type tag.
func (s *TriggerStage) Type() detector.Type { return s.det.Type() }

// HasGate reports whether a gate is configured.
func (s *TriggerStage) HasGate() bool { return s.gate != nil }

// Holding reports whether the gate is holding a done detector at active.
func (s *TriggerStage) Holding() bool { return s.holding }

// Phase returns the externally visible phase, accounting for gate holds.
func (s *TriggerStage) Phase() detector.Phase {
	if s.holding {
		return detector.PhaseActive
	}
	return s.det.Phase()
}

// SetPhase sets the detector phase directly, clearing any gate hold.
func (s *TriggerStage) SetPhase(p detector.Phase, at time.Time) bool {
	s.holding = false
	return s.det.SetPhase(p, at)
}

// Reset returns the stage to idle.
func (s *TriggerStage) Reset(at time.Time) {
	s.holding = false
	s.det.Reset(at)
}

// Evaluate runs the detector's tick logic and applies the gate rule.
// The hold engages only on a fresh transition to done; once engaged it is
// released as soon as the gate is met.
func (s *TriggerStage) Evaluate(r entities.Reader, now time.Time) detector.Phase {
	old := s.det.Phase()
	s.det.Evaluate(r, now)

	if s.det.Phase() == detector.PhaseDone && s.gate != nil {
		if old != detector.PhaseDone {
			s.holding = !s.gate.IsMet(r)
		} else if s.holding && s.gate.IsMet(r) {
			s.holding = false
		}
	}
	return s.Phase()
}

// NextTrigger returns the next scheduled fire time for clock-based
// detectors, or nil.
func (s *TriggerStage) NextTrigger(now time.Time) *time.Time {
	switch det := s.det.(type) {
	case *detector.Daily:
		t := det.NextTrigger(now)
		return &t
	case *detector.Weekly:
		t := det.NextTrigger(now)
		return &t
	}
	return nil
}

// SetupListeners arms the detector and gate, interposing the gate rule on
// detector events.
func (s *TriggerStage) SetupListeners(w entities.World, onStateChange func()) {
	if s.gate == nil {
		s.det.SetupListeners(w, detector.Notify(onStateChange))
		return
	}

	s.det.SetupListeners(w, func() {
		s.holding = s.det.Phase() == detector.PhaseDone && !s.gate.IsMet(w)
		onStateChange()
	})
	s.gate.SetupListener(w, func() {
		if s.det.Phase() == detector.PhaseDone && s.gate.IsMet(w) {
			s.holding = false
			onStateChange()
		}
	})
}

// RemoveListeners releases every subscription held by the stage.
func (s *TriggerStage) RemoveListeners() {
	s.det.RemoveListeners()
	if s.gate != nil {
		s.gate.RemoveListeners()
	}
}

// Attributes merges detector and gate attributes.
func (s *TriggerStage) Attributes(r entities.Reader, now time.Time) map[string]any {
	attrs := s.det.Attributes(r, now)
	if s.gate != nil {
		for k, v := range s.gate.Attributes(r) {
			attrs[k] = v
		}
		attrs["gate_holding"] = s.holding
	}
	return attrs
}

// Snapshot returns the stage's persistable state.
func (s *TriggerStage) Snapshot() StageSnapshot {
	return StageSnapshot{
		Snapshot:    s.det.Snapshot(),
		GateHolding: s.holding,
	}
}

// Restore rehydrates the stage from a snapshot.
func (s *TriggerStage) Restore(snap StageSnapshot) {
	s.det.Restore(snap.Snapshot)
	s.holding = snap.GateHolding
}
