package chore

import (
	"time"

	"github.com/choretrack/choretrack/internal/detector"
	"github.com/choretrack/choretrack/internal/entities"
)

// CompletionStage wraps a detector for the completion role. On top of the
// trigger stage's gate handling it adds enable/disable arming and step
// counting.
//
// While disabled, detector phase changes are still tracked internally so
// in-flight progress is not lost, but the externally visible phase stays
// frozen at its last value. Re-enabling surfaces the detector's current
// phase, never a replay of missed intermediate phases.
type CompletionStage struct {
	det       detector.Detector
	gate      *Gate
	holding   bool
	enabled   bool
	frozen    detector.Phase
	stepsDone int
}

// NewCompletionStage builds the detector from configuration. A nil config
// yields a manual completion.
func NewCompletionStage(cfg *StageConfig) (*CompletionStage, error) {
	if cfg == nil || cfg.Type == "" {
		cfg = &StageConfig{Config: detector.Config{Type: string(detector.TypeManual)}}
	}
	det, err := detector.New(cfg.Config)
	if err != nil {
		return nil, err
	}
	if !det.SupportsStage(detector.StageCompletion) {
		return nil, &detector.ConfigError{Detector: cfg.Type, Message: "detector does not support the completion stage"}
	}
	s := &CompletionStage{det: det, frozen: detector.PhaseIdle}
	if cfg.Gate != nil {
		s.gate = NewGate(*cfg.Gate)
	}
	return s, nil
}

// Detector exposes the wrapped detector for introspection.
func (s *CompletionStage) Detector() detector.Detector { return s.det }

// Type returns the wrapped detector's type tag.
func (s *CompletionStage) Type() detector.Type { return s.det.Type() }

// Enabled reports whether the stage is armed.
func (s *CompletionStage) Enabled() bool { return s.enabled }

// Holding reports whether the gate is holding a done detector at active.
func (s *CompletionStage) Holding() bool { return s.holding }

// StepsDone returns how many of the detector's steps are complete.
func (s *CompletionStage) StepsDone() int { return s.stepsDone }

// StepsTotal returns the detector's step count.
func (s *CompletionStage) StepsTotal() int { return s.det.Steps() }

// Phase returns the externally visible phase: frozen while disabled,
// otherwise the detector phase with gate holds applied.
func (s *CompletionStage) Phase() detector.Phase {
	if !s.enabled {
		return s.frozen
	}
	if s.holding {
		return detector.PhaseActive
	}
	return s.det.Phase()
}

// Enable arms the stage. The detector's immediate check runs so a condition
// already satisfied at arm time registers without waiting for an event; the
// gate rule applies to the result.
func (s *CompletionStage) Enable(r entities.Reader, now time.Time) {
	s.enabled = true
	s.det.CheckImmediate(r, now, func() {})
	if s.det.Phase() == detector.PhaseDone && s.gate != nil && !s.gate.IsMet(r) {
		s.holding = true
	}
	s.updateSteps()
}

// Disable freezes the visible phase and stops propagating detector changes.
func (s *CompletionStage) Disable() {
	if s.enabled {
		s.frozen = s.Phase()
		s.enabled = false
	}
}

// SetPhase sets the detector phase directly (used by force actions).
func (s *CompletionStage) SetPhase(p detector.Phase, at time.Time) bool {
	if p == detector.PhaseDone {
		s.holding = false
	}
	changed := s.det.SetPhase(p, at)
	s.updateSteps()
	return changed
}

// Reset disarms the stage and returns the detector to idle.
func (s *CompletionStage) Reset(at time.Time) {
	s.holding = false
	s.enabled = false
	s.frozen = detector.PhaseIdle
	s.stepsDone = 0
	s.det.Reset(at)
}

// updateSteps derives the completed step count from the detector phase.
func (s *CompletionStage) updateSteps() {
	switch s.det.Phase() {
	case detector.PhaseActive:
		s.stepsDone = 1
	case detector.PhaseDone:
		s.stepsDone = s.det.Steps()
	default:
		s.stepsDone = 0
	}
}

// Evaluate runs the detector's tick logic when enabled and applies the gate
// rule, mirroring TriggerStage.
func (s *CompletionStage) Evaluate(r entities.Reader, now time.Time) detector.Phase {
	if !s.enabled {
		return s.Phase()
	}

	old := s.det.Phase()
	s.det.Evaluate(r, now)

	if s.det.Phase() == detector.PhaseDone && old != detector.PhaseDone {
		if s.gate != nil && !s.gate.IsMet(r) {
			s.holding = true
		}
	}
	if s.holding && s.gate != nil && s.gate.IsMet(r) {
		s.holding = false
	}

	s.updateSteps()
	return s.Phase()
}

// SetupListeners arms the detector and gate. Detector events are tracked
// even while disabled; only the enable flag decides whether the owning
// chore is poked.
func (s *CompletionStage) SetupListeners(w entities.World, onStateChange func()) {
	s.det.SetupListeners(w, func() {
		if !s.enabled {
			return
		}
		s.updateSteps()
		if s.det.Phase() == detector.PhaseDone && s.gate != nil {
			s.holding = !s.gate.IsMet(w)
		} else {
			s.holding = false
		}
		onStateChange()
	})

	if s.gate != nil {
		s.gate.SetupListener(w, func() {
			if s.enabled && s.holding && s.gate.IsMet(w) {
				s.holding = false
				onStateChange()
			}
		})
	}
}

// RemoveListeners releases every subscription held by the stage.
func (s *CompletionStage) RemoveListeners() {
	s.det.RemoveListeners()
	if s.gate != nil {
		s.gate.RemoveListeners()
	}
}

// Attributes merges detector, step and gate attributes.
func (s *CompletionStage) Attributes(r entities.Reader, now time.Time) map[string]any {
	attrs := s.det.Attributes(r, now)
	attrs["steps_total"] = s.StepsTotal()
	attrs["steps_done"] = s.stepsDone
	attrs["enabled"] = s.enabled
	if s.gate != nil {
		for k, v := range s.gate.Attributes(r) {
			attrs[k] = v
		}
		attrs["gate_holding"] = s.holding
	}
	return attrs
}

// Snapshot returns the stage's persistable state.
func (s *CompletionStage) Snapshot() StageSnapshot {
	return StageSnapshot{
		Snapshot:    s.det.Snapshot(),
		GateHolding: s.holding,
		Enabled:     s.enabled,
		StepsDone:   s.stepsDone,
	}
}

// Restore rehydrates the stage from a snapshot.
func (s *CompletionStage) Restore(snap StageSnapshot) {
	s.det.Restore(snap.Snapshot)
	s.holding = snap.GateHolding
	s.enabled = snap.Enabled
	s.stepsDone = snap.StepsDone
	s.frozen = detector.PhaseIdle
}
