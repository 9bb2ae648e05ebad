package chore

import (
	"github.com/choretrack/choretrack/internal/entities"
)

// Gate checks whether a secondary entity is in an expected state. Stages use
// it to hold a detector's done transition: while the gate is unmet the stage
// reports active instead of done.
type Gate struct {
	entityID  string
	expected  string
	listeners []entities.Unsubscribe
}

// NewGate creates a gate from configuration.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{entityID: cfg.EntityID, expected: cfg.State}
}

// EntityID returns the watched entity.
func (g *Gate) EntityID() string { return g.entityID }

// IsMet reports whether the gate entity currently equals the expected value.
func (g *Gate) IsMet(r entities.Reader) bool {
	value, _, ok := r.State(g.entityID)
	return ok && value == g.expected
}

// SetupListener re-evaluates the owning stage whenever the gate entity
// enters the expected state. Transitions out of an unknown previous value
// are ignored so a restore coming online does not silently satisfy the gate.
func (g *Gate) SetupListener(w entities.World, onGateChange func()) {
	g.listeners = append(g.listeners, w.Subscribe([]string{g.entityID}, func(change entities.Change) {
		if !change.HasOld {
			return
		}
		if change.New == g.expected {
			onGateChange()
		}
	}))
}

// RemoveListeners releases all gate subscriptions.
func (g *Gate) RemoveListeners() {
	for _, unsub := range g.listeners {
		unsub()
	}
	g.listeners = nil
}

// Attributes returns gate attributes for status output.
func (g *Gate) Attributes(r entities.Reader) map[string]any {
	value, _, _ := r.State(g.entityID)
	return map[string]any{
		"gate_entity":         g.entityID,
		"gate_expected_state": g.expected,
		"gate_current_state":  value,
		"gate_met":            g.IsMet(r),
	}
}
