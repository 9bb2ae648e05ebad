// Package detector implements the condition-watching primitives at the heart
// of chore tracking. A detector watches one external condition (entity state
// or the clock) and moves through a three-phase sub-state:
//
//	idle -> active (optional) -> done
//
// Detectors are role-agnostic and contain pure detection logic only.
// Enable/disable gating, gate conditions and step counting are layered on by
// the stage wrappers in the chore package.
//
// Adding a detector type: implement the Detector interface (embedding Core
// for the shared plumbing) and register a constructor in the registry below.
package detector

import (
	"fmt"
	"time"

	"github.com/choretrack/choretrack/internal/entities"
)

// Phase is a detector's three-phase sub-state.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseActive Phase = "active"
	PhaseDone   Phase = "done"
)

// parsePhase maps a persisted phase value to a Phase, falling back to idle
// for anything unrecognized.
func parsePhase(s string) Phase {
	switch Phase(s) {
	case PhaseActive, PhaseDone:
		return Phase(s)
	default:
		return PhaseIdle
	}
}

// Type identifies a detector variant.
type Type string

const (
	TypePowerCycle      Type = "power_cycle"
	TypeStateChange     Type = "state_change"
	TypeDaily           Type = "daily"
	TypeWeekly          Type = "weekly"
	TypeDuration        Type = "duration"
	TypeManual          Type = "manual"
	TypeSensorState     Type = "sensor_state"
	TypeContact         Type = "contact"
	TypeContactCycle    Type = "contact_cycle"
	TypePresenceCycle   Type = "presence_cycle"
	TypeSensorThreshold Type = "sensor_threshold"
)

// Stage names the role a detector is wrapped for.
type Stage string

const (
	StageTrigger    Stage = "trigger"
	StageCompletion Stage = "completion"
)

// Notify is invoked by a detector when an external event changed its phase.
// The owning stage re-evaluates on every call.
type Notify func()

// Detector is the capability interface all variants implement.
//
// All mutating operations carry an explicit timestamp so the core never
// reads the wall clock itself; the driver supplies time on ticks and the
// subscription layer supplies it on events.
type Detector interface {
	// Type returns the variant tag.
	Type() Type
	// Steps is the number of discrete phase transitions the detector
	// models: 1 for single-shot done, 2 for two-phase cycles.
	Steps() int
	// SupportsStage reports whether the detector may serve the given role.
	SupportsStage(s Stage) bool

	// Phase returns the current sub-state.
	Phase() Phase
	// PhaseEnteredAt returns when the current sub-state was entered.
	PhaseEnteredAt() time.Time
	// SetPhase forces the sub-state directly (used by force actions).
	// Returns true when the phase changed.
	SetPhase(p Phase, at time.Time) bool
	// Reset returns the detector to idle and clears tracking fields.
	Reset(at time.Time)

	// SetupListeners subscribes to the entities the detector watches.
	// Phase changes driven by events are reported through notify.
	SetupListeners(w entities.World, notify Notify)
	// RemoveListeners releases every subscription held by the detector.
	RemoveListeners()

	// Evaluate re-derives the phase on a scheduler tick. Clock and
	// threshold logic with no discrete event (cooldowns, deadlines,
	// schedule times) lives here.
	Evaluate(r entities.Reader, now time.Time) Phase
	// CheckImmediate lets a detector declare itself done the moment it is
	// armed, when the watched condition is already satisfied. Most
	// variants do nothing.
	CheckImmediate(r entities.Reader, now time.Time, notify Notify)

	// Attributes returns progress attributes for status output.
	Attributes(r entities.Reader, now time.Time) map[string]any

	// Snapshot returns the persistable tracking state. Listener handles
	// and live-derivable fields are excluded.
	Snapshot() Snapshot
	// Restore rehydrates tracking state from a snapshot. Missing or
	// malformed fields fall back to their idle defaults.
	Restore(snap Snapshot)
}

// ConfigError reports a structurally impossible detector configuration.
// It is raised at construction time and is fatal to the chore's setup.
type ConfigError struct {
	Detector string
	Field    string
	Message  string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("detector %s: %s: %s", e.Detector, e.Field, e.Message)
	}
	return fmt.Sprintf("detector %s: %s", e.Detector, e.Message)
}

// Core carries the state shared by every detector variant: the phase, its
// entry timestamp, and the collected subscription handles. Variants embed it
// and override the defaults they need.
type Core struct {
	phase     Phase
	enteredAt time.Time
	listeners []entities.Unsubscribe
}

// Phase returns the current sub-state. The zero value reads as idle, so a
// freshly constructed detector starts in PhaseIdle without a Reset.
func (c *Core) Phase() Phase {
	if c.phase == "" {
		return PhaseIdle
	}
	return c.phase
}

// PhaseEnteredAt returns when the current sub-state was entered.
func (c *Core) PhaseEnteredAt() time.Time { return c.enteredAt }

// SetPhase sets the sub-state, returning true when it changed.
func (c *Core) SetPhase(p Phase, at time.Time) bool {
	if p == c.Phase() {
		return false
	}
	c.phase = p
	c.enteredAt = at
	return true
}

// Reset returns the phase to idle. Variants with tracking fields override
// this and chain to it.
func (c *Core) Reset(at time.Time) {
	c.SetPhase(PhaseIdle, at)
}

// Steps defaults to single-shot.
func (c *Core) Steps() int { return 1 }

// SupportsStage defaults to both roles.
func (c *Core) SupportsStage(Stage) bool { return true }

// Evaluate defaults to returning the current phase unchanged.
func (c *Core) Evaluate(entities.Reader, time.Time) Phase { return c.Phase() }

// CheckImmediate defaults to a no-op.
func (c *Core) CheckImmediate(entities.Reader, time.Time, Notify) {}

// SetupListeners defaults to watching nothing.
func (c *Core) SetupListeners(entities.World, Notify) {}

// RemoveListeners releases every collected subscription.
func (c *Core) RemoveListeners() {
	for _, unsub := range c.listeners {
		unsub()
	}
	c.listeners = nil
}

// track collects a subscription handle for later release.
func (c *Core) track(u entities.Unsubscribe) {
	c.listeners = append(c.listeners, u)
}

// Snapshot returns the shared tracking state.
func (c *Core) Snapshot() Snapshot {
	snap := Snapshot{Phase: string(c.Phase())}
	if !c.enteredAt.IsZero() {
		t := c.enteredAt
		snap.PhaseEnteredAt = &t
	}
	return snap
}

// Restore rehydrates the shared tracking state.
func (c *Core) Restore(snap Snapshot) {
	c.restoreCore(snap)
}

func (c *Core) restoreCore(snap Snapshot) {
	c.phase = parsePhase(snap.Phase)
	if snap.PhaseEnteredAt != nil {
		c.enteredAt = *snap.PhaseEnteredAt
	} else {
		c.enteredAt = time.Time{}
	}
}

// registry maps type tags to constructors.
var registry = map[Type]func(Config) (Detector, error){
	TypePowerCycle:      newPowerCycle,
	TypeStateChange:     newStateChange,
	TypeDaily:           newDaily,
	TypeWeekly:          newWeekly,
	TypeDuration:        newDuration,
	TypeManual:          newManual,
	TypeSensorState:     newSensorState,
	TypeContact:         newContact,
	TypeContactCycle:    newContactCycle,
	TypePresenceCycle:   newPresenceCycle,
	TypeSensorThreshold: newSensorThreshold,
}

// New constructs a detector from configuration, dispatching on the type tag.
func New(cfg Config) (Detector, error) {
	ctor, ok := registry[Type(cfg.Type)]
	if !ok {
		return nil, &ConfigError{Detector: cfg.Type, Field: "type", Message: "unknown detector type"}
	}
	return ctor(cfg)
}
