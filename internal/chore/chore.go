package chore

import (
	"time"

	"github.com/choretrack/choretrack/internal/detector"
	"github.com/choretrack/choretrack/internal/entities"
)

// State is a chore's lifecycle state.
type State string

const (
	StateInactive  State = "inactive"
	StatePending   State = "pending"
	StateDue       State = "due"
	StateStarted   State = "started"
	StateCompleted State = "completed"
)

// Completion source tags recorded in history.
const (
	SourceSensor = "sensor"
	SourceManual = "manual"
	SourceForced = "forced"
)

// historyLimit bounds the completion history per chore.
const historyLimit = 100

// Transition records one lifecycle state change.
type Transition struct {
	ChoreID string    `json:"chore_id"`
	From    State     `json:"from"`
	To      State     `json:"to"`
	At      time.Time `json:"at"`
	Forced  bool      `json:"forced,omitempty"`
}

// Chore combines a trigger stage, a completion stage and a reset policy
// into the five-state lifecycle. All mutation happens through Evaluate,
// the force methods, or listener callbacks; callers serialize access.
type Chore struct {
	id   string
	name string

	trigger    *TriggerStage
	completion *CompletionStage
	reset      ResetPolicy

	state          State
	stateEnteredAt time.Time
	dueSince       *time.Time
	forced         bool
	source         string
	history        []CompletionRecord
}

// New builds a chore from configuration.
func New(cfg Config) (*Chore, error) {
	trigger, err := NewTriggerStage(cfg.Trigger)
	if err != nil {
		return nil, err
	}
	completion, err := NewCompletionStage(cfg.Completion)
	if err != nil {
		return nil, err
	}
	reset, err := NewResetPolicy(cfg.Reset, trigger)
	if err != nil {
		return nil, err
	}
	name := cfg.Name
	if name == "" {
		name = cfg.ID
	}
	return &Chore{
		id:         cfg.ID,
		name:       name,
		trigger:    trigger,
		completion: completion,
		reset:      reset,
		state:      StateInactive,
		source:     SourceSensor,
	}, nil
}

// ID returns the chore identifier.
func (c *Chore) ID() string { return c.id }

// Name returns the display name.
func (c *Chore) Name() string { return c.name }

// State returns the current lifecycle state.
func (c *Chore) State() State { return c.state }

// StateEnteredAt returns when the current state was entered.
func (c *Chore) StateEnteredAt() time.Time { return c.stateEnteredAt }

// DueSince returns when the chore last became due, or nil.
func (c *Chore) DueSince() *time.Time { return c.dueSince }

// Trigger exposes the trigger stage.
func (c *Chore) Trigger() *TriggerStage { return c.trigger }

// Completion exposes the completion stage.
func (c *Chore) Completion() *CompletionStage { return c.completion }

// ResetPolicy exposes the configured reset policy.
func (c *Chore) ResetPolicy() ResetPolicy { return c.reset }

// deriveState maps the two stage phases onto the lifecycle. The lifecycle
// follows the completion stage only once the trigger has fired.
func (c *Chore) deriveState() State {
	switch c.trigger.Phase() {
	case detector.PhaseActive:
		return StatePending
	case detector.PhaseDone:
	default:
		return StateInactive
	}

	switch c.completion.Phase() {
	case detector.PhaseActive:
		// Only two-step completions surface started; a single-step
		// detector's active phase (a running timer, a gate hold) keeps
		// the chore at due.
		if c.completion.StepsTotal() > 1 {
			return StateStarted
		}
		return StateDue
	case detector.PhaseDone:
		return StateCompleted
	default:
		return StateDue
	}
}

// Evaluate runs one pass of the transition table and returns the resulting
// transition, or nil when the state is unchanged. A single pass produces at
// most one transition; callers that need cascades drained (a fresh due
// whose completion condition already holds, a completed chore whose reset
// is already ready) call Evaluate in a loop until it returns nil.
func (c *Chore) Evaluate(r entities.Reader, now time.Time) *Transition {
	if c.state == StateCompleted {
		completedAt := c.stateEnteredAt
		if last := c.LastCompleted(); last != nil {
			completedAt = last.CompletedAt
		}
		if c.reset.ShouldReset(now, completedAt) {
			return c.setState(StateInactive, now, false, r)
		}
		return nil
	}

	c.trigger.Evaluate(r, now)
	c.completion.Evaluate(r, now)

	next := c.deriveState()
	if next == c.state {
		return nil
	}
	return c.setState(next, now, false, r)
}

// setState applies entry side effects and records the transition.
func (c *Chore) setState(next State, now time.Time, forced bool, r entities.Reader) *Transition {
	prev := c.state
	c.state = next
	c.stateEnteredAt = now
	c.forced = forced

	switch next {
	case StateInactive:
		c.completion.Reset(now)
		c.trigger.Reset(now)
		c.dueSince = nil
		c.source = SourceSensor
	case StateDue:
		if c.dueSince == nil {
			at := now
			c.dueSince = &at
		}
		if !c.completion.Enabled() {
			c.completion.Enable(r, now)
		}
	case StateCompleted:
		c.history = append(c.history, CompletionRecord{
			CompletedAt: now,
			CompletedBy: c.source,
			Forced:      forced,
		})
		if len(c.history) > historyLimit {
			c.history = c.history[len(c.history)-historyLimit:]
		}
		c.source = SourceSensor
	}

	return &Transition{ChoreID: c.id, From: prev, To: next, At: now, Forced: forced}
}

// ForceDue marks the trigger satisfied and moves the chore to due,
// bypassing the transition table. The completion stage is reset and
// re-armed so a stale done phase from an earlier cycle cannot immediately
// re-complete the chore.
func (c *Chore) ForceDue(r entities.Reader, now time.Time) *Transition {
	c.trigger.SetPhase(detector.PhaseDone, now)
	c.completion.Reset(now)
	c.completion.Enable(r, now)
	if c.state == StateDue {
		return nil
	}
	return c.setState(StateDue, now, true, r)
}

// ForceInactive resets both stages and moves the chore to inactive.
func (c *Chore) ForceInactive(r entities.Reader, now time.Time) *Transition {
	if c.state == StateInactive {
		c.completion.Reset(now)
		c.trigger.Reset(now)
		return nil
	}
	return c.setState(StateInactive, now, true, r)
}

// ForceComplete marks both stages done and moves the chore to completed.
// The history record carries the forced source tag.
func (c *Chore) ForceComplete(r entities.Reader, now time.Time) *Transition {
	c.trigger.SetPhase(detector.PhaseDone, now)
	c.completion.SetPhase(detector.PhaseDone, now)
	if c.state == StateCompleted {
		return nil
	}
	c.source = SourceForced
	return c.setState(StateCompleted, now, true, r)
}

// MarkDone records a manual completion: the completion detector is set done
// and the resulting transition, if any, carries the manual source tag.
func (c *Chore) MarkDone(r entities.Reader, now time.Time) *Transition {
	if !c.completion.Enabled() {
		return nil
	}
	c.completion.SetPhase(detector.PhaseDone, now)
	c.source = SourceManual
	next := c.deriveState()
	if next == c.state {
		return nil
	}
	return c.setState(next, now, false, r)
}

// SetupListeners registers all stage subscriptions. Each external event
// drains the transition table fully before returning, so cascaded
// transitions are delivered in order through onTransition.
func (c *Chore) SetupListeners(w entities.World, onTransition func(Transition)) {
	poke := func() {
		for {
			tr := c.Evaluate(w, w.Now())
			if tr == nil {
				return
			}
			if onTransition != nil {
				onTransition(*tr)
			}
		}
	}
	c.trigger.SetupListeners(w, poke)
	c.completion.SetupListeners(w, poke)
}

// RemoveListeners releases every subscription held by the chore's stages.
// Must be called before discarding the chore.
func (c *Chore) RemoveListeners() {
	c.trigger.RemoveListeners()
	c.completion.RemoveListeners()
}

// LastCompleted returns the most recent completion record, or nil.
func (c *Chore) LastCompleted() *CompletionRecord {
	if len(c.history) == 0 {
		return nil
	}
	rec := c.history[len(c.history)-1]
	return &rec
}

// LastCompletedBy returns the source tag of the most recent completion,
// or the empty string when the chore has never completed.
func (c *Chore) LastCompletedBy() string {
	if last := c.LastCompleted(); last != nil {
		return last.CompletedBy
	}
	return ""
}

// CompletionCountSince counts completions recorded at or after t.
func (c *Chore) CompletionCountSince(t time.Time) int {
	n := 0
	for _, rec := range c.history {
		if !rec.CompletedAt.Before(t) {
			n++
		}
	}
	return n
}

// History returns a copy of the completion history, oldest first.
func (c *Chore) History() []CompletionRecord {
	out := make([]CompletionRecord, len(c.history))
	copy(out, c.history)
	return out
}

// NextDue returns the next scheduled trigger time for clock-based triggers,
// or nil for event-driven ones.
func (c *Chore) NextDue(now time.Time) *time.Time {
	return c.trigger.NextTrigger(now)
}

// NextReset returns the scheduled reset time while completed, or nil.
func (c *Chore) NextReset() *time.Time {
	if c.state != StateCompleted {
		return nil
	}
	completedAt := c.stateEnteredAt
	if last := c.LastCompleted(); last != nil {
		completedAt = last.CompletedAt
	}
	return c.reset.NextResetAt(completedAt)
}

// Attributes merges chore-level and stage-level attributes for status
// output.
func (c *Chore) Attributes(r entities.Reader, now time.Time) map[string]any {
	attrs := map[string]any{
		"state":            string(c.state),
		"state_entered_at": c.stateEnteredAt.Format(time.RFC3339),
		"reset_policy":     c.reset.Type(),
		"forced":           c.forced,
	}
	if c.dueSince != nil {
		attrs["due_since"] = c.dueSince.Format(time.RFC3339)
	}
	if next := c.NextDue(now); next != nil {
		attrs["next_due"] = next.Format(time.RFC3339)
	}
	if next := c.NextReset(); next != nil {
		attrs["next_reset"] = next.Format(time.RFC3339)
	}
	if last := c.LastCompleted(); last != nil {
		attrs["last_completed_at"] = last.CompletedAt.Format(time.RFC3339)
		attrs["last_completed_by"] = last.CompletedBy
	}
	for k, v := range c.trigger.Attributes(r, now) {
		attrs["trigger_"+k] = v
	}
	for k, v := range c.completion.Attributes(r, now) {
		attrs["completion_"+k] = v
	}
	return attrs
}

// Snapshot returns the chore's full persistable state.
func (c *Chore) Snapshot() Snapshot {
	trigger := c.trigger.Snapshot()
	completion := c.completion.Snapshot()
	snap := Snapshot{
		State:      c.state,
		Forced:     c.forced,
		Trigger:    &trigger,
		Completion: &completion,
	}
	if !c.stateEnteredAt.IsZero() {
		at := c.stateEnteredAt
		snap.StateEnteredAt = &at
	}
	if c.dueSince != nil {
		at := *c.dueSince
		snap.DueSince = &at
	}
	if len(c.history) > 0 {
		snap.History = make([]CompletionRecord, len(c.history))
		copy(snap.History, c.history)
	}
	return snap
}

// Restore rehydrates the chore from a snapshot without emitting
// transitions. Unknown lifecycle states fall back to inactive; missing
// sub-snapshots leave the stage at its constructed defaults.
func (c *Chore) Restore(snap Snapshot) {
	switch snap.State {
	case StateInactive, StatePending, StateDue, StateStarted, StateCompleted:
		c.state = snap.State
	default:
		c.state = StateInactive
	}
	if snap.StateEnteredAt != nil {
		c.stateEnteredAt = *snap.StateEnteredAt
	} else {
		c.stateEnteredAt = time.Time{}
	}
	if snap.DueSince != nil {
		at := *snap.DueSince
		c.dueSince = &at
	} else {
		c.dueSince = nil
	}
	c.forced = snap.Forced
	c.source = SourceSensor
	if snap.Trigger != nil {
		c.trigger.Restore(*snap.Trigger)
	}
	if snap.Completion != nil {
		c.completion.Restore(*snap.Completion)
	}
	if len(snap.History) > 0 {
		c.history = make([]CompletionRecord, len(snap.History))
		copy(c.history, snap.History)
		if len(c.history) > historyLimit {
			c.history = c.history[len(c.history)-historyLimit:]
		}
	} else {
		c.history = nil
	}
}
