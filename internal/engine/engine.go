// Package engine drives the chore state machines: it owns the entity
// registry, serializes all evaluation, runs the periodic tick sweep, fans
// transitions out to subscribers and persists snapshots.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/choretrack/choretrack/internal/chore"
	"github.com/choretrack/choretrack/internal/entities"
	"github.com/choretrack/choretrack/internal/logging"
	"github.com/choretrack/choretrack/internal/state"
)

// Event is one chore transition as announced to subscribers.
type Event struct {
	ID        string      `json:"id"`
	ChoreID   string      `json:"chore_id"`
	ChoreName string      `json:"chore_name"`
	Previous  chore.State `json:"previous"`
	New       chore.State `json:"new"`
	At        time.Time   `json:"at"`
	Forced    bool        `json:"forced,omitempty"`
}

// Handler receives transition events. Handlers run synchronously on the
// evaluation path and must not call back into the Coordinator.
type Handler func(Event)

// Coordinator owns all chores and serializes every mutation through one
// mutex, so listener-driven callbacks and the tick sweep never interleave
// mid-transition.
type Coordinator struct {
	mu       sync.Mutex
	world    *entities.Registry
	store    *state.Store
	log      *logging.Logger
	chores   map[string]*chore.Chore
	order    []string
	handlers []Handler

	tickEvery time.Duration
	saveEvery time.Duration
	lastSave  time.Time

	stop chan struct{}
	done chan struct{}
}

// Options tune the coordinator's timers.
type Options struct {
	TickInterval time.Duration
	SaveInterval time.Duration
}

// New creates a Coordinator over the given registry and store.
func New(world *entities.Registry, store *state.Store, opts Options) *Coordinator {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Minute
	}
	if opts.SaveInterval <= 0 {
		opts.SaveInterval = 5 * time.Minute
	}
	return &Coordinator{
		world:     world,
		store:     store,
		log:       logging.With("component", "engine"),
		chores:    make(map[string]*chore.Chore),
		tickEvery: opts.TickInterval,
		saveEvery: opts.SaveInterval,
	}
}

// World returns the entity registry the coordinator evaluates against.
func (c *Coordinator) World() *entities.Registry { return c.world }

// OnEvent registers a transition handler. Register handlers before Start.
func (c *Coordinator) OnEvent(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// emit delivers an event to all handlers and persists the chore's snapshot.
// Caller holds the mutex.
func (c *Coordinator) emit(ch *chore.Chore, tr chore.Transition) {
	ev := Event{
		ID:        uuid.NewString(),
		ChoreID:   tr.ChoreID,
		ChoreName: ch.Name(),
		Previous:  tr.From,
		New:       tr.To,
		At:        tr.At,
		Forced:    tr.Forced,
	}
	c.log.Info("chore transition",
		"chore", tr.ChoreID, "from", string(tr.From), "to", string(tr.To), "forced", tr.Forced)
	for _, h := range c.handlers {
		h(ev)
	}
	c.store.Set(ch.ID(), ch.Snapshot())
	if err := c.store.Save(); err != nil {
		c.log.Error("failed to persist state", "chore", ch.ID(), "error", err)
	}
}

// drain evaluates one chore until it settles, emitting each transition.
// Caller holds the mutex.
func (c *Coordinator) drain(ch *chore.Chore, now time.Time) {
	for {
		tr := ch.Evaluate(c.world, now)
		if tr == nil {
			return
		}
		c.emit(ch, *tr)
	}
}

// Register constructs a chore from configuration, restores its persisted
// snapshot if one exists, and arms its listeners. Restoring never emits
// transition events for the restored state itself.
func (c *Coordinator) Register(cfg chore.Config) error {
	ch, err := chore.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create chore %s: %w", cfg.ID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.chores[cfg.ID]; exists {
		return fmt.Errorf("chore %s is already registered", cfg.ID)
	}

	if snap, ok := c.store.Get(cfg.ID); ok {
		ch.Restore(snap)
		c.log.Info("restored chore", "chore", cfg.ID, "state", string(ch.State()))
	}

	ch.SetupListeners(c.world, func(tr chore.Transition) {
		c.emit(ch, tr)
	})

	c.chores[cfg.ID] = ch
	c.order = append(c.order, cfg.ID)
	return nil
}

// Remove tears a chore down: every listener its stages registered is
// released before the chore is discarded, and its snapshot is dropped.
func (c *Coordinator) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.chores[id]
	if !ok {
		return fmt.Errorf("unknown chore: %s", id)
	}
	ch.RemoveListeners()
	delete(c.chores, id)
	for i, cid := range c.order {
		if cid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.store.Remove(id)
	if err := c.store.Save(); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}

// SetEntityState applies an external entity state change. Detector and gate
// callbacks run synchronously under the coordinator's lock, so a change is
// fully evaluated before the next one or a tick begins.
func (c *Coordinator) SetEntityState(entityID, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.world.SetState(entityID, value)
}

// Tick runs one evaluation sweep over all chores at the given time.
func (c *Coordinator) Tick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range c.order {
		c.drain(c.chores[id], now)
	}

	if now.Sub(c.lastSave) >= c.saveEvery {
		c.saveAllLocked()
		c.lastSave = now
	}
}

// saveAllLocked snapshots every chore and writes the store.
// Caller holds the mutex.
func (c *Coordinator) saveAllLocked() {
	for id, ch := range c.chores {
		c.store.Set(id, ch.Snapshot())
	}
	if err := c.store.Save(); err != nil {
		c.log.Error("failed to persist state", "error", err)
	}
}

// Start launches the periodic tick loop. Stop shuts it down.
func (c *Coordinator) Start() {
	c.mu.Lock()
	if c.stop != nil {
		c.mu.Unlock()
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stop, c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.tickEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				c.Tick(now)
			}
		}
	}()
}

// Stop halts the tick loop and writes a final snapshot of every chore.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	c.mu.Lock()
	c.saveAllLocked()
	c.mu.Unlock()
}

// Chore returns a registered chore by ID.
func (c *Coordinator) Chore(id string) (*chore.Chore, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.chores[id]
	return ch, ok
}

// Statuses returns the status of every chore in registration order.
func (c *Coordinator) Statuses() []chore.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.world.Now()
	out := make([]chore.Status, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.chores[id].Status(c.world, now))
	}
	return out
}

// Status returns the status of one chore.
func (c *Coordinator) Status(id string) (chore.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.chores[id]
	if !ok {
		return chore.Status{}, fmt.Errorf("unknown chore: %s", id)
	}
	return ch.Status(c.world, c.world.Now()), nil
}

// ForceDue forces a chore to due and drains any cascade.
func (c *Coordinator) ForceDue(id string) error {
	return c.force(id, func(ch *chore.Chore, now time.Time) *chore.Transition {
		return ch.ForceDue(c.world, now)
	})
}

// ForceInactive forces a chore to inactive.
func (c *Coordinator) ForceInactive(id string) error {
	return c.force(id, func(ch *chore.Chore, now time.Time) *chore.Transition {
		return ch.ForceInactive(c.world, now)
	})
}

// ForceComplete forces a chore to completed.
func (c *Coordinator) ForceComplete(id string) error {
	return c.force(id, func(ch *chore.Chore, now time.Time) *chore.Transition {
		return ch.ForceComplete(c.world, now)
	})
}

// MarkDone records a manual completion for a chore.
func (c *Coordinator) MarkDone(id string) error {
	return c.force(id, func(ch *chore.Chore, now time.Time) *chore.Transition {
		return ch.MarkDone(c.world, now)
	})
}

func (c *Coordinator) force(id string, fn func(*chore.Chore, time.Time) *chore.Transition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.chores[id]
	if !ok {
		return fmt.Errorf("unknown chore: %s", id)
	}
	now := c.world.Now()
	if tr := fn(ch, now); tr != nil {
		c.emit(ch, *tr)
	}
	c.drain(ch, now)
	return nil
}
