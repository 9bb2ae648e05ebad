package entities

import (
	"sort"
	"sync"
	"time"
)

// Registry is an in-memory World implementation. It backs the engine driver
// (fed by whatever transport hosts the process) and all tests. State changes
// fan out to matching subscribers synchronously, in registration order.
type Registry struct {
	mu      sync.Mutex
	clock   Clock
	states  map[string]entry
	subs    map[int]*subscription
	nextSub int
}

type entry struct {
	value   string
	changed time.Time
}

type subscription struct {
	ids map[string]struct{}
	fn  func(Change)
}

// NewRegistry creates a Registry using the given clock.
// Pass SystemClock{} outside of tests.
func NewRegistry(clock Clock) *Registry {
	return &Registry{
		clock:  clock,
		states: make(map[string]entry),
		subs:   make(map[int]*subscription),
	}
}

// Now returns the registry clock's current time.
func (r *Registry) Now() time.Time { return r.clock.Now() }

// State returns the current value of an entity and when it last changed.
func (r *Registry) State(entityID string) (string, time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.states[entityID]
	if !ok {
		return "", time.Time{}, false
	}
	return e.value, e.changed, true
}

// Subscribe registers fn for changes to any of the given entities.
func (r *Registry) Subscribe(entityIDs []string, fn func(Change)) Unsubscribe {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	ids := make(map[string]struct{}, len(entityIDs))
	for _, e := range entityIDs {
		ids[e] = struct{}{}
	}
	r.subs[id] = &subscription{ids: ids, fn: fn}
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// SetState updates an entity's value and notifies subscribers. A no-op when
// the value is unchanged. The previous value rides along on the Change;
// HasOld is false when the entity was previously absent or unreadable.
func (r *Registry) SetState(entityID, value string) {
	r.mu.Lock()
	now := r.clock.Now()
	prev, had := r.states[entityID]
	if had && prev.value == value {
		r.mu.Unlock()
		return
	}
	r.states[entityID] = entry{value: value, changed: now}

	change := Change{
		EntityID: entityID,
		Old:      prev.value,
		New:      value,
		HasOld:   had && Readable(prev.value),
		At:       now,
	}
	ids := make([]int, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var targets []func(Change)
	for _, id := range ids {
		sub := r.subs[id]
		if _, ok := sub.ids[entityID]; ok {
			targets = append(targets, sub.fn)
		}
	}
	r.mu.Unlock()

	for _, fn := range targets {
		fn(change)
	}
}

// SubscriptionCount returns the number of live subscriptions. Teardown tests
// use it to verify every listener was released.
func (r *Registry) SubscriptionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
