// Package entities defines the contract between the chore tracking core and
// the external entity world: point reads of entity state, subscriptions to
// entity state changes, and the wall clock. The core never writes entity
// state; everything here is read-only from its perspective.
package entities

import "time"

// Unavailable values an entity can report. Detectors and gates treat these
// the same as a missing entity: no phase change is derived from them.
const (
	StateUnknown     = "unknown"
	StateUnavailable = "unavailable"
)

// Readable reports whether a state value carries usable information.
func Readable(value string) bool {
	return value != "" && value != StateUnknown && value != StateUnavailable
}

// Change describes a single entity state transition delivered to a
// subscriber. HasOld is false when the entity had no previous known value
// (startup, or coming back from unavailable); listeners generally ignore
// such transitions so that restores do not masquerade as real events.
type Change struct {
	EntityID string
	Old      string
	New      string
	HasOld   bool
	At       time.Time
}

// Unsubscribe releases a single subscription. Safe to call more than once.
type Unsubscribe func()

// Reader provides point reads of entity state.
// The boolean result is false when the entity is not known at all.
type Reader interface {
	State(entityID string) (value string, lastChanged time.Time, ok bool)
}

// Subscriber delivers state-change notifications for a set of entities.
// Callbacks are invoked synchronously on the goroutine that applies the
// change; the caller is responsible for serializing its own state.
type Subscriber interface {
	Subscribe(entityIDs []string, fn func(Change)) Unsubscribe
}

// Clock abstracts the wall clock so tests can control time.
type Clock interface {
	Now() time.Time
}

// World is the full environment a chore needs: reads, subscriptions and time.
type World interface {
	Reader
	Subscriber
	Clock
}

// SystemClock is the real wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }
