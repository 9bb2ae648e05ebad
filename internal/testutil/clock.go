// Package testutil provides shared test helpers: a controllable clock and
// entity world fixtures.
package testutil

import (
	"sync"
	"time"

	"github.com/choretrack/choretrack/internal/entities"
)

// FakeClock is a Clock whose time only moves when told to.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a FakeClock starting at the given time.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to an absolute time.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and returns the new time.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// NewWorld creates a registry driven by a fake clock starting at start.
func NewWorld(start time.Time) (*entities.Registry, *FakeClock) {
	clock := NewFakeClock(start)
	return entities.NewRegistry(clock), clock
}
