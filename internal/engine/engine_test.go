package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choretrack/choretrack/internal/chore"
	"github.com/choretrack/choretrack/internal/detector"
	"github.com/choretrack/choretrack/internal/state"
	"github.com/choretrack/choretrack/internal/testutil"
)

func newCoordinator(t *testing.T) (*Coordinator, *testutil.FakeClock) {
	t.Helper()

	start := time.Date(2026, 3, 10, 5, 0, 0, 0, time.Local)
	world, clock := testutil.NewWorld(start)
	store := state.NewStore(t.TempDir())
	require.NoError(t, store.Load())
	return New(world, store, Options{}), clock
}

func dailyChore(id string) chore.Config {
	return chore.Config{
		ID:      id,
		Trigger: chore.StageConfig{Config: detector.Config{Type: "daily", Time: "06:00"}},
	}
}

func TestCoordinator_TickEmitsEvents(t *testing.T) {
	t.Parallel()

	coord, clock := newCoordinator(t)
	require.NoError(t, coord.Register(dailyChore("feed_cat")))

	var events []Event
	coord.OnEvent(func(ev Event) { events = append(events, ev) })

	coord.Tick(clock.Advance(90 * time.Minute))

	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, "feed_cat", events[0].ChoreID)
	assert.Equal(t, chore.StateInactive, events[0].Previous)
	assert.Equal(t, chore.StateDue, events[0].New)
	assert.False(t, events[0].Forced)
}

func TestCoordinator_EntityEventDrivesTransitions(t *testing.T) {
	t.Parallel()

	coord, clock := newCoordinator(t)
	coord.SetEntityState("binary_sensor.hatch", "off")

	require.NoError(t, coord.Register(chore.Config{
		ID:      "refill",
		Trigger: chore.StageConfig{Config: detector.Config{Type: "contact", EntityID: "binary_sensor.hatch"}},
	}))

	var events []Event
	coord.OnEvent(func(ev Event) { events = append(events, ev) })

	clock.Advance(time.Minute)
	coord.SetEntityState("binary_sensor.hatch", "on")

	require.Len(t, events, 1)
	assert.Equal(t, chore.StateDue, events[0].New)
}

func TestCoordinator_ForceCascadesDrain(t *testing.T) {
	t.Parallel()

	coord, clock := newCoordinator(t)
	require.NoError(t, coord.Register(chore.Config{
		ID:      "vacuum",
		Trigger: chore.StageConfig{Config: detector.Config{Type: "contact", EntityID: "binary_sensor.hatch"}},
		Reset:   &chore.ResetConfig{Type: "delay", Minutes: 0},
	}))

	var events []Event
	coord.OnEvent(func(ev Event) { events = append(events, ev) })

	clock.Advance(time.Minute)
	require.NoError(t, coord.ForceComplete("vacuum"))

	// The forced completion and the zero-delay reset arrive in order.
	require.Len(t, events, 2)
	assert.Equal(t, chore.StateCompleted, events[0].New)
	assert.True(t, events[0].Forced)
	assert.Equal(t, chore.StateInactive, events[1].New)

	assert.Error(t, coord.ForceComplete("nope"))
}

func TestCoordinator_RemoveReleasesListeners(t *testing.T) {
	t.Parallel()

	coord, _ := newCoordinator(t)
	require.NoError(t, coord.Register(chore.Config{
		ID:      "refill",
		Trigger: chore.StageConfig{Config: detector.Config{Type: "contact", EntityID: "binary_sensor.hatch"}},
	}))
	require.Greater(t, coord.World().SubscriptionCount(), 0)

	require.NoError(t, coord.Remove("refill"))
	assert.Equal(t, 0, coord.World().SubscriptionCount())
	assert.Empty(t, coord.Statuses())

	assert.Error(t, coord.Remove("refill"))
}

func TestCoordinator_PersistsAndRestores(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 5, 0, 0, 0, time.Local)
	world, clock := testutil.NewWorld(start)
	tmpDir := t.TempDir()

	store := state.NewStore(tmpDir)
	require.NoError(t, store.Load())
	coord := New(world, store, Options{})
	require.NoError(t, coord.Register(dailyChore("feed_cat")))
	coord.Tick(clock.Advance(90 * time.Minute))

	status, err := coord.Status("feed_cat")
	require.NoError(t, err)
	require.Equal(t, chore.StateDue, status.State)

	// A fresh coordinator over the same store comes back in the same state
	// without emitting events for it.
	store2 := state.NewStore(tmpDir)
	require.NoError(t, store2.Load())
	world2, _ := testutil.NewWorld(clock.Now())
	coord2 := New(world2, store2, Options{})
	coord2.OnEvent(func(ev Event) {
		t.Fatalf("restore emitted %s -> %s", ev.Previous, ev.New)
	})
	require.NoError(t, coord2.Register(dailyChore("feed_cat")))

	status, err = coord2.Status("feed_cat")
	require.NoError(t, err)
	assert.Equal(t, chore.StateDue, status.State)
}

func TestCoordinator_DuplicateRegister(t *testing.T) {
	t.Parallel()

	coord, _ := newCoordinator(t)
	require.NoError(t, coord.Register(dailyChore("feed_cat")))
	assert.Error(t, coord.Register(dailyChore("feed_cat")))
}
