package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choretrack/choretrack/internal/testutil"
)

func TestContactCycle_OpenThenClose(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	world, clock := testutil.NewWorld(start)
	world.SetState("binary_sensor.drawer", "off")

	debounce := 2
	det, err := New(Config{Type: "contact_cycle", EntityID: "binary_sensor.drawer", DebounceSeconds: &debounce})
	require.NoError(t, err)
	det.SetupListeners(world, func() {})

	assert.Equal(t, 2, det.Steps())

	// Open is held as pending until the debounce window elapses.
	world.SetState("binary_sensor.drawer", "on")
	assert.Equal(t, PhaseIdle, det.Phase())

	assert.Equal(t, PhaseActive, det.Evaluate(world, clock.Advance(3*time.Second)))

	world.SetState("binary_sensor.drawer", "off")
	assert.Equal(t, PhaseDone, det.Phase())
}

func TestContactCycle_BounceCancelsOpen(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	world, clock := testutil.NewWorld(start)
	world.SetState("binary_sensor.drawer", "off")

	debounce := 5
	det, err := New(Config{Type: "contact_cycle", EntityID: "binary_sensor.drawer", DebounceSeconds: &debounce})
	require.NoError(t, err)
	det.SetupListeners(world, func() {})

	world.SetState("binary_sensor.drawer", "on")
	clock.Advance(time.Second)
	world.SetState("binary_sensor.drawer", "off")

	// The open never confirmed, so the cycle never started.
	assert.Equal(t, PhaseIdle, det.Phase())
	assert.Equal(t, PhaseIdle, det.Evaluate(world, clock.Advance(time.Minute)))
}

func TestContactCycle_FullCycleBetweenTicks(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	world, clock := testutil.NewWorld(start)
	world.SetState("binary_sensor.drawer", "off")

	debounce := 2
	det, err := New(Config{Type: "contact_cycle", EntityID: "binary_sensor.drawer", DebounceSeconds: &debounce})
	require.NoError(t, err)
	det.SetupListeners(world, func() {})

	// Open, then close after the debounce but before any tick ran: the
	// close event itself confirms the open and completes the cycle.
	world.SetState("binary_sensor.drawer", "on")
	clock.Advance(10 * time.Second)
	world.SetState("binary_sensor.drawer", "off")
	assert.Equal(t, PhaseDone, det.Phase())
}

func TestContactCycle_SingleOpenNeverDone(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	world, clock := testutil.NewWorld(start)
	world.SetState("binary_sensor.drawer", "off")

	debounce := 2
	det, err := New(Config{Type: "contact_cycle", EntityID: "binary_sensor.drawer", DebounceSeconds: &debounce})
	require.NoError(t, err)
	det.SetupListeners(world, func() {})

	world.SetState("binary_sensor.drawer", "on")
	for i := 0; i < 10; i++ {
		det.Evaluate(world, clock.Advance(time.Minute))
	}
	// Without an intervening close the detector stays at the active step.
	assert.Equal(t, PhaseActive, det.Phase())
}

func TestContactCycle_ZeroDebounce(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	world, _ := testutil.NewWorld(start)
	world.SetState("binary_sensor.drawer", "off")

	debounce := 0
	det, err := New(Config{Type: "contact_cycle", EntityID: "binary_sensor.drawer", DebounceSeconds: &debounce})
	require.NoError(t, err)
	det.SetupListeners(world, func() {})

	world.SetState("binary_sensor.drawer", "on")
	det.Evaluate(world, world.Now())
	assert.Equal(t, PhaseActive, det.Phase())
}

func TestContactCycle_SnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	world, clock := testutil.NewWorld(start)
	world.SetState("binary_sensor.drawer", "off")

	debounce := 2
	det, err := New(Config{Type: "contact_cycle", EntityID: "binary_sensor.drawer", DebounceSeconds: &debounce})
	require.NoError(t, err)
	det.SetupListeners(world, func() {})

	world.SetState("binary_sensor.drawer", "on")
	snap := det.Snapshot()
	require.NotNil(t, snap.PendingSince)

	restored, err := New(Config{Type: "contact_cycle", EntityID: "binary_sensor.drawer", DebounceSeconds: &debounce})
	require.NoError(t, err)
	restored.Restore(snap)

	// The pending open survives a restart and confirms on the next tick.
	assert.Equal(t, PhaseActive, restored.Evaluate(world, clock.Advance(3*time.Second)))
}
