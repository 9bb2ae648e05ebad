package chore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choretrack/choretrack/internal/detector"
	"github.com/choretrack/choretrack/internal/testutil"
)

func TestNewCompletionStage_NilConfigDefaultsToManual(t *testing.T) {
	t.Parallel()

	stage, err := NewCompletionStage(nil)
	require.NoError(t, err)
	assert.Equal(t, detector.TypeManual, stage.Type())
	assert.Equal(t, 1, stage.StepsTotal())
}

func TestNewCompletionStage_RejectsTriggerOnly(t *testing.T) {
	t.Parallel()

	_, err := NewCompletionStage(&StageConfig{Config: detector.Config{Type: "daily", Time: "06:00"}})
	require.Error(t, err)
	var cfgErr *detector.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestCompletionStage_DisabledFreezesPhase(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	world, _ := testutil.NewWorld(start)
	world.SetState("binary_sensor.hatch", "off")

	stage, err := NewCompletionStage(&StageConfig{
		Config: detector.Config{Type: "contact", EntityID: "binary_sensor.hatch"},
	})
	require.NoError(t, err)

	pokes := 0
	stage.SetupListeners(world, func() { pokes++ })

	// Detector events while disabled are tracked but never propagated.
	world.SetState("binary_sensor.hatch", "on")
	assert.Equal(t, detector.PhaseIdle, stage.Phase())
	assert.Equal(t, 0, pokes)
	assert.Equal(t, detector.PhaseDone, stage.Detector().Phase())

	// Enabling surfaces the detector's current phase, not a replay.
	stage.Enable(world, world.Now())
	assert.Equal(t, detector.PhaseDone, stage.Phase())
	assert.Equal(t, stage.StepsTotal(), stage.StepsDone())
}

func TestCompletionStage_EnableRunsImmediateCheck(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	world, _ := testutil.NewWorld(start)
	world.SetState("sensor.humidity", "75")

	threshold := 60.0
	stage, err := NewCompletionStage(&StageConfig{
		Config: detector.Config{Type: "sensor_threshold", EntityID: "sensor.humidity", Threshold: &threshold},
	})
	require.NoError(t, err)

	// The condition already holds the instant the stage is armed.
	stage.Enable(world, world.Now())
	assert.Equal(t, detector.PhaseDone, stage.Phase())
}

func TestCompletionStage_DisableFreezesVisiblePhase(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	world, _ := testutil.NewWorld(start)
	world.SetState("person.alex", "home")

	stage, err := NewCompletionStage(&StageConfig{
		Config: detector.Config{Type: "presence_cycle", EntityID: "person.alex"},
	})
	require.NoError(t, err)
	stage.SetupListeners(world, func() {})
	stage.Enable(world, world.Now())

	world.SetState("person.alex", "not_home")
	require.Equal(t, detector.PhaseActive, stage.Phase())
	require.Equal(t, 1, stage.StepsDone())

	stage.Disable()
	assert.Equal(t, detector.PhaseActive, stage.Phase())

	// The cycle finishes while disabled: the frozen phase is unchanged.
	world.SetState("person.alex", "home")
	assert.Equal(t, detector.PhaseActive, stage.Phase())

	stage.Enable(world, world.Now())
	assert.Equal(t, detector.PhaseDone, stage.Phase())
}

func TestCompletionStage_GateHoldsDone(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	world, _ := testutil.NewWorld(start)
	world.SetState("binary_sensor.hatch", "off")
	world.SetState("binary_sensor.lid", "off")

	stage, err := NewCompletionStage(&StageConfig{
		Config: detector.Config{Type: "contact", EntityID: "binary_sensor.hatch"},
		Gate:   &GateConfig{EntityID: "binary_sensor.lid", State: "on"},
	})
	require.NoError(t, err)

	pokes := 0
	stage.SetupListeners(world, func() { pokes++ })
	stage.Enable(world, world.Now())

	world.SetState("binary_sensor.hatch", "on")
	assert.Equal(t, detector.PhaseActive, stage.Phase())
	assert.True(t, stage.Holding())
	assert.Equal(t, 1, pokes)

	world.SetState("binary_sensor.lid", "on")
	assert.Equal(t, detector.PhaseDone, stage.Phase())
	assert.Equal(t, 2, pokes)
}

func TestCompletionStage_ResetDisarms(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	world, _ := testutil.NewWorld(start)
	world.SetState("binary_sensor.hatch", "off")

	stage, err := NewCompletionStage(&StageConfig{
		Config: detector.Config{Type: "contact", EntityID: "binary_sensor.hatch"},
	})
	require.NoError(t, err)
	stage.SetupListeners(world, func() {})
	stage.Enable(world, world.Now())
	world.SetState("binary_sensor.hatch", "on")
	require.Equal(t, detector.PhaseDone, stage.Phase())

	stage.Reset(world.Now())
	assert.False(t, stage.Enabled())
	assert.Equal(t, detector.PhaseIdle, stage.Phase())
	assert.Equal(t, 0, stage.StepsDone())
	assert.Equal(t, detector.PhaseIdle, stage.Detector().Phase())
}

func TestCompletionStage_SnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	world, _ := testutil.NewWorld(start)
	world.SetState("person.alex", "home")

	stage, err := NewCompletionStage(&StageConfig{
		Config: detector.Config{Type: "presence_cycle", EntityID: "person.alex"},
	})
	require.NoError(t, err)
	stage.SetupListeners(world, func() {})
	stage.Enable(world, world.Now())
	world.SetState("person.alex", "not_home")

	snap := stage.Snapshot()
	assert.True(t, snap.Enabled)
	assert.Equal(t, 1, snap.StepsDone)

	restored, err := NewCompletionStage(&StageConfig{
		Config: detector.Config{Type: "presence_cycle", EntityID: "person.alex"},
	})
	require.NoError(t, err)
	restored.Restore(snap)

	assert.True(t, restored.Enabled())
	assert.Equal(t, detector.PhaseActive, restored.Phase())
	assert.Equal(t, 1, restored.StepsDone())
}
