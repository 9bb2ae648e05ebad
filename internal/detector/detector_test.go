package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Dispatch(t *testing.T) {
	t.Parallel()

	threshold := 20.0
	tests := []struct {
		name string
		cfg  Config
		typ  Type
	}{
		{"power_cycle", Config{Type: "power_cycle", PowerSensor: "sensor.washer_power"}, TypePowerCycle},
		{"state_change", Config{Type: "state_change", EntityID: "vacuum.robo", From: "cleaning", To: "docked"}, TypeStateChange},
		{"daily", Config{Type: "daily", Time: "06:00"}, TypeDaily},
		{"weekly", Config{Type: "weekly", Schedule: []ScheduleEntry{{Day: "mon", Time: "08:00"}}}, TypeWeekly},
		{"duration", Config{Type: "duration", EntityID: "switch.uv_lamp", DurationHours: 4}, TypeDuration},
		{"manual", Config{Type: "manual"}, TypeManual},
		{"sensor_state", Config{Type: "sensor_state", EntityID: "sensor.bin", State: "empty"}, TypeSensorState},
		{"contact", Config{Type: "contact", EntityID: "binary_sensor.hatch"}, TypeContact},
		{"contact_cycle", Config{Type: "contact_cycle", EntityID: "binary_sensor.food_drawer"}, TypeContactCycle},
		{"presence_cycle", Config{Type: "presence_cycle", EntityID: "person.alex"}, TypePresenceCycle},
		{"sensor_threshold", Config{Type: "sensor_threshold", EntityID: "sensor.humidity", Threshold: &threshold}, TypeSensorThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			det, err := New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, det.Type())
			assert.Equal(t, PhaseIdle, det.Phase())
		})
	}
}

func TestNew_UnknownType(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Type: "telepathy"})
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "telepathy", cfgErr.Detector)
}

func TestNew_ConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"power_cycle no sensors", Config{Type: "power_cycle"}},
		{"state_change no entity", Config{Type: "state_change", From: "a", To: "b"}},
		{"state_change same from and to", Config{Type: "state_change", EntityID: "x.y", From: "a", To: "a"}},
		{"daily no time", Config{Type: "daily"}},
		{"daily bad time", Config{Type: "daily", Time: "25:00"}},
		{"weekly empty schedule", Config{Type: "weekly"}},
		{"weekly bad day", Config{Type: "weekly", Schedule: []ScheduleEntry{{Day: "someday", Time: "08:00"}}}},
		{"duration no hours", Config{Type: "duration", EntityID: "x.y"}},
		{"sensor_threshold no threshold", Config{Type: "sensor_threshold", EntityID: "x.y"}},
		{"contact no entity", Config{Type: "contact"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.cfg)
			require.Error(t, err)
			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestCore_SetPhaseAndReset(t *testing.T) {
	t.Parallel()

	var c Core
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, c.SetPhase(PhaseActive, at))
	assert.Equal(t, PhaseActive, c.Phase())
	assert.Equal(t, at, c.PhaseEnteredAt())

	// Setting the same phase again reports no change.
	assert.False(t, c.SetPhase(PhaseActive, at.Add(time.Hour)))
	assert.Equal(t, at, c.PhaseEnteredAt())

	c.Reset(at.Add(2 * time.Hour))
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestCore_RestoreMalformedPhase(t *testing.T) {
	t.Parallel()

	var c Core
	c.Restore(Snapshot{Phase: "levitating"})
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.True(t, c.PhaseEnteredAt().IsZero())
}

func TestManual_NeverTransitions(t *testing.T) {
	t.Parallel()

	det, err := New(Config{Type: "manual"})
	require.NoError(t, err)

	assert.False(t, det.SupportsStage(StageTrigger))
	assert.True(t, det.SupportsStage(StageCompletion))

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, PhaseIdle, det.Evaluate(nil, now))
	det.CheckImmediate(nil, now, func() { t.Fatal("manual detector must not notify") })
	assert.Equal(t, PhaseIdle, det.Phase())
}
