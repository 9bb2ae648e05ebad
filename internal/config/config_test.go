package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, ".choretrack")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return tmpDir
}

func TestLoadConfig_Default(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultTickSeconds, cfg.Engine.TickSeconds)
	assert.Equal(t, DefaultSaveInterval, cfg.Engine.SaveIntervalSeconds)
	assert.Empty(t, cfg.Chores)
}

func TestLoadConfig_ValidFile(t *testing.T) {
	t.Parallel()

	tmpDir := writeConfig(t, `log_level: debug
server:
  port: 9000
chores:
  - id: feed_cat
    name: Feed the cat
    trigger:
      type: daily
      time: "06:00"
    completion:
      type: contact_cycle
      entity_id: binary_sensor.food_drawer
      debounce_seconds: 3
      gate:
        entity_id: binary_sensor.kitchen_door
        state: "on"
    reset:
      type: delay
      minutes: 30
  - id: washing
    trigger:
      type: power_cycle
      power_sensor: sensor.washer_power
      cooldown_minutes: 10
`)

	cfg, err := LoadConfig(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	require.NotNil(t, cfg.Server)
	assert.Equal(t, 9000, cfg.Server.Port)
	require.Len(t, cfg.Chores, 2)

	feed := cfg.Chores[0]
	assert.Equal(t, "feed_cat", feed.ID)
	assert.Equal(t, "daily", feed.Trigger.Type)
	assert.Equal(t, "06:00", feed.Trigger.Time)
	require.NotNil(t, feed.Completion)
	assert.Equal(t, "contact_cycle", feed.Completion.Type)
	require.NotNil(t, feed.Completion.DebounceSeconds)
	assert.Equal(t, 3, *feed.Completion.DebounceSeconds)
	require.NotNil(t, feed.Completion.Gate)
	assert.Equal(t, "binary_sensor.kitchen_door", feed.Completion.Gate.EntityID)
	require.NotNil(t, feed.Reset)
	assert.Equal(t, 30, feed.Reset.Minutes)

	// Missing engine settings keep their defaults.
	assert.Equal(t, DefaultTickSeconds, cfg.Engine.TickSeconds)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	t.Parallel()

	tmpDir := writeConfig(t, `chores: [`)
	_, err := LoadConfig(tmpDir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name: "missing chore id",
			content: `chores:
  - trigger:
      type: daily
      time: "06:00"
`,
			field: "chores[0].id",
		},
		{
			name: "duplicate chore id",
			content: `chores:
  - id: a
    trigger:
      type: daily
      time: "06:00"
  - id: a
    trigger:
      type: daily
      time: "07:00"
`,
			field: "chores[1].id",
		},
		{
			name: "missing trigger type",
			content: `chores:
  - id: a
    trigger:
      entity_id: binary_sensor.x
`,
			field: "chores[0].trigger.type",
		},
		{
			name: "bad server port",
			content: `server:
  port: 70000
`,
			field: "server.port",
		},
		{
			name: "bad tick interval",
			content: `engine:
  tick_seconds: -5
`,
			field: "engine.tick_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpDir := writeConfig(t, tt.content)
			_, err := LoadConfig(tmpDir)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
