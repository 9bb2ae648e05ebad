package detector

import "time"

// Default thresholds for the power_cycle detector.
const (
	DefaultPowerThreshold   = 10.0
	DefaultCurrentThreshold = 0.04
	DefaultCooldownMinutes  = 5
	DefaultDebounceSeconds  = 2
)

// ScheduleEntry is one weekly schedule slot as written in configuration.
type ScheduleEntry struct {
	Day  string `yaml:"day" json:"day"`
	Time string `yaml:"time" json:"time"`
}

// Config is the union of all detector configuration fields. Each variant
// reads the fields it needs and rejects structurally impossible combinations
// with a ConfigError at construction.
type Config struct {
	Type string `yaml:"type" json:"type"`

	// Entity watchers (state_change, duration, sensor_state, contact,
	// contact_cycle, presence_cycle, sensor_threshold).
	EntityID string `yaml:"entity_id,omitempty" json:"entity_id,omitempty"`

	// state_change.
	From string `yaml:"from,omitempty" json:"from,omitempty"`
	To   string `yaml:"to,omitempty" json:"to,omitempty"`

	// Target state (duration, sensor_state); defaults to "on".
	State string `yaml:"state,omitempty" json:"state,omitempty"`

	// daily ("HH:MM").
	Time string `yaml:"time,omitempty" json:"time,omitempty"`

	// weekly.
	Schedule []ScheduleEntry `yaml:"schedule,omitempty" json:"schedule,omitempty"`

	// duration.
	DurationHours float64 `yaml:"duration_hours,omitempty" json:"duration_hours,omitempty"`

	// power_cycle.
	PowerSensor      string  `yaml:"power_sensor,omitempty" json:"power_sensor,omitempty"`
	CurrentSensor    string  `yaml:"current_sensor,omitempty" json:"current_sensor,omitempty"`
	PowerThreshold   float64 `yaml:"power_threshold,omitempty" json:"power_threshold,omitempty"`
	CurrentThreshold float64 `yaml:"current_threshold,omitempty" json:"current_threshold,omitempty"`
	CooldownMinutes  int     `yaml:"cooldown_minutes,omitempty" json:"cooldown_minutes,omitempty"`

	// contact_cycle. Pointer so an explicit zero disables the debounce.
	DebounceSeconds *int `yaml:"debounce_seconds,omitempty" json:"debounce_seconds,omitempty"`

	// sensor_threshold. Threshold is a pointer so zero is configurable.
	Threshold *float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Operator  string   `yaml:"operator,omitempty" json:"operator,omitempty"`
}

// Snapshot is the persistable tracking state of a detector. One record type
// covers all variants: each reads and writes only the fields it owns, and
// every field is optional with an idle default, so older or partial snapshots
// restore cleanly field by field.
//
// Listener handles and the power-cycle running flag are deliberately absent;
// both are recomputed from live state after restore.
type Snapshot struct {
	Phase          string     `json:"phase,omitempty"`
	PhaseEnteredAt *time.Time `json:"phase_entered_at,omitempty"`

	// daily, weekly: local calendar date ("2006-01-02") of the last fire.
	FiredOn string `json:"fired_on,omitempty"`

	// power_cycle: when readings fell below threshold.
	PowerDroppedAt *time.Time `json:"power_dropped_at,omitempty"`

	// duration: absolute completion deadline.
	Deadline *time.Time `json:"deadline,omitempty"`

	// contact_cycle: when an unconfirmed open was observed.
	PendingSince *time.Time `json:"pending_since,omitempty"`
}
