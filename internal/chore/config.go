// Package chore implements the per-chore state machine: role-specific stage
// wrappers around detectors, gate conditions, reset policies, and the
// five-state lifecycle orchestrator that combines them.
package chore

import "github.com/choretrack/choretrack/internal/detector"

// GateConfig describes a secondary entity-state precondition.
type GateConfig struct {
	EntityID string `yaml:"entity_id" json:"entity_id"`
	State    string `yaml:"state" json:"state"`
}

// StageConfig configures one stage: a detector plus an optional gate.
// The detector fields are inlined.
type StageConfig struct {
	detector.Config `yaml:",inline"`
	Gate            *GateConfig `yaml:"gate,omitempty" json:"gate,omitempty"`
}

// ResetConfig configures an explicit reset policy. When absent, a default is
// derived from the trigger type.
type ResetConfig struct {
	Type    string `yaml:"type" json:"type"`
	Minutes int    `yaml:"minutes,omitempty" json:"minutes,omitempty"`
	Time    string `yaml:"time,omitempty" json:"time,omitempty"`
}

// Config describes one chore.
type Config struct {
	ID         string       `yaml:"id" json:"id"`
	Name       string       `yaml:"name" json:"name"`
	Trigger    StageConfig  `yaml:"trigger" json:"trigger"`
	Completion *StageConfig `yaml:"completion,omitempty" json:"completion,omitempty"`
	Reset      *ResetConfig `yaml:"reset,omitempty" json:"reset,omitempty"`
}
