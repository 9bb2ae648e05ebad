package chore

import (
	"time"

	"github.com/choretrack/choretrack/internal/detector"
)

// StageSnapshot is the persistable state of one stage: the detector's
// tracking fields plus the stage-level flags. Listener handles are never
// serialized.
type StageSnapshot struct {
	detector.Snapshot

	GateHolding bool `json:"gate_holding,omitempty" yaml:"gate_holding,omitempty"`

	// Completion-stage only.
	Enabled   bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	StepsDone int  `json:"steps_done,omitempty" yaml:"steps_done,omitempty"`
}

// CompletionRecord is one entry of a chore's bounded completion history.
type CompletionRecord struct {
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
	CompletedBy string    `json:"completed_by" yaml:"completed_by"`
	Forced      bool      `json:"forced,omitempty" yaml:"forced,omitempty"`
}

// Snapshot is the full persistable state of a chore. Missing fields restore
// to their idle defaults, so snapshots written by older versions load
// without migration.
type Snapshot struct {
	State          State              `json:"state" yaml:"state"`
	StateEnteredAt *time.Time         `json:"state_entered_at,omitempty" yaml:"state_entered_at,omitempty"`
	DueSince       *time.Time         `json:"due_since,omitempty" yaml:"due_since,omitempty"`
	Forced         bool               `json:"forced,omitempty" yaml:"forced,omitempty"`
	Trigger        *StageSnapshot     `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Completion     *StageSnapshot     `json:"completion,omitempty" yaml:"completion,omitempty"`
	History        []CompletionRecord `json:"history,omitempty" yaml:"history,omitempty"`
}
