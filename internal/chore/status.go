package chore

import (
	"time"

	"github.com/choretrack/choretrack/internal/entities"
)

// Status is a point-in-time view of a chore for the HTTP API and CLI.
type Status struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	State          State             `json:"state"`
	StateEnteredAt time.Time         `json:"state_entered_at"`
	DueSince       *time.Time        `json:"due_since,omitempty"`
	NextDue        *time.Time        `json:"next_due,omitempty"`
	NextReset      *time.Time        `json:"next_reset,omitempty"`
	LastCompleted  *CompletionRecord `json:"last_completed,omitempty"`
	StepsDone      int               `json:"steps_done"`
	StepsTotal     int               `json:"steps_total"`
	Attributes     map[string]any    `json:"attributes,omitempty"`
}

// Status builds the current status view.
func (c *Chore) Status(r entities.Reader, now time.Time) Status {
	return Status{
		ID:             c.id,
		Name:           c.name,
		State:          c.state,
		StateEnteredAt: c.stateEnteredAt,
		DueSince:       c.dueSince,
		NextDue:        c.NextDue(now),
		NextReset:      c.NextReset(),
		LastCompleted:  c.LastCompleted(),
		StepsDone:      c.completion.StepsDone(),
		StepsTotal:     c.completion.StepsTotal(),
		Attributes:     c.Attributes(r, now),
	}
}
