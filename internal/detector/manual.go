package detector

import (
	"time"

	"github.com/choretrack/choretrack/internal/entities"
)

// Manual never transitions on its own; the phase moves only through explicit
// force actions. Completion role only.
type Manual struct {
	Core
}

func newManual(cfg Config) (Detector, error) {
	return &Manual{}, nil
}

func (d *Manual) Type() Type { return TypeManual }

func (d *Manual) SupportsStage(s Stage) bool { return s == StageCompletion }

func (d *Manual) Attributes(r entities.Reader, now time.Time) map[string]any {
	return map[string]any{"detector_type": string(TypeManual)}
}
