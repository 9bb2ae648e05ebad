package detector

import (
	"time"

	"github.com/choretrack/choretrack/internal/entities"
)

// Daily fires once per local calendar day at a configured time. The
// once-per-day latch is keyed by the fire date, so it clears at local
// midnight and survives restarts. Purely tick-driven; trigger role only.
type Daily struct {
	Core
	at      ClockTime
	firedOn string
}

func newDaily(cfg Config) (Detector, error) {
	if cfg.Time == "" {
		return nil, &ConfigError{Detector: cfg.Type, Field: "time", Message: "required"}
	}
	at, err := ParseClock(cfg.Time)
	if err != nil {
		return nil, &ConfigError{Detector: cfg.Type, Field: "time", Message: err.Error()}
	}
	return &Daily{at: at}, nil
}

func (d *Daily) Type() Type { return TypeDaily }

func (d *Daily) SupportsStage(s Stage) bool { return s == StageTrigger }

// At returns the configured time of day.
func (d *Daily) At() ClockTime { return d.at }

// NextTrigger returns the next scheduled fire time after now.
func (d *Daily) NextTrigger(now time.Time) time.Time {
	return d.at.NextAfter(now)
}

func (d *Daily) Reset(at time.Time) {
	d.Core.Reset(at)
	d.firedOn = ""
}

func (d *Daily) Evaluate(r entities.Reader, now time.Time) Phase {
	if d.Phase() == PhaseIdle && d.firedOn != localDate(now) {
		if !now.Local().Before(d.at.On(now.Local())) {
			d.firedOn = localDate(now)
			d.SetPhase(PhaseDone, now)
		}
	}
	return d.Phase()
}

func (d *Daily) Attributes(r entities.Reader, now time.Time) map[string]any {
	return map[string]any{
		"detector_type": string(TypeDaily),
		"trigger_time":  d.at.String(),
		"next_trigger":  d.NextTrigger(now).Format(time.RFC3339),
		"fired_today":   d.firedOn == localDate(now),
	}
}

func (d *Daily) Snapshot() Snapshot {
	snap := d.Core.Snapshot()
	snap.FiredOn = d.firedOn
	return snap
}

func (d *Daily) Restore(snap Snapshot) {
	d.restoreCore(snap)
	d.firedOn = snap.FiredOn
}
