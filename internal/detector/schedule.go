package detector

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a time of day, minute resolution.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (seconds tolerated and ignored).
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ClockTime{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("invalid time %q: bad hour", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid time %q: bad minute", s)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// String renders the time as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On places the clock time on the calendar day of t, in t's location.
func (c ClockTime) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
}

// NextAfter returns the first occurrence of the clock time strictly after t.
func (c ClockTime) NextAfter(t time.Time) time.Time {
	local := t.Local()
	candidate := c.On(local)
	if !local.Before(candidate) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

var weekdays = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

// ParseWeekday parses a three-letter weekday name.
func ParseWeekday(s string) (time.Weekday, error) {
	day, ok := weekdays[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("invalid weekday %q", s)
	}
	return day, nil
}

// WeekdaySlot is one resolved weekly schedule slot.
type WeekdaySlot struct {
	Day time.Weekday
	At  ClockTime
}

// ParseSchedule resolves configured schedule entries into weekday slots.
func ParseSchedule(entries []ScheduleEntry) ([]WeekdaySlot, error) {
	slots := make([]WeekdaySlot, 0, len(entries))
	for _, entry := range entries {
		day, err := ParseWeekday(entry.Day)
		if err != nil {
			return nil, err
		}
		at, err := ParseClock(entry.Time)
		if err != nil {
			return nil, err
		}
		slots = append(slots, WeekdaySlot{Day: day, At: at})
	}
	return slots, nil
}

// NextSlotAfter returns the earliest slot occurrence strictly after t.
func NextSlotAfter(slots []WeekdaySlot, t time.Time) time.Time {
	local := t.Local()
	var best time.Time
	for _, slot := range slots {
		candidate := slot.At.On(local)
		daysAhead := int(slot.Day-local.Weekday()+7) % 7
		candidate = candidate.AddDate(0, 0, daysAhead)
		if !candidate.After(local) {
			candidate = candidate.AddDate(0, 0, 7)
		}
		if best.IsZero() || candidate.Before(best) {
			best = candidate
		}
	}
	if best.IsZero() {
		return local.AddDate(0, 0, 1)
	}
	return best
}

// localDate renders t's local calendar date, the unit of the daily/weekly
// once-per-day latch.
func localDate(t time.Time) string {
	return t.Local().Format("2006-01-02")
}
