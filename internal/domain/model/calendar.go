package model

import (
	"fmt"
	"iter"
	"time"
)

// Clock is a wall-clock time of day with minute resolution.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// MustClock is ParseClock for constants.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockOf returns the wall-clock part of t.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

// Before reports whether c is earlier in the day than o.
func (c Clock) Before(o Clock) bool { return c.Minutes() < o.Minutes() }

// On combines the calendar date of day with c in day's location.
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Preferences is the per-user scheduling configuration. It is read-only to
// the scheduling engine.
type Preferences struct {
	ActiveStart          Clock
	ActiveEnd            Clock
	MinBlockMinutes      int
	PreferredTaskMinutes int
}

// Default preference values.
const (
	DefaultMinBlockMinutes      = 15
	DefaultPreferredTaskMinutes = 60
)

// DefaultPreferences returns the 08:00–22:00 window with a 15 minute floor.
func DefaultPreferences() Preferences {
	return Preferences{
		ActiveStart:          Clock{Hour: 8},
		ActiveEnd:            Clock{Hour: 22},
		MinBlockMinutes:      DefaultMinBlockMinutes,
		PreferredTaskMinutes: DefaultPreferredTaskMinutes,
	}
}

// MinBlock returns the minimum free block length.
func (p Preferences) MinBlock() time.Duration {
	return time.Duration(p.MinBlockMinutes) * time.Minute
}

// Validate checks the window and floor.
func (p Preferences) Validate() error {
	if !p.ActiveStart.Before(p.ActiveEnd) {
		return fmt.Errorf("active window %s-%s: start must be before end", p.ActiveStart, p.ActiveEnd)
	}
	if p.MinBlockMinutes <= 0 {
		return fmt.Errorf("min block minutes must be positive, got %d", p.MinBlockMinutes)
	}
	return nil
}

// Horizon is an inclusive range of calendar dates. From and To are midnights
// in the same location.
type Horizon struct {
	From time.Time
	To   time.Time
}

// Date truncates t to midnight of its calendar day, keeping its location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NewHorizon covers the date of from and the extraDays following dates.
func NewHorizon(from time.Time, extraDays int) Horizon {
	start := Date(from)
	return Horizon{From: start, To: start.AddDate(0, 0, extraDays)}
}

// Location returns the horizon's time zone.
func (h Horizon) Location() *time.Location { return h.From.Location() }

// Includes reports whether the date of t falls within the horizon.
func (h Horizon) Includes(t time.Time) bool {
	d := Date(t.In(h.Location()))
	return !d.Before(h.From) && !d.After(h.To)
}

// Days yields each date of the horizon in order.
func (h Horizon) Days() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for d := h.From; !d.After(h.To); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}
