// Package interval implements half-open time intervals [Start, End).
package interval

import (
	"slices"
	"time"
)

// Interval is a half-open span of time. The zero value is empty.
type Interval struct {
	Start time.Time
	End   time.Time
}

// New returns the interval [start, end).
func New(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Duration returns End - Start. It is negative for inverted intervals.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Minutes returns the duration in (possibly fractional) minutes.
func (i Interval) Minutes() float64 {
	return i.Duration().Minutes()
}

// Empty reports whether the interval covers no time.
func (i Interval) Empty() bool {
	return !i.End.After(i.Start)
}

// Overlaps reports whether the two intervals share any instant.
// Back-to-back intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	if i.Empty() || o.Empty() {
		return false
	}
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether o lies fully inside i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// ContainsTime reports whether t falls in [Start, End).
func (i Interval) ContainsTime(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Compare orders intervals by start, then by end.
func Compare(a, b Interval) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	return a.End.Compare(b.End)
}

// Sort orders intervals ascending by start. Equal starts keep their input order.
func Sort(xs []Interval) {
	slices.SortStableFunc(xs, func(a, b Interval) int {
		return a.Start.Compare(b.Start)
	})
}

// Subtract returns the gaps of window that are not covered by occupied, keeping
// only gaps of at least minDur. occupied need not be sorted or disjoint; it is
// not modified. Gaps are returned in ascending order and clipped to window.
func Subtract(window Interval, occupied []Interval, minDur time.Duration) []Interval {
	if window.Empty() {
		return nil
	}
	sorted := slices.Clone(occupied)
	Sort(sorted)

	var gaps []Interval
	emit := func(start, end time.Time) {
		if end.After(window.End) {
			end = window.End
		}
		g := Interval{Start: start, End: end}
		if !g.Empty() && g.Duration() >= minDur {
			gaps = append(gaps, g)
		}
	}

	cursor := window.Start
	for _, o := range sorted {
		if !cursor.Before(window.End) {
			break
		}
		emit(cursor, o.Start)
		if o.End.After(cursor) {
			cursor = o.End
		}
	}
	if cursor.Before(window.End) {
		emit(cursor, window.End)
	}
	return gaps
}
