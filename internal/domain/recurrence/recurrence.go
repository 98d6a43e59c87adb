// Package recurrence expands fixed commitment templates into the concrete
// intervals they occupy within a planning horizon.
package recurrence

import (
	"cmp"
	"iter"
	"slices"
	"time"

	"github.com/morywal/CalendarApp/internal/domain/interval"
	"github.com/morywal/CalendarApp/internal/domain/model"
)

// Instance is one occurrence of a fixed commitment.
type Instance struct {
	CommitmentID string
	Title        string
	Priority     int
	interval.Interval
}

// Instances lazily yields the occurrences of c whose dates fall in the
// inclusive date range [from, to]. Dates are evaluated in from's location.
// The sequence is recomputed from the template on every iteration.
func Instances(c model.FixedCommitment, from, to time.Time) iter.Seq[Instance] {
	return func(yield func(Instance) bool) {
		loc := from.Location()
		from, to = model.Date(from), model.Date(to.In(loc))
		tmplStart := c.Start.In(loc)
		anchor := model.Date(tmplStart)
		startClock, endClock := model.ClockOf(tmplStart), model.ClockOf(c.End.In(loc))

		emit := func(day time.Time) bool {
			return yield(occurrence(c, day, startClock, endClock))
		}

		if c.Recurrence == "" || c.Recurrence == model.RecurrenceNone {
			if !anchor.Before(from) && !anchor.After(to) {
				emit(anchor)
			}
			return
		}

		cursor := from
		if anchor.After(cursor) {
			cursor = anchor
		}
		last := to
		if c.RecurrenceEnd != nil {
			if re := model.Date(c.RecurrenceEnd.In(loc)); re.Before(last) {
				last = re
			}
		}

		switch c.Recurrence {
		case model.RecurrenceDaily:
			for d := cursor; !d.After(last); d = d.AddDate(0, 0, 1) {
				if !emit(d) {
					return
				}
			}
		case model.RecurrenceWeekly:
			offset := (int(anchor.Weekday()) - int(cursor.Weekday()) + 7) % 7
			for d := cursor.AddDate(0, 0, offset); !d.After(last); d = d.AddDate(0, 0, 7) {
				if d.Weekday() != anchor.Weekday() {
					continue
				}
				if !emit(d) {
					return
				}
			}
		case model.RecurrenceMonthly:
			month := time.Date(cursor.Year(), cursor.Month(), 1, 0, 0, 0, 0, loc)
			for ; !month.After(last); month = month.AddDate(0, 1, 0) {
				day := min(anchor.Day(), DaysIn(month.Year(), month.Month()))
				d := time.Date(month.Year(), month.Month(), day, 0, 0, 0, 0, loc)
				if d.Before(cursor) || d.After(last) || day != anchor.Day() {
					continue
				}
				if !emit(d) {
					return
				}
			}
		}
	}
}

// Expand collects the occurrences of c within h.
func Expand(c model.FixedCommitment, h model.Horizon) []Instance {
	return slices.Collect(Instances(c, h.From, h.To))
}

// ExpandAll expands every commitment in cs and returns the occurrences
// ordered by start time.
func ExpandAll(cs []model.FixedCommitment, h model.Horizon) []Instance {
	var out []Instance
	for _, c := range cs {
		out = slices.AppendSeq(out, Instances(c, h.From, h.To))
	}
	slices.SortStableFunc(out, func(a, b Instance) int {
		return cmp.Or(a.Start.Compare(b.Start), a.End.Compare(b.End))
	})
	return out
}

// Malformed reports whether c can never produce an occurrence because its
// recurrence ends before it starts.
func Malformed(c model.FixedCommitment) bool {
	if c.RecurrenceEnd == nil {
		return false
	}
	loc := c.Start.Location()
	return model.Date(c.RecurrenceEnd.In(loc)).Before(model.Date(c.Start))
}

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	switch month {
	case time.February:
		if IsLeap(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

func occurrence(c model.FixedCommitment, day time.Time, startClock, endClock model.Clock) Instance {
	start, end := startClock.On(day), endClock.On(day)
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return Instance{
		CommitmentID: c.ID,
		Title:        c.Title,
		Priority:     c.Priority,
		Interval:     interval.New(start, end),
	}
}
