package freeblocks_test

import (
	"testing"
	"time"

	"github.com/morywal/CalendarApp/internal/domain/freeblocks"
	"github.com/morywal/CalendarApp/internal/domain/interval"
	"github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/morywal/CalendarApp/internal/domain/recurrence"
	"github.com/smartystreets/goconvey/convey"
)

var day = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func at(d time.Time, h, m int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, time.UTC)
}

func inst(start, end time.Time) recurrence.Instance {
	return recurrence.Instance{Interval: interval.New(start, end)}
}

func spans(bs []model.FreeBlock) []interval.Interval {
	out := make([]interval.Interval, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.Interval)
	}
	return out
}

func TestDerive(t *testing.T) {
	convey.Convey("Given default preferences", t, func() {
		prefs := model.DefaultPreferences()

		convey.Convey("A daily 09:00-17:00 commitment over one day leaves two blocks", func() {
			work := model.FixedCommitment{
				Title:      "Work",
				Start:      at(day, 9, 0),
				End:        at(day, 17, 0),
				Recurrence: model.RecurrenceDaily,
			}
			h := model.NewHorizon(day, 0)
			got := freeblocks.Derive(prefs, recurrence.ExpandAll([]model.FixedCommitment{work}, h), h)
			convey.So(spans(got), convey.ShouldResemble, []interval.Interval{
				interval.New(at(day, 8, 0), at(day, 9, 0)),
				interval.New(at(day, 17, 0), at(day, 22, 0)),
			})
		})

		convey.Convey("A free day is one whole-window block", func() {
			got := freeblocks.Derive(prefs, nil, model.NewHorizon(day, 1))
			convey.So(got, convey.ShouldHaveLength, 2)
			convey.So(got[1].Start, convey.ShouldEqual, at(day.AddDate(0, 0, 1), 8, 0))
			convey.So(got[1].DurationMinutes(), convey.ShouldEqual, 14*60.0)
		})

		convey.Convey("A gap of exactly the floor is kept and one minute less is dropped", func() {
			got := freeblocks.DeriveDay(prefs, []recurrence.Instance{
				inst(at(day, 8, 15), at(day, 12, 0)),
				inst(at(day, 12, 14), at(day, 22, 0)),
			}, day)
			convey.So(spans(got), convey.ShouldResemble, []interval.Interval{
				interval.New(at(day, 8, 0), at(day, 8, 15)),
			})
		})

		convey.Convey("Overlapping and back-to-back instances are not errors", func() {
			got := freeblocks.DeriveDay(prefs, []recurrence.Instance{
				inst(at(day, 10, 0), at(day, 12, 0)),
				inst(at(day, 11, 0), at(day, 13, 0)),
				inst(at(day, 13, 0), at(day, 14, 0)),
			}, day)
			convey.So(spans(got), convey.ShouldResemble, []interval.Interval{
				interval.New(at(day, 8, 0), at(day, 10, 0)),
				interval.New(at(day, 14, 0), at(day, 22, 0)),
			})
		})

		convey.Convey("Instances on other days do not touch this day", func() {
			next := day.AddDate(0, 0, 1)
			got := freeblocks.DeriveDay(prefs, []recurrence.Instance{inst(at(next, 9, 0), at(next, 10, 0))}, day)
			convey.So(got, convey.ShouldHaveLength, 1)
		})

		convey.Convey("An overnight instance from the previous day occupies the morning", func() {
			prev := day.AddDate(0, 0, -1)
			got := freeblocks.DeriveDay(prefs, []recurrence.Instance{inst(at(prev, 22, 0), at(day, 9, 30))}, day)
			convey.So(spans(got), convey.ShouldResemble, []interval.Interval{
				interval.New(at(day, 9, 30), at(day, 22, 0)),
			})
		})

		convey.Convey("Every block respects the window and the floor", func() {
			prefs.MinBlockMinutes = 30
			h := model.NewHorizon(day, 6)
			var in []recurrence.Instance
			for d := range h.Days() {
				in = append(in, inst(at(d, 9, 10), at(d, 9, 50)), inst(at(d, 10, 5), at(d, 18, 0)))
			}
			for _, b := range freeblocks.Derive(prefs, in, h) {
				w := freeblocks.Window(prefs, b.Start)
				convey.So(w.Contains(b.Interval), convey.ShouldBeTrue)
				convey.So(b.DurationMinutes(), convey.ShouldBeGreaterThanOrEqualTo, 30.0)
			}
		})
	})
}
