package interval_test

import (
	"testing"
	"time"

	"github.com/morywal/CalendarApp/internal/domain/interval"
	"github.com/smartystreets/goconvey/convey"
)

func at(h, m int) time.Time {
	return time.Date(2025, time.March, 10, h, m, 0, 0, time.UTC)
}

func TestInterval(t *testing.T) {
	convey.Convey("Given half-open intervals", t, func() {
		a := interval.New(at(9, 0), at(10, 0))
		b := interval.New(at(10, 0), at(11, 0))
		c := interval.New(at(9, 30), at(10, 30))

		convey.Convey("Duration and minutes are derived from the bounds", func() {
			convey.So(a.Duration(), convey.ShouldEqual, time.Hour)
			convey.So(a.Minutes(), convey.ShouldEqual, 60.0)
		})

		convey.Convey("Back-to-back intervals do not overlap", func() {
			convey.So(a.Overlaps(b), convey.ShouldBeFalse)
			convey.So(b.Overlaps(a), convey.ShouldBeFalse)
		})

		convey.Convey("Straddling intervals overlap both ways", func() {
			convey.So(a.Overlaps(c), convey.ShouldBeTrue)
			convey.So(c.Overlaps(b), convey.ShouldBeTrue)
		})

		convey.Convey("Empty intervals never overlap", func() {
			e := interval.New(at(9, 30), at(9, 30))
			convey.So(e.Empty(), convey.ShouldBeTrue)
			convey.So(e.Overlaps(a), convey.ShouldBeFalse)
		})

		convey.Convey("Containment is inclusive of both bounds", func() {
			convey.So(a.Contains(interval.New(at(9, 0), at(10, 0))), convey.ShouldBeTrue)
			convey.So(a.Contains(c), convey.ShouldBeFalse)
			convey.So(a.ContainsTime(at(9, 0)), convey.ShouldBeTrue)
			convey.So(a.ContainsTime(at(10, 0)), convey.ShouldBeFalse)
		})

		convey.Convey("Sort orders by start and keeps equal starts stable", func() {
			x := interval.New(at(9, 0), at(12, 0))
			xs := []interval.Interval{b, x, a}
			interval.Sort(xs)
			convey.So(xs, convey.ShouldResemble, []interval.Interval{x, a, b})
		})
	})
}

func TestSubtract(t *testing.T) {
	convey.Convey("Given an 08:00-22:00 window", t, func() {
		window := interval.New(at(8, 0), at(22, 0))

		convey.Convey("With nothing occupied the whole window is free", func() {
			gaps := interval.Subtract(window, nil, 15*time.Minute)
			convey.So(gaps, convey.ShouldResemble, []interval.Interval{window})
		})

		convey.Convey("A 09:00-17:00 block leaves the morning and evening", func() {
			gaps := interval.Subtract(window, []interval.Interval{interval.New(at(9, 0), at(17, 0))}, 15*time.Minute)
			convey.So(gaps, convey.ShouldResemble, []interval.Interval{
				interval.New(at(8, 0), at(9, 0)),
				interval.New(at(17, 0), at(22, 0)),
			})
		})

		convey.Convey("Gaps shorter than the floor are dropped and equal ones kept", func() {
			occupied := []interval.Interval{
				interval.New(at(8, 15), at(12, 0)),
				interval.New(at(12, 14), at(21, 0)),
			}
			gaps := interval.Subtract(window, occupied, 15*time.Minute)
			convey.So(gaps, convey.ShouldResemble, []interval.Interval{
				interval.New(at(8, 0), at(8, 15)),
				interval.New(at(21, 0), at(22, 0)),
			})
		})

		convey.Convey("Overlapping and unsorted occupied spans are merged", func() {
			occupied := []interval.Interval{
				interval.New(at(11, 0), at(13, 0)),
				interval.New(at(10, 0), at(12, 0)),
				interval.New(at(10, 30), at(11, 0)),
			}
			gaps := interval.Subtract(window, occupied, time.Minute)
			convey.So(gaps, convey.ShouldResemble, []interval.Interval{
				interval.New(at(8, 0), at(10, 0)),
				interval.New(at(13, 0), at(22, 0)),
			})
			convey.So(occupied[0], convey.ShouldResemble, interval.New(at(11, 0), at(13, 0)))
		})

		convey.Convey("Spans reaching past the window are clipped", func() {
			occupied := []interval.Interval{
				interval.New(at(6, 0), at(9, 0)),
				interval.New(at(21, 0), at(23, 30)),
			}
			gaps := interval.Subtract(window, occupied, time.Minute)
			convey.So(gaps, convey.ShouldResemble, []interval.Interval{
				interval.New(at(9, 0), at(21, 0)),
			})
		})

		convey.Convey("An empty window yields nothing", func() {
			convey.So(interval.Subtract(interval.New(at(9, 0), at(9, 0)), nil, 0), convey.ShouldBeEmpty)
		})
	})
}
