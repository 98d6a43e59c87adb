package model_test

import (
	"slices"
	"testing"
	"time"

	model "github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestClock(t *testing.T) {
	convey.Convey("Given wall-clock values", t, func() {
		convey.Convey("ParseClock accepts HH:MM", func() {
			c, err := model.ParseClock("08:30")
			convey.So(err, convey.ShouldBeNil)
			convey.So(c, convey.ShouldResemble, model.Clock{Hour: 8, Minute: 30})
			convey.So(c.String(), convey.ShouldEqual, "08:30")
			convey.So(c.Minutes(), convey.ShouldEqual, 510)
		})

		convey.Convey("ParseClock rejects garbage", func() {
			_, err := model.ParseClock("25:00")
			convey.So(err, convey.ShouldNotBeNil)
			_, err = model.ParseClock("noon")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("On keeps the day's date and location", func() {
			loc := time.FixedZone("X", 3*3600)
			day := time.Date(2025, time.June, 2, 23, 59, 0, 0, loc)
			got := model.Clock{Hour: 9}.On(day)
			convey.So(got, convey.ShouldEqual, time.Date(2025, time.June, 2, 9, 0, 0, 0, loc))
		})

		convey.Convey("Text round trip works", func() {
			var c model.Clock
			convey.So(c.UnmarshalText([]byte("22:00")), convey.ShouldBeNil)
			b, _ := c.MarshalText()
			convey.So(string(b), convey.ShouldEqual, "22:00")
		})
	})
}

func TestPreferences(t *testing.T) {
	convey.Convey("Default preferences", t, func() {
		p := model.DefaultPreferences()
		convey.So(p.ActiveStart.String(), convey.ShouldEqual, "08:00")
		convey.So(p.ActiveEnd.String(), convey.ShouldEqual, "22:00")
		convey.So(p.MinBlock(), convey.ShouldEqual, 15*time.Minute)
		convey.So(p.Validate(), convey.ShouldBeNil)

		convey.Convey("An inverted window is invalid", func() {
			p.ActiveStart, p.ActiveEnd = p.ActiveEnd, p.ActiveStart
			convey.So(p.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("A non-positive floor is invalid", func() {
			p.MinBlockMinutes = 0
			convey.So(p.Validate(), convey.ShouldNotBeNil)
		})
	})
}

func TestHorizon(t *testing.T) {
	convey.Convey("Given a horizon from a mid-day instant", t, func() {
		now := time.Date(2025, time.February, 27, 14, 5, 0, 0, time.UTC)
		h := model.NewHorizon(now, 3)

		convey.Convey("Bounds are midnights and inclusive", func() {
			convey.So(h.From, convey.ShouldEqual, time.Date(2025, time.February, 27, 0, 0, 0, 0, time.UTC))
			convey.So(h.To, convey.ShouldEqual, time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC))
			convey.So(h.Includes(time.Date(2025, time.March, 2, 23, 0, 0, 0, time.UTC)), convey.ShouldBeTrue)
			convey.So(h.Includes(time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)), convey.ShouldBeFalse)
		})

		convey.Convey("Days walks every date across a month boundary", func() {
			days := slices.Collect(h.Days())
			convey.So(days, convey.ShouldHaveLength, 4)
			convey.So(days[2].Day(), convey.ShouldEqual, 1)
			convey.So(days[2].Month(), convey.ShouldEqual, time.March)
		})
	})
}

func TestTaskAndBlocks(t *testing.T) {
	convey.Convey("Task estimates", t, func() {
		convey.So(model.Task{}.HasEstimate(), convey.ShouldBeFalse)
		task := model.Task{EstimatedMinutes: 45}
		convey.So(task.HasEstimate(), convey.ShouldBeTrue)
		convey.So(task.Estimate(), convey.ShouldEqual, 45*time.Minute)
	})

	convey.Convey("Recurrence validity", t, func() {
		convey.So(model.Recurrence("").Valid(), convey.ShouldBeTrue)
		convey.So(model.RecurrenceMonthly.Valid(), convey.ShouldBeTrue)
		convey.So(model.Recurrence("yearly").Valid(), convey.ShouldBeFalse)
	})

	convey.Convey("Free blocks report minutes", t, func() {
		start := time.Date(2025, time.March, 10, 17, 0, 0, 0, time.UTC)
		fb := model.NewFreeBlock(start, start.Add(5*time.Hour))
		convey.So(fb.DurationMinutes(), convey.ShouldEqual, 300.0)
	})
}
