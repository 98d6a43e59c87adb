package types_test

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/morywal/CalendarApp/internal/domain/types"
)

func TestConversions(t *testing.T) {
	start := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	Convey("Given a task from the wire", t, func() {
		w := types.Task{Title: "Report", EstimatedMinutes: 45, Priority: 4, Category: "work"}
		m := w.ToModel("alice")

		Convey("It belongs to the user and keeps its fields", func() {
			So(m.UserID, ShouldEqual, "alice")
			So(m.EstimatedMinutes, ShouldEqual, 45)
			So(m.Status, ShouldEqual, model.TaskStatus(""))
			So(types.FromTask(m).Title, ShouldEqual, "Report")
		})
	})

	Convey("Given a commitment from the wire", t, func() {
		w := types.Commitment{Title: "Work", Start: start, End: start.Add(8 * time.Hour), Recurrence: "weekly"}
		m := w.ToModel("alice")
		So(m.Recurrence, ShouldEqual, model.RecurrenceWeekly)
		So(types.FromCommitment(m).End, ShouldEqual, start.Add(8*time.Hour))
	})

	Convey("Preferences use HH:MM clocks", t, func() {
		p, err := types.Preferences{ActiveStart: "07:30", ActiveEnd: "21:00", MinBlockMinutes: 20}.ToModel()
		So(err, ShouldBeNil)
		So(p.ActiveStart, ShouldResemble, model.Clock{Hour: 7, Minute: 30})
		So(types.FromPreferences(p).ActiveEnd, ShouldEqual, "21:00")

		_, err = types.Preferences{ActiveStart: "7am", ActiveEnd: "21:00"}.ToModel()
		So(err, ShouldNotBeNil)
	})

	Convey("Empty block lists encode as []", t, func() {
		b, err := json.Marshal(types.ScheduleResponse{Blocks: types.FromBlocks(nil)})
		So(err, ShouldBeNil)
		So(string(b), ShouldContainSubstring, `"blocks":[]`)

		free := types.FromFreeBlocks([]model.FreeBlock{model.NewFreeBlock(start, start.Add(90*time.Minute))})
		So(free[0].DurationMinutes, ShouldEqual, 90)
	})
}
