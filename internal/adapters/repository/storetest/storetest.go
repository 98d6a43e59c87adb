// Package storetest holds the behavior every repository.Store must show.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/morywal/CalendarApp/internal/adapters/repository"
	"github.com/morywal/CalendarApp/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

// Task returns a valid pending task.
func Task(user, id string, minutes, priority int) model.Task {
	return model.Task{
		ID:               id,
		UserID:           user,
		Title:            "task " + id,
		EstimatedMinutes: minutes,
		Priority:         priority,
		Status:           model.TaskPending,
		Category:         "work",
	}
}

// Commitment returns a valid daily 09:00-17:00 commitment.
func Commitment(user, id string) model.FixedCommitment {
	end := base.AddDate(0, 1, 0)
	return model.FixedCommitment{
		ID:            id,
		UserID:        user,
		Title:         "Work",
		Start:         base.Add(9 * time.Hour),
		End:           base.Add(17 * time.Hour),
		Recurrence:    model.RecurrenceDaily,
		RecurrenceEnd: &end,
		Priority:      3,
		Category:      "work",
		Color:         model.DefaultColor,
	}
}

// Block returns a valid suggested block.
func Block(user, id, task string, startHour int) model.ScheduledBlock {
	return model.ScheduledBlock{
		ID:     id,
		UserID: user,
		TaskID: task,
		Start:  base.Add(time.Duration(startHour) * time.Hour),
		End:    base.Add(time.Duration(startHour)*time.Hour + 30*time.Minute),
		Status: model.BlockSuggested,
	}
}

// Run exercises a store produced by open. Each leaf gets a fresh store.
func Run(t *testing.T, open func() repository.Store) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		s := open()
		Reset(func() { _ = s.Close() })

		Convey("Missing preferences fall back to defaults", func() {
			p, err := s.GetPreferences(ctx, "nobody")
			So(err, ShouldBeNil)
			So(p, ShouldResemble, model.DefaultPreferences())
		})

		Convey("Stored preferences round trip", func() {
			p := model.Preferences{
				ActiveStart:          model.Clock{Hour: 7, Minute: 30},
				ActiveEnd:            model.Clock{Hour: 20},
				MinBlockMinutes:      20,
				PreferredTaskMinutes: 45,
			}
			So(s.PutPreferences(ctx, "u1", p), ShouldBeNil)
			got, err := s.GetPreferences(ctx, "u1")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, p)
		})

		Convey("Invalid preferences are rejected", func() {
			err := s.PutPreferences(ctx, "u1", model.Preferences{ActiveStart: model.Clock{Hour: 9}, ActiveEnd: model.Clock{Hour: 8}, MinBlockMinutes: 15})
			So(errors.Is(err, repository.ErrInvalid), ShouldBeTrue)
		})

		Convey("Invalid tasks and commitments are rejected", func() {
			bad := Task("u1", "t1", 30, 9)
			So(errors.Is(s.CreateTask(ctx, bad), repository.ErrInvalid), ShouldBeTrue)
			c := Commitment("u1", "c1")
			c.Recurrence = "yearly"
			So(errors.Is(s.CreateCommitment(ctx, c), repository.ErrInvalid), ShouldBeTrue)
		})

		Convey("With tasks of every status", func() {
			done := Task("u1", "t3", 30, 2)
			done.Status = model.TaskCompleted
			done.ActualMinutes = 35
			doneNoActual := Task("u1", "t4", 30, 2)
			doneNoActual.Status = model.TaskCompleted
			due := base.Add(48 * time.Hour)
			withDeadline := Task("u1", "t1", 60, 5)
			withDeadline.Deadline = &due

			So(s.CreateTask(ctx, withDeadline), ShouldBeNil)
			So(s.CreateTask(ctx, Task("u1", "t2", 0, 3)), ShouldBeNil)
			So(s.CreateTask(ctx, done), ShouldBeNil)
			So(s.CreateTask(ctx, doneNoActual), ShouldBeNil)
			So(s.CreateTask(ctx, Task("u2", "t9", 15, 1)), ShouldBeNil)

			Convey("Duplicate IDs are rejected", func() {
				So(s.CreateTask(ctx, Task("u1", "t1", 60, 5)), ShouldNotBeNil)
			})

			Convey("Pending tasks are listed in insertion order with fields intact", func() {
				pending, err := s.ListPending(ctx, "u1")
				So(err, ShouldBeNil)
				So(pending, ShouldHaveLength, 2)
				So(pending[0].ID, ShouldEqual, "t1")
				So(pending[0].Deadline, ShouldNotBeNil)
				So(pending[0].Deadline.Equal(due), ShouldBeTrue)
				So(pending[1].EstimatedMinutes, ShouldEqual, 0)
				So(pending[1].Deadline, ShouldBeNil)
			})

			Convey("Only completed tasks with an actual duration feed history", func() {
				hist, err := s.ListCompletedWithActualDuration(ctx, "u1")
				So(err, ShouldBeNil)
				So(hist, ShouldHaveLength, 1)
				So(hist[0].ActualMinutes, ShouldEqual, 35)
			})

			Convey("Marking scheduled flips pending tasks", func() {
				So(s.MarkScheduled(ctx, "u1", []string{"t1"}), ShouldBeNil)
				pending, _ := s.ListPending(ctx, "u1")
				So(pending, ShouldHaveLength, 1)
				So(pending[0].ID, ShouldEqual, "t2")
			})

			Convey("Marking an unknown task fails", func() {
				So(errors.Is(s.MarkScheduled(ctx, "u1", []string{"nope"}), repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Committing a schedule replaces blocks and flips tasks together", func() {
				So(s.InsertBlocks(ctx, []model.ScheduledBlock{Block("u1", "old", "t2", 8)}), ShouldBeNil)
				blocks := []model.ScheduledBlock{Block("u1", "b2", "t1", 18), Block("u1", "b1", "t2", 10)}
				So(s.CommitSchedule(ctx, "u1", blocks, []string{"t1", "t2"}), ShouldBeNil)

				got, err := s.ListBlocks(ctx, "u1")
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].ID, ShouldEqual, "b1")
				So(got[0].Start.Equal(blocks[1].Start), ShouldBeTrue)
				So(got[1].Status, ShouldEqual, model.BlockSuggested)

				pending, _ := s.ListPending(ctx, "u1")
				So(pending, ShouldBeEmpty)
			})

			Convey("A failed commit leaves everything as it was", func() {
				So(s.InsertBlocks(ctx, []model.ScheduledBlock{Block("u1", "old", "t2", 8)}), ShouldBeNil)
				err := s.CommitSchedule(ctx, "u1", []model.ScheduledBlock{Block("u1", "b1", "t1", 10)}, []string{"t1", "ghost"})
				So(err, ShouldNotBeNil)

				got, _ := s.ListBlocks(ctx, "u1")
				So(got, ShouldHaveLength, 1)
				So(got[0].ID, ShouldEqual, "old")
				pending, _ := s.ListPending(ctx, "u1")
				So(pending, ShouldHaveLength, 2)
			})

			Convey("Deleting blocks clears only that user", func() {
				So(s.InsertBlocks(ctx, []model.ScheduledBlock{Block("u1", "x", "t1", 8), Block("u2", "y", "t9", 8)}), ShouldBeNil)
				So(s.DeleteBlocks(ctx, "u1"), ShouldBeNil)
				a, _ := s.ListBlocks(ctx, "u1")
				b, _ := s.ListBlocks(ctx, "u2")
				So(a, ShouldBeEmpty)
				So(b, ShouldHaveLength, 1)
			})

			Convey("Users are listed once each", func() {
				So(s.CreateCommitment(ctx, Commitment("u3", "c1")), ShouldBeNil)
				users, err := s.ListUsers(ctx)
				So(err, ShouldBeNil)
				So(users, ShouldResemble, []string{"u1", "u2", "u3"})
			})
		})

		Convey("Commitments round trip with their recurrence", func() {
			c := Commitment("u1", "c1")
			So(s.CreateCommitment(ctx, c), ShouldBeNil)
			got, err := s.ListCommitments(ctx, "u1")
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].Recurrence, ShouldEqual, model.RecurrenceDaily)
			So(got[0].Start.Equal(c.Start), ShouldBeTrue)
			So(got[0].End.Equal(c.End), ShouldBeTrue)
			So(got[0].RecurrenceEnd, ShouldNotBeNil)
			So(got[0].RecurrenceEnd.Equal(*c.RecurrenceEnd), ShouldBeTrue)
			So(got[0].Color, ShouldEqual, model.DefaultColor)
		})
	})
}
