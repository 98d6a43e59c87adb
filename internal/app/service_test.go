package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/morywal/CalendarApp/internal/adapters/repository"
	"github.com/morywal/CalendarApp/internal/adapters/repository/storetest"
	service "github.com/morywal/CalendarApp/internal/app"
	"github.com/morywal/CalendarApp/internal/domain/estimate"
	"github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/morywal/CalendarApp/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

var monday = time.Date(2025, time.March, 10, 7, 0, 0, 0, time.UTC)

func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func newService(store repository.Store, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithClock(func() time.Time { return monday }),
		service.WithLocation(time.UTC),
		service.WithHorizonDays(0),
		service.WithIDGenerator(sequence("id-")),
		service.WithWorkerCount(1),
		service.WithRescheduleCron(""),
	}
	return service.New(store, append(base, opts...)...)
}

func at(hour, minute int) time.Time {
	return time.Date(2025, time.March, 10, hour, minute, 0, 0, time.UTC)
}

// failingStore fails the commit step.
type failingStore struct {
	repository.Store
}

func (failingStore) CommitSchedule(context.Context, string, []model.ScheduledBlock, []string) error {
	return errors.New("disk full")
}

func seed(ctx context.Context, store repository.Store) {
	So(store.CreateCommitment(ctx, storetest.Commitment("alice", "work")), ShouldBeNil)
	So(store.CreateTask(ctx, storetest.Task("alice", "long", 120, 5)), ShouldBeNil)
	So(store.CreateTask(ctx, storetest.Task("alice", "short", 30, 3)), ShouldBeNil)
	So(store.CreateTask(ctx, storetest.Task("alice", "huge", 400, 4)), ShouldBeNil)
	So(store.CreateTask(ctx, storetest.Task("alice", "vague", 0, 2)), ShouldBeNil)
}

func TestService_Schedule(t *testing.T) {
	ctx := context.Background()

	Convey("Given a workday commitment and four pending tasks", t, func() {
		store := repository.NewMemoryStore()
		seed(ctx, store)
		svc := newService(store)

		Convey("When a run is scheduled", func() {
			res, err := svc.Schedule(ctx, "alice")
			So(err, ShouldBeNil)

			Convey("Then tasks are placed by priority into the best blocks", func() {
				So(res.Blocks, ShouldHaveLength, 2)
				So(res.Blocks[0].TaskID, ShouldEqual, "long")
				So(res.Blocks[0].Start, ShouldEqual, at(17, 0))
				So(res.Blocks[0].End, ShouldEqual, at(19, 0))
				So(res.Blocks[1].TaskID, ShouldEqual, "short")
				So(res.Blocks[1].Start, ShouldEqual, at(8, 0))
				So(res.Blocks[1].Status, ShouldEqual, model.BlockSuggested)
				So(res.FreeBlocks, ShouldEqual, 2)
				So(res.Horizon.From, ShouldEqual, at(0, 0))
			})

			Convey("And infeasible and unestimated tasks are reported", func() {
				So(res.Unscheduled, ShouldResemble, []string{"huge"})
				So(res.Skipped, ShouldResemble, []string{"vague"})
			})

			Convey("And the plan is committed", func() {
				blocks, err := svc.Blocks(ctx, "alice")
				So(err, ShouldBeNil)
				So(blocks, ShouldHaveLength, 2)
				So(blocks[0].TaskID, ShouldEqual, "short")

				sum, err := svc.Summary(ctx, "alice")
				So(err, ShouldBeNil)
				So(sum.Commitments, ShouldEqual, 1)
				So(sum.Tasks, ShouldEqual, 4)
				So(sum.Blocks, ShouldEqual, 2)
				So(sum.ByStatus[model.TaskScheduled], ShouldEqual, 2)
				So(sum.ByStatus[model.TaskPending], ShouldEqual, 2)
				So(sum.ByStatus[model.TaskCompleted], ShouldEqual, 0)
			})

			Convey("And a second run replaces the earlier blocks", func() {
				So(store.CreateTask(ctx, storetest.Task("alice", "later", 45, 1)), ShouldBeNil)
				res, err := svc.Schedule(ctx, "alice")
				So(err, ShouldBeNil)
				So(res.Blocks, ShouldHaveLength, 1)
				So(res.Blocks[0].TaskID, ShouldEqual, "later")

				blocks, err := svc.Blocks(ctx, "alice")
				So(err, ShouldBeNil)
				So(blocks, ShouldHaveLength, 1)
			})
		})

		Convey("When the commit fails", func() {
			broken := newService(failingStore{Store: store})
			_, err := broken.Schedule(ctx, "alice")

			Convey("Then ErrStorage is returned and nothing changes", func() {
				So(errors.Is(err, service.ErrStorage), ShouldBeTrue)
				blocks, err := store.ListBlocks(ctx, "alice")
				So(err, ShouldBeNil)
				So(blocks, ShouldBeEmpty)
				pending, err := store.ListPending(ctx, "alice")
				So(err, ShouldBeNil)
				So(pending, ShouldHaveLength, 4)
			})
		})

		Convey("When the store is closed", func() {
			So(store.Close(), ShouldBeNil)
			_, err := svc.Schedule(ctx, "alice")
			So(errors.Is(err, service.ErrStorage), ShouldBeTrue)
		})

		Convey("When the user has invalid preferences in a custom store", func() {
			bad := repository.NewMemoryStore(repository.WithDefaultPreferences(model.Preferences{
				ActiveStart: model.MustClock("20:00"),
				ActiveEnd:   model.MustClock("08:00"),
			}))
			_, err := newService(bad).Schedule(ctx, "bob")
			So(err, ShouldNotBeNil)
			So(errors.Is(err, service.ErrStorage), ShouldBeFalse)
		})
	})

	Convey("Given concurrent runs for one user", t, func() {
		store := repository.NewMemoryStore()
		seed(ctx, store)
		svc := newService(store)

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Schedule(ctx, "alice")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		Convey("Then every run succeeds and blocks never overlap", func() {
			for err := range errs {
				So(err, ShouldBeNil)
			}
			blocks, err := svc.Blocks(ctx, "alice")
			So(err, ShouldBeNil)
			for i := 1; i < len(blocks); i++ {
				So(blocks[i].Start.Before(blocks[i-1].End), ShouldBeFalse)
			}
		})
	})
}

func TestService_Preview(t *testing.T) {
	Convey("Given a daily 09:00-17:00 commitment", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		So(store.CreateCommitment(ctx, storetest.Commitment("alice", "work")), ShouldBeNil)
		svc := newService(store)

		free, h, err := svc.Preview(ctx, "alice")
		So(err, ShouldBeNil)
		So(h.From, ShouldEqual, at(0, 0))
		So(free, ShouldHaveLength, 2)
		So(free[0].Start, ShouldEqual, at(8, 0))
		So(free[0].End, ShouldEqual, at(9, 0))
		So(free[1].Start, ShouldEqual, at(17, 0))
		So(free[1].End, ShouldEqual, at(22, 0))

		blocks, err := store.ListBlocks(ctx, "alice")
		So(err, ShouldBeNil)
		So(blocks, ShouldBeEmpty)
	})
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		store := repository.NewMemoryStore()
		svc := newService(store)

		Convey("Tasks without an estimate are estimated", func() {
			task, err := svc.CreateTask(ctx, model.Task{UserID: "alice", Title: "Call mom 20 min"})
			So(err, ShouldBeNil)
			So(task.ID, ShouldEqual, "id-1")
			So(task.EstimatedMinutes, ShouldEqual, 20)
			So(task.Status, ShouldEqual, model.TaskPending)
			So(task.Priority, ShouldEqual, model.DefaultPriority)

			quick, err := svc.CreateTask(ctx, model.Task{UserID: "alice", Title: "Quick email", Category: "email"})
			So(err, ShouldBeNil)
			So(quick.EstimatedMinutes, ShouldEqual, 15)
		})

		Convey("Explicit estimates are kept", func() {
			task, err := svc.CreateTask(ctx, model.Task{UserID: "alice", Title: "Report", EstimatedMinutes: 90})
			So(err, ShouldBeNil)
			So(task.EstimatedMinutes, ShouldEqual, 90)
		})

		Convey("Invalid tasks are rejected without ErrStorage", func() {
			_, err := svc.CreateTask(ctx, model.Task{UserID: "alice", Title: "x", Priority: 9, EstimatedMinutes: 10})
			So(errors.Is(err, repository.ErrInvalid), ShouldBeTrue)
			So(errors.Is(err, service.ErrStorage), ShouldBeFalse)
		})

		Convey("Commitments get defaults", func() {
			c, err := svc.CreateCommitment(ctx, model.FixedCommitment{
				UserID: "alice", Title: "Gym", Start: at(18, 0), End: at(19, 0),
			})
			So(err, ShouldBeNil)
			So(c.Recurrence, ShouldEqual, model.RecurrenceNone)
			So(c.Color, ShouldEqual, model.DefaultColor)
			So(c.Priority, ShouldEqual, model.DefaultPriority)
		})

		Convey("Preferences round trip and feed the estimator", func() {
			p := model.DefaultPreferences()
			p.PreferredTaskMinutes = 100
			So(svc.PutPreferences(ctx, "alice", p), ShouldBeNil)
			got, err := svc.Preferences(ctx, "alice")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, p)

			res, err := svc.Estimate(ctx, estimate.Request{UserID: "alice", Title: "Something to do today"})
			So(err, ShouldBeNil)
			So(res.Source, ShouldEqual, estimate.SourceRules)
			So(res.Minutes, ShouldEqual, 80)
		})

		Convey("Invalid preferences are rejected", func() {
			p := model.DefaultPreferences()
			p.MinBlockMinutes = 0
			err := svc.PutPreferences(ctx, "alice", p)
			So(errors.Is(err, repository.ErrInvalid), ShouldBeTrue)
		})
	})
}

func TestService_Calendar(t *testing.T) {
	Convey("Given a scheduled user", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		seed(ctx, store)
		svc := newService(store)
		_, err := svc.Schedule(ctx, "alice")
		So(err, ShouldBeNil)

		var buf bytes.Buffer
		So(svc.Calendar(ctx, "alice", &buf), ShouldBeNil)
		out := buf.String()
		So(strings.Count(out, "BEGIN:VEVENT"), ShouldEqual, 3)
		So(out, ShouldContainSubstring, "SUMMARY:task long")
		So(out, ShouldContainSubstring, "RRULE:FREQ=DAILY")
	})
}

func TestService_Async(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that is not started", t, func() {
		svc := newService(repository.NewMemoryStore())
		So(errors.Is(svc.Enqueue(ctx, "alice", "api"), service.ErrNotStarted), ShouldBeTrue)
		So(svc.GetStats()["started"], ShouldEqual, false)
		So(svc.Stop(ctx), ShouldBeNil)
	})

	Convey("Given a started service", t, func() {
		store := repository.NewMemoryStore()
		seed(ctx, store)
		svc := newService(store, service.WithRescheduleCron("0 5 * * *"))
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { So(svc.Stop(ctx), ShouldBeNil) }()

		stats := svc.GetStats()
		So(stats["started"], ShouldEqual, true)
		So(stats["users"], ShouldEqual, 1)

		Convey("Enqueued runs are executed by the workers", func() {
			So(svc.Enqueue(ctx, "alice", "api"), ShouldBeNil)
			deadline := time.Now().Add(2 * time.Second)
			var blocks []model.ScheduledBlock
			for time.Now().Before(deadline) {
				blocks, _ = svc.Blocks(ctx, "alice")
				if len(blocks) > 0 {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			So(blocks, ShouldHaveLength, 2)
		})

		Convey("The sweep queues every known user", func() {
			So(store.CreateCommitment(ctx, storetest.Commitment("bob", "work")), ShouldBeNil)
			So(svc.Sweep(ctx), ShouldEqual, 2)
		})
	})

	Convey("An invalid cron expression fails Start", t, func() {
		svc := newService(repository.NewMemoryStore(), service.WithRescheduleCron("not a cron"))
		So(svc.Start(ctx), ShouldNotBeNil)
		So(svc.GetStats()["started"], ShouldEqual, false)
	})
}
