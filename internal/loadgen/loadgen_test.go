package loadgen_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/morywal/CalendarApp/internal/adapters/http/api"
	"github.com/morywal/CalendarApp/internal/adapters/repository"
	service "github.com/morywal/CalendarApp/internal/app"
	"github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/morywal/CalendarApp/internal/domain/types"
	"github.com/morywal/CalendarApp/internal/loadgen"
	"github.com/morywal/CalendarApp/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

var day = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2025, time.March, 10, hour, minute, 0, 0, time.UTC)
}

func TestGenerator(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		g := loadgen.NewGenerator(42)
		f := g.Fixture(day, 6, 5, 12)

		Convey("Then the fixture has the requested shape", func() {
			So(f.UserID, ShouldStartWith, "load-")
			So(f.Commitments, ShouldHaveLength, 5)
			So(f.Tasks, ShouldHaveLength, 12)
		})

		Convey("Then commitments are same-day spans anchored in the horizon", func() {
			last := day.AddDate(0, 0, 6)
			for _, c := range f.Commitments {
				So(c.End.After(c.Start), ShouldBeTrue)
				So(model.Date(c.Start).Equal(model.Date(c.End)), ShouldBeTrue)
				So(c.Start.Before(day), ShouldBeFalse)
				So(model.Date(c.Start).After(last), ShouldBeFalse)
				So(model.Recurrence(c.Recurrence).Valid(), ShouldBeTrue)
				So(c.Priority, ShouldBeBetweenOrEqual, model.MinPriority, model.MaxPriority)
			}
		})

		Convey("Then tasks carry positive quarter-hour estimates", func() {
			for _, task := range f.Tasks {
				So(task.EstimatedMinutes, ShouldBeGreaterThan, 0)
				So(task.EstimatedMinutes%15, ShouldEqual, 0)
				So(task.Title, ShouldNotBeBlank)
			}
		})

		Convey("Then an equally seeded generator repeats the calendar", func() {
			other := loadgen.NewGenerator(42).Fixture(day, 6, 5, 12)
			So(other.UserID, ShouldNotEqual, f.UserID)
			So(other.Tasks, ShouldResemble, f.Tasks)
			So(other.Commitments, ShouldResemble, f.Commitments)
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given a fixture with one daily commitment from 12:00 to 13:00", t, func() {
		f := loadgen.Fixture{
			UserID: "u1",
			Commitments: []types.Commitment{{
				ID: "c1", Title: "Lunch", Start: at(12, 0), End: at(13, 0), Recurrence: "daily",
			}},
			Tasks: []types.Task{
				{ID: "t1", Title: "a", EstimatedMinutes: 60},
				{ID: "t2", Title: "b", EstimatedMinutes: 30},
			},
		}
		prefs := model.DefaultPreferences()
		plan := types.ScheduleResponse{
			HorizonStart: day,
			HorizonEnd:   day.AddDate(0, 0, 1),
			Unscheduled:  []string{},
			Skipped:      []string{},
		}
		kinds := func(vs []loadgen.Violation) []string {
			out := make([]string, 0, len(vs))
			for _, v := range vs {
				out = append(out, v.Kind)
			}
			return out
		}

		Convey("When the plan is valid", func() {
			plan.Blocks = []types.Block{
				{ID: "b1", TaskID: "t1", Start: at(8, 0), End: at(9, 0)},
				{ID: "b2", TaskID: "t2", Start: at(13, 0), End: at(13, 30)},
			}

			Convey("Then nothing is reported", func() {
				So(loadgen.Verify(f, prefs, plan), ShouldBeEmpty)
			})
		})

		Convey("When blocks overlap each other", func() {
			plan.Blocks = []types.Block{
				{ID: "b1", TaskID: "t1", Start: at(8, 0), End: at(9, 0)},
				{ID: "b2", TaskID: "t2", Start: at(8, 30), End: at(9, 0)},
			}

			Convey("Then the overlap is reported", func() {
				So(kinds(loadgen.Verify(f, prefs, plan)), ShouldResemble, []string{loadgen.ViolationOverlap})
			})
		})

		Convey("When a block sits on the next day's commitment instance", func() {
			next := day.AddDate(0, 0, 1)
			plan.Blocks = []types.Block{
				{ID: "b1", TaskID: "t1", Start: next.Add(12 * time.Hour), End: next.Add(13 * time.Hour)},
				{ID: "b2", TaskID: "t2", Start: at(9, 0), End: at(9, 30)},
			}

			Convey("Then the conflict is reported", func() {
				vs := loadgen.Verify(f, prefs, plan)
				So(kinds(vs), ShouldResemble, []string{loadgen.ViolationCommitment})
				So(vs[0].Detail, ShouldContainSubstring, "c1")
			})
		})

		Convey("When a block leaves the active window", func() {
			plan.Blocks = []types.Block{
				{ID: "b1", TaskID: "t1", Start: at(21, 30), End: at(22, 30)},
				{ID: "b2", TaskID: "t2", Start: at(9, 0), End: at(9, 30)},
			}

			Convey("Then the window breach is reported", func() {
				So(kinds(loadgen.Verify(f, prefs, plan)), ShouldResemble, []string{loadgen.ViolationWindow})
			})
		})

		Convey("When block lengths and task accounting are off", func() {
			plan.Blocks = []types.Block{
				{ID: "b1", TaskID: "t1", Start: at(8, 0), End: at(8, 45)},
				{ID: "b2", TaskID: "zz", Start: at(9, 0), End: at(9, 30)},
			}
			plan.Unscheduled = []string{"t2"}

			Convey("Then each problem is reported", func() {
				So(kinds(loadgen.Verify(f, prefs, plan)), ShouldResemble, []string{
					loadgen.ViolationDuration,
					loadgen.ViolationUnknown,
					loadgen.ViolationAccounting,
					loadgen.ViolationAccounting,
				})
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a planner API over the memory store", t, func() {
		svc := service.New(repository.NewMemoryStore(),
			service.WithLogger(logger.Nop()),
			service.WithLocation(time.UTC),
			service.WithHorizonDays(2),
			service.WithRescheduleCron(""),
		)
		mux := http.NewServeMux()
		api.NewServer(svc).Register(mux)
		srv := httptest.NewServer(mux)
		Reset(srv.Close)

		report := filepath.Join(t.TempDir(), "out", "report.json")
		cfg := &loadgen.Config{
			BaseURL:            srv.URL,
			Users:              6,
			TasksPerUser:       8,
			CommitmentsPerUser: 3,
			Workers:            3,
			Timeout:            5 * time.Second,
			Seed:               7,
			OutputFile:         report,
		}

		Convey("When the load run completes", func() {
			stats, err := loadgen.Run(context.Background(), cfg)

			Convey("Then every plan passes verification", func() {
				So(err, ShouldBeNil)
				So(stats.Users, ShouldEqual, 6)
				So(stats.CommitmentsCreated, ShouldEqual, 18)
				So(stats.TasksCreated, ShouldEqual, 48)
				So(stats.BlocksScheduled+stats.Unscheduled+stats.Skipped, ShouldEqual, 48)
				So(stats.Violations, ShouldEqual, 0)
				So(stats.RequestsFailed, ShouldEqual, 0)
				_, statErr := os.Stat(report)
				So(statErr, ShouldBeNil)
			})
		})

		Convey("When the client is rate limited", func() {
			client := loadgen.NewClient(srv.URL, time.Second, 0.001)
			first := client.Health(context.Background())
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			second := client.Health(ctx)

			Convey("Then requests beyond the burst wait for a token", func() {
				So(first, ShouldBeNil)
				So(second, ShouldNotBeNil)
			})
		})

		Convey("When the service is unreachable", func() {
			cfg.BaseURL = "http://127.0.0.1:1"
			cfg.Timeout = time.Second
			_, err := loadgen.Run(context.Background(), cfg)

			Convey("Then the health check fails", func() {
				So(err, ShouldNotBeNil)
				So(strings.Contains(err.Error(), "health check"), ShouldBeTrue)
			})
		})
	})
}
