package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/morywal/CalendarApp/internal/adapters/repository"
	service "github.com/morywal/CalendarApp/internal/app"
	"github.com/morywal/CalendarApp/internal/config"
	"github.com/morywal/CalendarApp/internal/domain/types"
	"github.com/morywal/CalendarApp/pkg/logger"
)

func clearEnv() {
	for _, k := range []string{
		config.EnvConfigFile,
		config.EnvPrefix + "TIMEZONE",
		config.EnvPrefix + "HORIZON_DAYS",
		config.EnvPrefix + "RESCHEDULE_CRON",
		config.EnvPrefix + "STORE",
	} {
		_ = os.Unsetenv(k)
	}
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the calendarapp command", t, func() {
		convey.Reset(clearEnv)
		var out, errOut bytes.Buffer

		convey.Convey("When an unknown subcommand is given", func() {
			code := run(context.Background(), []string{"nope"}, &out, &errOut)

			convey.Convey("Then it should fail with a message", func() {
				convey.So(code, convey.ShouldEqual, 1)
				convey.So(errOut.String(), convey.ShouldContainSubstring, "unknown command")
			})
		})

		convey.Convey("When schedule is run without a user", func() {
			code := run(context.Background(), []string{"schedule"}, &out, &errOut)

			convey.Convey("Then it should fail", func() {
				convey.So(code, convey.ShouldEqual, 1)
				convey.So(errOut.String(), convey.ShouldContainSubstring, "--user is required")
			})
		})

		convey.Convey("When the config is invalid", func() {
			_ = os.Setenv(config.EnvPrefix+"HORIZON_DAYS", "-1")
			code := run(context.Background(), []string{"schedule", "--user", "alice"}, &out, &errOut)

			convey.Convey("Then it should fail to load", func() {
				convey.So(code, convey.ShouldEqual, 1)
				convey.So(errOut.String(), convey.ShouldContainSubstring, "failed to load config")
			})
		})
	})
}

func TestScheduleCommand(t *testing.T) {
	convey.Convey("Given an empty sqlite database", t, func() {
		convey.Reset(clearEnv)
		_ = os.Setenv(config.EnvPrefix+"TIMEZONE", "UTC")
		_ = os.Setenv(config.EnvPrefix+"HORIZON_DAYS", "0")
		db := filepath.Join(t.TempDir(), "plan.db")
		var out, errOut bytes.Buffer

		convey.Convey("When a dry run is requested", func() {
			code := run(context.Background(), []string{"schedule", "--user", "alice", "--db", db, "--dry-run"}, &out, &errOut)
			convey.So(code, convey.ShouldEqual, 0)

			convey.Convey("Then the whole active window is free", func() {
				var resp types.FreeBlocksResponse
				convey.So(json.Unmarshal(out.Bytes(), &resp), convey.ShouldBeNil)
				convey.So(resp.FreeBlocks, convey.ShouldHaveLength, 1)
				convey.So(resp.FreeBlocks[0].DurationMinutes, convey.ShouldEqual, 840)
				convey.So(resp.FreeBlocks[0].Start.Hour(), convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When a run is committed", func() {
			code := run(context.Background(), []string{"schedule", "--user", "alice", "--db", db}, &out, &errOut)
			convey.So(code, convey.ShouldEqual, 0)

			convey.Convey("Then an empty plan is printed", func() {
				var resp types.ScheduleResponse
				convey.So(json.Unmarshal(out.Bytes(), &resp), convey.ShouldBeNil)
				convey.So(resp.Blocks, convey.ShouldBeEmpty)
				convey.So(resp.Unscheduled, convey.ShouldNotBeNil)
				convey.So(resp.UnscheduledCount, convey.ShouldEqual, 0)
				convey.So(resp.FreeBlocks, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the config file names the database", func() {
			cfgPath := filepath.Join(t.TempDir(), "calendar.yaml")
			yaml := "store: sqlite\ndb_path: " + db + "\nhorizon_days: 1\n"
			convey.So(os.WriteFile(cfgPath, []byte(yaml), 0o600), convey.ShouldBeNil)

			code := run(context.Background(), []string{"--config", cfgPath, "schedule", "--user", "bob", "--dry-run"}, &out, &errOut)

			convey.Convey("Then the file settings apply", func() {
				convey.So(code, convey.ShouldEqual, 0)
				var resp types.FreeBlocksResponse
				convey.So(json.Unmarshal(out.Bytes(), &resp), convey.ShouldBeNil)
				// Env still wins over the file.
				convey.So(resp.FreeBlocks, convey.ShouldHaveLength, 1)
				_, err := os.Stat(db)
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestServeCommand(t *testing.T) {
	convey.Convey("Given the serve command on an ephemeral port", t, func() {
		convey.Reset(clearEnv)
		_ = os.Setenv(config.EnvPrefix+"RESCHEDULE_CRON", "")
		var out, errOut bytes.Buffer
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		convey.Convey("When the context ends", func() {
			code := run(ctx, []string{"serve", "--addr", "127.0.0.1:0"}, &out, &errOut)

			convey.Convey("Then it shuts down cleanly", func() {
				convey.So(code, convey.ShouldEqual, 0)
				convey.So(out.String(), convey.ShouldContainSubstring, "server stopped")
			})
		})
	})
}

func TestMux(t *testing.T) {
	convey.Convey("Given the assembled mux", t, func() {
		svc := service.New(repository.NewMemoryStore(), service.WithLogger(logger.Nop()))
		mux := newMux(svc, logger.Nop())

		convey.Convey("When the API docs are requested", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

			convey.Convey("Then they are served", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When a schedule is requested", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/alice/schedule", nil))

			convey.Convey("Then the API answers", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"blocks":[]`)
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		svc := service.New(repository.NewMemoryStore(), service.WithLogger(logger.Nop()))

		convey.Convey("Then single updates should not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loops return once the context ends", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
				close(done)
			}()
			returned := false
			select {
			case <-done:
				returned = true
			case <-time.After(time.Second):
			}
			convey.So(returned, convey.ShouldBeTrue)
		})
	})
}
