package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/morywal/CalendarApp/internal/adapters/repository"
	"github.com/morywal/CalendarApp/internal/adapters/repository/sqlite"
	"github.com/morywal/CalendarApp/internal/adapters/repository/storetest"
	"github.com/morywal/CalendarApp/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStoreContract(t *testing.T) {
	dir := t.TempDir()
	n := 0
	storetest.Run(t, func() repository.Store {
		n++
		s, err := sqlite.Open(context.Background(), filepath.Join(dir, fmt.Sprintf("calendar-%d.db", n)))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return s
	})
}

func TestMigrateAndReopen(t *testing.T) {
	Convey("Given a database file", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "calendar.db")
		s, err := sqlite.Open(ctx, path)
		So(err, ShouldBeNil)

		Convey("Migrating again is a no-op", func() {
			So(s.Migrate(ctx), ShouldBeNil)
			So(s.Close(), ShouldBeNil)
		})

		Convey("Data survives a reopen", func() {
			So(s.CreateTask(ctx, storetest.Task("u1", "t1", 30, 3)), ShouldBeNil)
			So(s.Close(), ShouldBeNil)

			again, err := sqlite.Open(ctx, path)
			So(err, ShouldBeNil)
			defer func() { _ = again.Close() }()
			pending, err := again.ListPending(ctx, "u1")
			So(err, ShouldBeNil)
			So(pending, ShouldHaveLength, 1)
		})

		Convey("Custom default preferences apply to unknown users", func() {
			p := model.DefaultPreferences()
			p.PreferredTaskMinutes = 90
			_ = s.Close()
			custom, err := sqlite.Open(ctx, path, sqlite.WithDefaultPreferences(p))
			So(err, ShouldBeNil)
			defer func() { _ = custom.Close() }()
			got, err := custom.GetPreferences(ctx, "ghost")
			So(err, ShouldBeNil)
			So(got.PreferredTaskMinutes, ShouldEqual, 90)
		})
	})

	Convey("An empty path is rejected", t, func() {
		_, err := sqlite.Open(context.Background(), " ")
		So(err, ShouldNotBeNil)
	})
}
