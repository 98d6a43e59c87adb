package service

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestUserLocks(t *testing.T) {
	Convey("Given a lock table", t, func() {
		l := newUserLocks()

		Convey("Holders of one user are serialized", func() {
			var mu sync.Mutex
			inside, peak := 0, 0
			var wg sync.WaitGroup
			for range 20 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock := l.lock("alice")
					mu.Lock()
					inside++
					peak = max(peak, inside)
					mu.Unlock()

					mu.Lock()
					inside--
					mu.Unlock()
					unlock()
				}()
			}
			wg.Wait()
			So(peak, ShouldEqual, 1)
			So(l.size(), ShouldEqual, 0)
		})

		Convey("Different users do not block each other", func() {
			a := l.lock("alice")
			b := l.lock("bob")
			So(l.size(), ShouldEqual, 2)
			a()
			b()
			So(l.size(), ShouldEqual, 0)
		})
	})
}
