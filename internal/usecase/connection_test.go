package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/semmidev/custos/internal/domain"
	. "github.com/smartystreets/goconvey/convey"
)

func shopProfile() domain.ConnectionProfile {
	return domain.ConnectionProfile{
		Engine:   domain.EnginePostgres,
		Host:     "localhost",
		Port:     5432,
		Database: "shop",
		Username: "postgres",
		Password: "secret",
	}
}

func TestConnectionManager(t *testing.T) {
	Convey("Given a ConnectionManager", t, func() {
		ctx := context.Background()
		session := &fakeSession{}
		opener := &fakeOpener{session: session}
		conns := NewConnectionManager(opener, nopLogger{}, nil)

		Convey("When nothing is connected", func() {
			_, ok := conns.Status()
			So(ok, ShouldBeFalse)

			lease, err := conns.Acquire()
			So(lease, ShouldBeNil)
			So(errors.Is(err, domain.ErrNotConnected), ShouldBeTrue)

			out := conns.Disconnect()
			So(out, ShouldResemble, domain.Outcome{Success: false, Message: "Not connected."})
		})

		Convey("When connecting succeeds", func() {
			out := conns.Connect(ctx, shopProfile())

			Convey("It should hold the session and report the profile", func() {
				So(out, ShouldResemble, domain.Outcome{Success: true, Message: "Connection successful."})

				profile, ok := conns.Status()
				So(ok, ShouldBeTrue)
				So(profile.Database, ShouldEqual, "shop")
				So(conns.Connected(), ShouldBeTrue)
			})

			Convey("Disconnect should close the session", func() {
				out := conns.Disconnect()
				So(out.Success, ShouldBeTrue)
				So(session.closed.Load(), ShouldBeTrue)
				So(conns.Connected(), ShouldBeFalse)
			})

			Convey("A failed reconnect should leave nothing connected", func() {
				opener.err = errors.New("password authentication failed")
				out := conns.Connect(ctx, shopProfile())

				So(out.Success, ShouldBeFalse)
				So(out.Message, ShouldEqual, "Connection failed: password authentication failed")
				So(session.closed.Load(), ShouldBeTrue)
				So(conns.Connected(), ShouldBeFalse)
			})
		})

		Convey("When a lease is held", func() {
			So(conns.Connect(ctx, shopProfile()).Success, ShouldBeTrue)

			lease, err := conns.Acquire()
			So(err, ShouldBeNil)
			So(lease.Profile.Database, ShouldEqual, "shop")

			done := make(chan domain.Outcome, 1)
			go func() { done <- conns.Disconnect() }()

			Convey("Disconnect should wait until the lease is released", func() {
				select {
				case <-done:
					t.Fatal("disconnect did not wait for the lease")
				case <-time.After(100 * time.Millisecond):
				}

				_, ok := conns.Status()
				So(ok, ShouldBeTrue)

				lease.Release()
				lease.Release()

				select {
				case out := <-done:
					So(out.Success, ShouldBeTrue)
				case <-time.After(time.Second):
					t.Fatal("disconnect never completed")
				}
				So(session.closed.Load(), ShouldBeTrue)
			})
		})
	})
}
