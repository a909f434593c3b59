package geo_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/guardiansafety/aegis/internal/adapters/geo"
	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/internal/domain/track"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSimProvider(t *testing.T) {
	Convey("Given a simulated provider", t, func() {
		ctx := context.Background()

		Convey("When permission is granted", func() {
			p := geo.NewSimProvider()

			Convey("Then a watch can be established", func() {
				stop, err := p.Watch(ctx, func(model.LocationSample, error) {})
				So(err, ShouldBeNil)
				So(stop, ShouldNotBeNil)
				stop()
			})

			Convey("And only one watch may hold the device", func() {
				stop, err := p.Watch(ctx, func(model.LocationSample, error) {})
				So(err, ShouldBeNil)

				_, err = p.Watch(ctx, func(model.LocationSample, error) {})
				So(errors.Is(err, track.ErrWatchBusy), ShouldBeTrue)

				stop()

				stop2, err := p.Watch(ctx, func(model.LocationSample, error) {})
				So(err, ShouldBeNil)
				stop2()
			})
		})

		Convey("When permission is denied", func() {
			p := geo.NewSimProvider(geo.WithPermission(track.PermissionDenied))

			Convey("Then watching fails with a permission error", func() {
				_, err := p.Watch(ctx, func(model.LocationSample, error) {})
				So(errors.Is(err, track.ErrPermissionDenied), ShouldBeTrue)
				So(p.Permission(ctx), ShouldEqual, track.PermissionDenied)
			})
		})

		Convey("When emitting fixes", func() {
			p := geo.NewSimProvider()

			var mu sync.Mutex
			var fixes []model.LocationSample
			stop, err := p.Watch(ctx, func(fix model.LocationSample, err error) {
				if err == nil {
					mu.Lock()
					fixes = append(fixes, fix)
					mu.Unlock()
				}
			})
			So(err, ShouldBeNil)
			defer stop()

			fix := model.LocationSample{Latitude: 1, Longitude: 2, Accuracy: 10, Timestamp: time.Now()}
			p.Emit(fix)

			Convey("Then the watcher receives them", func() {
				mu.Lock()
				defer mu.Unlock()
				So(fixes, ShouldHaveLength, 1)
				So(fixes[0].Latitude, ShouldEqual, 1)
			})
		})

		Convey("When emitting device errors", func() {
			p := geo.NewSimProvider()

			var mu sync.Mutex
			var got error
			stop, err := p.Watch(ctx, func(_ model.LocationSample, err error) {
				mu.Lock()
				got = err
				mu.Unlock()
			})
			So(err, ShouldBeNil)
			defer stop()

			p.EmitError(track.ErrDeviceUnavailable)

			Convey("Then the watcher receives the error", func() {
				mu.Lock()
				defer mu.Unlock()
				So(errors.Is(got, track.ErrDeviceUnavailable), ShouldBeTrue)
			})
		})

		Convey("When advancing the walk", func() {
			now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
			p := geo.NewSimProvider(
				geo.WithStart(10, 20),
				geo.WithStep(0.5, 0.25),
				geo.WithAccuracy(8),
				geo.WithClock(func() time.Time { return now }),
			)

			first := p.Advance()
			second := p.Advance()

			Convey("Then each step moves by the configured delta", func() {
				So(first.Latitude, ShouldAlmostEqual, 10.5)
				So(first.Longitude, ShouldAlmostEqual, 20.25)
				So(second.Latitude, ShouldAlmostEqual, 11.0)
				So(second.Longitude, ShouldAlmostEqual, 20.5)
				So(first.Accuracy, ShouldEqual, 8)
				So(first.Timestamp.Equal(now), ShouldBeTrue)
			})
		})

		Convey("When stopping a watch after fixes were delivered", func() {
			p := geo.NewSimProvider()

			var mu sync.Mutex
			count := 0
			stop, err := p.Watch(ctx, func(fix model.LocationSample, err error) {
				mu.Lock()
				count++
				mu.Unlock()
			})
			So(err, ShouldBeNil)

			p.Advance()
			stop()
			p.Advance()

			Convey("Then no fixes arrive after stop", func() {
				mu.Lock()
				defer mu.Unlock()
				So(count, ShouldEqual, 1)
			})
		})
	})
}
