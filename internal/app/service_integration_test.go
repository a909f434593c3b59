package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/guardiansafety/aegis/internal/adapters/device"
	"github.com/guardiansafety/aegis/internal/adapters/geo"
	"github.com/guardiansafety/aegis/internal/adapters/history"
	service "github.com/guardiansafety/aegis/internal/app"
	"github.com/guardiansafety/aegis/internal/domain/connectivity"
	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/internal/domain/track"
	"github.com/guardiansafety/aegis/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func TestServiceIntegration_Drill(t *testing.T) {
	Convey("Given a fully wired service with an audit trail", t, func() {
		dbPath := filepath.Join(t.TempDir(), "audit.db")
		sim := geo.NewSimProvider(
			geo.WithPermission(track.PermissionGranted),
			geo.WithStart(37.7749, -122.4194),
		)
		probe := device.NewStaticProbe(connectivity.TransportWifi)

		svc := service.New(
			service.WithProvider(sim),
			service.WithProbe(probe),
			service.WithHistoryPath(dbPath),
			service.WithCountdownDelay(50*time.Millisecond),
			service.WithTrackingIntervals(time.Second, 50*time.Millisecond),
			service.WithNotificationTuning(time.Millisecond, time.Millisecond, 50),
		)
		defer svc.Stop()

		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When a countdown drill runs end to end", func() {
			cd, err := svc.StartCountdown(ctx, drillRequest())
			So(err, ShouldBeNil)

			// The grace window elapses and the alert fires.
			fired := eventually(2*time.Second, func() bool {
				return len(svc.ActiveAlerts(ctx)) == 1
			})
			So(fired, ShouldBeTrue)
			So(cd.FiresAt.After(time.Now().Add(-2*time.Second)), ShouldBeTrue)

			a := svc.ActiveAlerts(ctx)[0]

			Convey("Then live fixes reach the alert trail", func() {
				sim.Emit(model.LocationSample{
					Latitude:  37.7755,
					Longitude: -122.4189,
					Accuracy:  25,
					Timestamp: time.Now(),
				})

				tracked := eventually(2*time.Second, func() bool {
					got, gerr := svc.GetAlert(ctx, a.ID)
					return gerr == nil && len(got.Trail) > 0
				})
				So(tracked, ShouldBeTrue)
			})

			Convey("And the drill settles through responses into resolution", func() {
				_, err := svc.Respond(ctx, a.ID, model.Response{
					ResponderID:   "contact-1",
					ResponderName: "Sam",
					Kind:          model.ResponseAcknowledged,
				})
				So(err, ShouldBeNil)

				got, err := svc.Respond(ctx, a.ID, model.Response{
					ResponderID:   "contact-2",
					ResponderName: "Alex",
					Kind:          model.ResponseAcknowledged,
				})
				So(err, ShouldBeNil)
				So(got.AllAcknowledged(), ShouldBeTrue)

				acked := false
				for _, n := range svc.NotificationCenter().Pending {
					if n.Title == "All contacts acknowledged" {
						acked = true
					}
				}
				So(acked, ShouldBeTrue)

				resolved, err := svc.Resolve(ctx, a.ID, "user-1")
				So(err, ShouldBeNil)
				So(resolved.Status, ShouldEqual, model.StatusResolved)

				Convey("And the journal drains the full timeline into sqlite", func() {
					drained := eventually(3*time.Second, func() bool {
						entries, terr := svc.Timeline(ctx, a.ID)
						return terr == nil && len(entries) == 4
					})
					So(drained, ShouldBeTrue)

					entries, err := svc.Timeline(ctx, a.ID)
					So(err, ShouldBeNil)
					So(entries[0].Kind, ShouldEqual, history.EntryTransition)
					So(entries[0].From, ShouldEqual, model.StatusCreated)
					So(entries[0].To, ShouldEqual, model.StatusActive)
					So(entries[len(entries)-1].To, ShouldEqual, model.StatusResolved)

					responders := []string{}
					for _, e := range entries {
						if e.Kind == history.EntryResponse {
							responders = append(responders, e.ResponderID)
						}
					}
					So(responders, ShouldResemble, []string{"contact-1", "contact-2"})

					recent, err := svc.RecentAlerts(ctx, 10)
					So(err, ShouldBeNil)
					So(recent, ShouldContain, a.ID)
				})

				Convey("And the audit trail survives a restart", func() {
					drained := eventually(3*time.Second, func() bool {
						entries, terr := svc.Timeline(ctx, a.ID)
						return terr == nil && len(entries) == 4
					})
					So(drained, ShouldBeTrue)
					svc.Stop()

					revived := service.New(
						service.WithProvider(geo.NewSimProvider(geo.WithPermission(track.PermissionGranted))),
						service.WithProbe(device.NewStaticProbe(connectivity.TransportWifi)),
						service.WithHistoryPath(dbPath),
					)
					So(revived.Start(ctx), ShouldBeNil)
					defer revived.Stop()

					recent, err := revived.RecentAlerts(ctx, 10)
					So(err, ShouldBeNil)
					So(recent, ShouldContain, a.ID)

					entries, err := revived.Timeline(ctx, a.ID)
					So(err, ShouldBeNil)
					So(entries, ShouldHaveLength, 4)
				})
			})
		})
	})
}

func TestServiceIntegration_Offline(t *testing.T) {
	Convey("Given a service whose transport drops away", t, func() {
		probe := device.NewStaticProbe(connectivity.TransportWifi)
		svc := startedService(t, service.WithProbe(probe))
		ctx := context.Background()

		probe.SetTransport(connectivity.TransportNone)
		state, err := svc.CheckConnectivity(ctx)
		So(err, ShouldBeNil)

		Convey("Then the monitor reports offline", func() {
			So(state.Online, ShouldBeFalse)
			So(state.BackendReachable, ShouldBeFalse)
		})

		Convey("And scoring still produces a bounded reading", func() {
			reading := svc.Score(ctx, 40.7128, -74.0060)
			So(reading.OverallScore, ShouldBeBetweenOrEqual, 0, 100)
			So(reading.Confidence, ShouldBeBetweenOrEqual, 20, 95)

			Convey("Whose degraded flag carries into the area ranking", func() {
				rank, err := svc.AreaRank(ctx, 40.7128, -74.0060)
				So(err, ShouldBeNil)
				So(rank.Rank, ShouldEqual, 1)
				So(rank.Score, ShouldEqual, reading.OverallScore)
				So(rank.Degraded, ShouldEqual, reading.Degraded)
			})
		})

		Convey("And alerts still trigger against the loopback channel", func() {
			a, err := svc.Trigger(ctx, "", drillRequest())
			So(err, ShouldBeNil)
			So(a.Status, ShouldEqual, model.StatusActive)
		})
	})
}

func TestServiceIntegration_TriggerBurst(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService(t)
		ctx := context.Background()

		Convey("When the same request ID is raised from many goroutines", func() {
			const racers = 10
			var wg sync.WaitGroup
			ids := make(chan string, racers)

			for i := 0; i < racers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if a, err := svc.Trigger(ctx, "burst-1", drillRequest()); err == nil {
						ids <- a.ID
					}
				}()
			}
			wg.Wait()
			close(ids)

			Convey("Then every winner saw the same alert", func() {
				seen := map[string]bool{}
				for id := range ids {
					seen[id] = true
				}
				So(len(seen), ShouldEqual, 1)
				So(svc.ActiveAlerts(ctx), ShouldHaveLength, 1)
			})

			Convey("And a later replay settles on that alert", func() {
				first, err := svc.Trigger(ctx, "burst-1", drillRequest())
				So(err, ShouldBeNil)
				So(svc.ActiveAlerts(ctx), ShouldHaveLength, 1)
				So(svc.ActiveAlerts(ctx)[0].ID, ShouldEqual, first.ID)
			})
		})

		Convey("When distinct request IDs race", func() {
			const racers = 8
			var wg sync.WaitGroup
			for i := 0; i < racers; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					_, err := svc.Trigger(ctx, fmt.Sprintf("burst-n-%d", n), drillRequest())
					if err != nil {
						t.Errorf("trigger %d: %v", n, err)
					}
				}(i)
			}
			wg.Wait()

			Convey("Then each raised its own alert", func() {
				So(svc.ActiveAlerts(ctx), ShouldHaveLength, racers)
			})
		})
	})
}
