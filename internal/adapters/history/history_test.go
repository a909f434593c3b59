package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/guardiansafety/aegis/internal/adapters/history"
	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var base = time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Timeline(t *testing.T) {
	Convey("Given an open history store", t, func() {
		s := openStore(t)
		ctx := context.Background()

		Convey("When an alert's lifecycle and responses are recorded", func() {
			So(s.RecordTransition(ctx, "alert-1", model.StatusCreated, model.StatusActive, "user-1", base), ShouldBeNil)
			So(s.RecordResponse(ctx, "alert-1", model.Response{
				ResponderID:   "contact-1",
				ResponderName: "Dana",
				Kind:          model.ResponseEnroute,
				Timestamp:     base.Add(time.Minute),
				Location:      &model.LocationSample{Latitude: 37.7749, Longitude: -122.4194, Timestamp: base.Add(time.Minute)},
			}), ShouldBeNil)
			So(s.RecordResponse(ctx, "alert-1", model.Response{
				ResponderID: "contact-2",
				Kind:        model.ResponseDeclined,
				Timestamp:   base.Add(2 * time.Minute),
			}), ShouldBeNil)
			So(s.RecordTransition(ctx, "alert-1", model.StatusActive, model.StatusResolved, "user-1", base.Add(3*time.Minute)), ShouldBeNil)

			entries, err := s.AlertTimeline(ctx, "alert-1")

			Convey("Then the timeline replays them oldest first", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 4)

				So(entries[0].Kind, ShouldEqual, history.EntryTransition)
				So(entries[0].From, ShouldEqual, model.StatusCreated)
				So(entries[0].To, ShouldEqual, model.StatusActive)
				So(entries[0].Actor, ShouldEqual, "user-1")
				So(entries[0].OccurredAt.Equal(base), ShouldBeTrue)

				So(entries[1].Kind, ShouldEqual, history.EntryResponse)
				So(entries[1].ResponderID, ShouldEqual, "contact-1")
				So(entries[1].ResponderName, ShouldEqual, "Dana")
				So(entries[1].ResponseKind, ShouldEqual, model.ResponseEnroute)
				So(entries[1].Location, ShouldNotBeNil)
				So(entries[1].Location.Latitude, ShouldAlmostEqual, 37.7749)
				So(entries[1].Location.Longitude, ShouldAlmostEqual, -122.4194)

				So(entries[2].ResponderID, ShouldEqual, "contact-2")
				So(entries[2].Location, ShouldBeNil)

				So(entries[3].Kind, ShouldEqual, history.EntryTransition)
				So(entries[3].To, ShouldEqual, model.StatusResolved)
			})
		})

		Convey("When a transition and a response share a timestamp", func() {
			// Insert the response first so ordering cannot ride on row id.
			So(s.RecordResponse(ctx, "alert-2", model.Response{
				ResponderID: "contact-1",
				Kind:        model.ResponseAcknowledged,
				Timestamp:   base,
			}), ShouldBeNil)
			So(s.RecordTransition(ctx, "alert-2", model.StatusCreated, model.StatusActive, "user-1", base), ShouldBeNil)

			entries, err := s.AlertTimeline(ctx, "alert-2")

			Convey("Then the transition sorts first", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Kind, ShouldEqual, history.EntryTransition)
				So(entries[1].Kind, ShouldEqual, history.EntryResponse)
			})
		})

		Convey("When asking for an alert that was never recorded", func() {
			entries, err := s.AlertTimeline(ctx, "ghost")

			Convey("Then the timeline is empty without error", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldBeEmpty)
			})
		})
	})
}

func TestStore_RecentAlerts(t *testing.T) {
	Convey("Given a store holding several alerts", t, func() {
		s := openStore(t)
		ctx := context.Background()

		So(s.RecordTransition(ctx, "alert-old", model.StatusCreated, model.StatusActive, "user-1", base), ShouldBeNil)
		So(s.RecordTransition(ctx, "alert-mid", model.StatusCreated, model.StatusActive, "user-1", base.Add(time.Hour)), ShouldBeNil)
		So(s.RecordTransition(ctx, "alert-new", model.StatusCreated, model.StatusActive, "user-1", base.Add(2*time.Hour)), ShouldBeNil)

		Convey("When listing recent alerts", func() {
			ids, err := s.RecentAlerts(ctx, 10)

			Convey("Then the newest activity comes first", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"alert-new", "alert-mid", "alert-old"})
			})
		})

		Convey("When listing with a tight limit", func() {
			ids, err := s.RecentAlerts(ctx, 2)

			Convey("Then only that many are returned", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"alert-new", "alert-mid"})
			})
		})

		Convey("When listing with a non-positive limit", func() {
			ids, err := s.RecentAlerts(ctx, 0)

			Convey("Then the default limit applies", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldHaveLength, 3)
			})
		})

		Convey("When an old alert sees new activity", func() {
			So(s.RecordResponse(ctx, "alert-old", model.Response{
				ResponderID: "contact-1",
				Kind:        model.ResponseAcknowledged,
				Timestamp:   base.Add(3 * time.Hour),
			}), ShouldBeNil)

			ids, err := s.RecentAlerts(ctx, 10)

			Convey("Then it moves to the front", func() {
				So(err, ShouldBeNil)
				So(ids[0], ShouldEqual, "alert-old")
			})
		})
	})
}

func TestStore_Durability(t *testing.T) {
	Convey("Given a store that recorded an alert and was closed", t, func() {
		path := filepath.Join(t.TempDir(), "audit.db")
		ctx := context.Background()

		s, err := history.Open(path)
		So(err, ShouldBeNil)
		So(s.RecordTransition(ctx, "alert-1", model.StatusCreated, model.StatusActive, "user-1", base), ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("Then writes after close fail", func() {
			So(s.RecordTransition(ctx, "alert-1", model.StatusActive, model.StatusResolved, "user-1", base.Add(time.Minute)), ShouldNotBeNil)
		})

		Convey("When the same database is reopened", func() {
			reopened, err := history.Open(path)
			So(err, ShouldBeNil)
			defer func() { _ = reopened.Close() }()

			entries, err := reopened.AlertTimeline(ctx, "alert-1")

			Convey("Then the recorded timeline survives", func() {
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].To, ShouldEqual, model.StatusActive)
			})
		})
	})
}
