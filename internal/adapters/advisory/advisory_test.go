package advisory_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guardiansafety/aegis/internal/adapters/advisory"
	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/internal/domain/scoring"
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

// scriptedFeed fails a fixed number of calls before succeeding.
type scriptedFeed struct {
	calls    atomic.Int32
	failures int32
	delay    time.Duration
	err      error
}

func (s *scriptedFeed) AreaAssessment(ctx context.Context, lat, lng float64, at time.Time) (scoring.Assessment, error) {
	n := s.calls.Add(1)

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return scoring.Assessment{}, ctx.Err()
		}
	}

	if n <= s.failures {
		return scoring.Assessment{}, s.err
	}
	return scoring.Assessment{
		Factors:    map[string]float64{model.FactorCrime: 70},
		Confidence: 80,
	}, nil
}

func TestGuard(t *testing.T) {
	Convey("Given a guarded advisory feed", t, func() {
		ctx := context.Background()
		at := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)

		Convey("When the feed succeeds immediately", func() {
			feed := &scriptedFeed{}
			g := advisory.NewGuard(feed)

			a, err := g.AreaAssessment(ctx, 1, 2, at)

			Convey("Then the assessment comes back after one call", func() {
				So(err, ShouldBeNil)
				So(a.Confidence, ShouldEqual, 80)
				So(feed.calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the first call fails", func() {
			feed := &scriptedFeed{failures: 1, err: advisory.ErrUnavailable}
			g := advisory.NewGuard(feed, advisory.WithRetries(1))

			a, err := g.AreaAssessment(ctx, 1, 2, at)

			Convey("Then the retry recovers it", func() {
				So(err, ShouldBeNil)
				So(a.Factors[model.FactorCrime], ShouldEqual, 70)
				So(feed.calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When every attempt fails", func() {
			feed := &scriptedFeed{failures: 10, err: advisory.ErrUnavailable}
			g := advisory.NewGuard(feed, advisory.WithRetries(1))

			_, err := g.AreaAssessment(ctx, 1, 2, at)

			Convey("Then the budget is one call plus one retry", func() {
				So(errors.Is(err, advisory.ErrUnavailable), ShouldBeTrue)
				So(feed.calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When the feed hangs past the timeout", func() {
			feed := &scriptedFeed{delay: 200 * time.Millisecond}
			g := advisory.NewGuard(feed,
				advisory.WithTimeout(20*time.Millisecond),
				advisory.WithRetries(1),
			)

			start := time.Now()
			_, err := g.AreaAssessment(ctx, 1, 2, at)

			Convey("Then each attempt is cut off and the call fails", func() {
				So(err, ShouldNotBeNil)
				So(feed.calls.Load(), ShouldEqual, 2)
				So(time.Since(start), ShouldBeLessThan, 2*time.Second)
			})
		})

		Convey("When the caller's context is cancelled", func() {
			feed := &scriptedFeed{failures: 10, err: advisory.ErrUnavailable}
			g := advisory.NewGuard(feed, advisory.WithRetries(5))

			cctx, cancel := context.WithCancel(ctx)
			cancel()

			_, err := g.AreaAssessment(cctx, 1, 2, at)

			Convey("Then no retries are wasted", func() {
				So(err, ShouldNotBeNil)
				So(feed.calls.Load(), ShouldEqual, 1)
			})
		})
	})
}

func TestStaticFeed(t *testing.T) {
	Convey("Given the static heuristic feed", t, func() {
		ctx := context.Background()
		feed := advisory.NewStaticFeed()

		Convey("When assessing the same place and hour twice", func() {
			at := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
			a1, err1 := feed.AreaAssessment(ctx, 37.7749, -122.4194, at)
			a2, err2 := feed.AreaAssessment(ctx, 37.7749, -122.4194, at)

			Convey("Then the result is deterministic", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(a1.Factors, ShouldResemble, a2.Factors)
			})
		})

		Convey("When assessing day and night", func() {
			noon := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
			night := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)

			day, _ := feed.AreaAssessment(ctx, 37.7749, -122.4194, noon)
			dark, _ := feed.AreaAssessment(ctx, 37.7749, -122.4194, night)

			Convey("Then night scores below day for every factor", func() {
				for id, v := range day.Factors {
					So(dark.Factors[id], ShouldBeLessThan, v)
				}
			})
		})

		Convey("When assessing any hour of the day", func() {
			Convey("Then all values stay within 0-100", func() {
				for hour := 0; hour < 24; hour++ {
					at := time.Date(2025, 6, 1, hour, 0, 0, 0, time.UTC)
					a, err := feed.AreaAssessment(ctx, 71.2, -156.8, at)
					So(err, ShouldBeNil)
					for _, v := range a.Factors {
						So(v, ShouldBeBetweenOrEqual, 0, 100)
					}
					So(a.Confidence, ShouldBeBetweenOrEqual, 0, 100)
				}
			})
		})
	})
}

func TestParseAssessment(t *testing.T) {
	Convey("Given LLM reply payloads", t, func() {
		Convey("When parsing a well-formed reply", func() {
			a, err := advisory.ParseAssessment(
				`{"crime_index": 62, "lighting": 80, "population_density": 55, "emergency_proximity": 70, "confidence": 85}`,
			)

			Convey("Then every factor is extracted", func() {
				So(err, ShouldBeNil)
				So(a.Factors[model.FactorCrime], ShouldEqual, 62)
				So(a.Factors[model.FactorLighting], ShouldEqual, 80)
				So(a.Factors[model.FactorDensity], ShouldEqual, 55)
				So(a.Factors[model.FactorProximity], ShouldEqual, 70)
				So(a.Confidence, ShouldEqual, 85)
			})
		})

		Convey("When values run out of range", func() {
			a, err := advisory.ParseAssessment(
				`{"crime_index": 140, "lighting": -10, "population_density": 50, "emergency_proximity": 50, "confidence": 120}`,
			)

			Convey("Then they are clamped to 0-100", func() {
				So(err, ShouldBeNil)
				So(a.Factors[model.FactorCrime], ShouldEqual, 100)
				So(a.Factors[model.FactorLighting], ShouldEqual, 0)
				So(a.Confidence, ShouldEqual, 100)
			})
		})

		Convey("When a factor is missing", func() {
			_, err := advisory.ParseAssessment(
				`{"crime_index": 62, "lighting": 80, "confidence": 85}`,
			)

			Convey("Then the parse fails", func() {
				So(errors.Is(err, advisory.ErrBadResponse), ShouldBeTrue)
			})
		})

		Convey("When the reply is not JSON", func() {
			_, err := advisory.ParseAssessment(`the area seems safe`)

			Convey("Then the parse fails", func() {
				So(errors.Is(err, advisory.ErrBadResponse), ShouldBeTrue)
			})
		})
	})
}
