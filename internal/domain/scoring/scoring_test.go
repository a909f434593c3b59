package scoring_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guardiansafety/aegis/internal/domain/connectivity"
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

// stubFeed answers with a fixed assessment or error and counts calls.
type stubFeed struct {
	assessment scoring.Assessment
	err        error
	calls      atomic.Int32
}

func (s *stubFeed) AreaAssessment(context.Context, float64, float64, time.Time) (scoring.Assessment, error) {
	s.calls.Add(1)
	if s.err != nil {
		return scoring.Assessment{}, s.err
	}
	return scoring.Assessment{
		Factors:    cloneFactorMap(s.assessment.Factors),
		Confidence: s.assessment.Confidence,
	}, nil
}

func cloneFactorMap(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// stubConn reports a fixed connectivity state.
type stubConn struct {
	st connectivity.State
	ok bool
}

func (s *stubConn) Current() (connectivity.State, bool) { return s.st, s.ok }

// testClock is a settable time source for deterministic time-of-day.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func fullAssessment(confidence int) scoring.Assessment {
	return scoring.Assessment{
		Factors: map[string]float64{
			model.FactorCrime:     80,
			model.FactorLighting:  70,
			model.FactorDensity:   60,
			model.FactorProximity: 50,
		},
		Confidence: confidence,
	}
}

func sampleAt(lat, lng float64, ts time.Time) model.LocationSample {
	return model.LocationSample{Latitude: lat, Longitude: lng, Accuracy: 10, Timestamp: ts}
}

func factorByID(r model.SafetyReading, id string) (model.SafetyFactor, bool) {
	for _, f := range r.Factors {
		if f.ID == id {
			return f, true
		}
	}
	return model.SafetyFactor{}, false
}

func batterySource(level int, lowPower bool) scoring.BatteryFunc {
	return func(context.Context) (*int, *bool) {
		l, p := level, lowPower
		return &l, &p
	}
}

var noon = time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)

func TestScoreAllSourcesLive(t *testing.T) {
	Convey("Given an engine with every source healthy", t, func() {
		ctx := context.Background()
		clk := &testClock{t: noon}
		primary := &stubFeed{assessment: fullAssessment(90)}
		e := scoring.New(primary, nil,
			scoring.WithClock(clk.now),
			scoring.WithConnectivitySource(&stubConn{st: connectivity.State{Online: true, BackendReachable: true}, ok: true}),
			scoring.WithBatterySource(batterySource(80, false)),
		)

		Convey("When scoring a fresh sample", func() {
			r := e.Score(ctx, sampleAt(37.7749, -122.4194, noon))

			Convey("Then every factor participates", func() {
				So(r.Factors, ShouldHaveLength, 7)
				for _, f := range r.Factors {
					So(f.Unavailable, ShouldBeFalse)
					So(f.Source, ShouldEqual, model.SourceLive)
				}
				var weightSum float64
				for _, f := range r.Factors {
					weightSum += f.Weight
				}
				So(weightSum, ShouldAlmostEqual, 1.0, 1e-9)
			})

			Convey("Then the weighted score and bucket come out right", func() {
				So(r.OverallScore, ShouldEqual, 74)
				So(r.RiskLevel, ShouldEqual, model.RiskLow)
				So(r.Degraded, ShouldBeFalse)
			})

			Convey("Then confidence reflects only the feed's own doubt", func() {
				So(r.Confidence, ShouldEqual, 93)
				So(r.LowConfidence, ShouldBeFalse)
			})

			Convey("Then the invariant bounds hold", func() {
				So(r.OverallScore, ShouldBeBetweenOrEqual, 0, 100)
				So(r.Confidence, ShouldBeBetweenOrEqual, 20, 95)
			})
		})
	})
}

func TestScoreFallback(t *testing.T) {
	Convey("Given a primary feed that is down and a static fallback", t, func() {
		ctx := context.Background()
		clk := &testClock{t: noon}
		primary := &stubFeed{err: errors.New("advisory timeout")}
		fallback := &stubFeed{assessment: fullAssessment(40)}
		conn := &stubConn{st: connectivity.State{Online: true, BackendReachable: true}, ok: true}

		e := scoring.New(primary, fallback,
			scoring.WithClock(clk.now),
			scoring.WithConnectivitySource(conn),
			scoring.WithBatterySource(batterySource(80, false)),
		)

		Convey("When scoring", func() {
			r := e.Score(ctx, sampleAt(37.7749, -122.4194, noon))

			Convey("Then the reading still arrives, marked degraded", func() {
				So(r.Degraded, ShouldBeTrue)
				So(primary.calls.Load(), ShouldEqual, 1)
				So(fallback.calls.Load(), ShouldEqual, 1)
			})

			Convey("Then the area factors carry fallback values", func() {
				for _, id := range []string{model.FactorCrime, model.FactorLighting, model.FactorDensity, model.FactorProximity} {
					f, ok := factorByID(r, id)
					So(ok, ShouldBeTrue)
					So(f.Unavailable, ShouldBeFalse)
					So(f.Source, ShouldEqual, model.SourceFallback)
				}
			})

			Convey("Then confidence sits below an all-live reading of the same spot", func() {
				live := scoring.New(&stubFeed{assessment: fullAssessment(90)}, nil,
					scoring.WithClock(clk.now),
					scoring.WithConnectivitySource(conn),
					scoring.WithBatterySource(batterySource(80, false)),
				).Score(ctx, sampleAt(37.7749, -122.4194, noon))

				So(r.Confidence, ShouldEqual, 63)
				So(r.Confidence, ShouldBeLessThan, live.Confidence)
				So(r.OverallScore, ShouldEqual, live.OverallScore)
			})
		})
	})
}

func TestScoreExclusionAndRenormalization(t *testing.T) {
	Convey("Given an engine with no connectivity or battery source", t, func() {
		ctx := context.Background()
		clk := &testClock{t: noon}
		primary := &stubFeed{assessment: fullAssessment(90)}
		e := scoring.New(primary, nil, scoring.WithClock(clk.now))

		Convey("When scoring", func() {
			r := e.Score(ctx, sampleAt(37.7749, -122.4194, noon))

			Convey("Then the missing factors are excluded, not zeroed", func() {
				connFactor, ok := factorByID(r, model.FactorConnectivity)
				So(ok, ShouldBeTrue)
				So(connFactor.Unavailable, ShouldBeTrue)
				So(connFactor.Weight, ShouldEqual, 0)

				// 57.25 weighted points over 0.80 total weight; counting
				// the missing factors as zero would have given 57.
				So(r.OverallScore, ShouldEqual, 72)
				So(r.Degraded, ShouldBeTrue)
			})

			Convey("Then remaining weights renormalize to one", func() {
				var weightSum float64
				for _, f := range r.Factors {
					weightSum += f.Weight
				}
				So(weightSum, ShouldAlmostEqual, 1.0, 1e-9)
			})

			Convey("Then each exclusion costs confidence", func() {
				So(r.Confidence, ShouldEqual, 69)
			})
		})
	})

	Convey("Given an engine with no sources at all", t, func() {
		ctx := context.Background()
		clk := &testClock{t: noon}
		e := scoring.New(nil, nil, scoring.WithClock(clk.now))

		Convey("When scoring", func() {
			r := e.Score(ctx, sampleAt(37.7749, -122.4194, noon))

			Convey("Then time of day alone carries the reading", func() {
				So(r.OverallScore, ShouldEqual, 85)
				So(r.RiskLevel, ShouldEqual, model.RiskVeryLow)
				tod, ok := factorByID(r, model.FactorTimeOfDay)
				So(ok, ShouldBeTrue)
				So(tod.Weight, ShouldAlmostEqual, 1.0, 1e-9)
			})

			Convey("Then confidence bottoms near the floor and is badged", func() {
				So(r.Confidence, ShouldEqual, 23)
				So(r.LowConfidence, ShouldBeTrue)
				So(r.Degraded, ShouldBeTrue)
			})
		})
	})
}

func TestScoreStaleSample(t *testing.T) {
	Convey("Given a sample past the staleness window", t, func() {
		ctx := context.Background()
		clk := &testClock{t: noon}
		primary := &stubFeed{assessment: fullAssessment(90)}
		fallback := &stubFeed{assessment: fullAssessment(40)}
		e := scoring.New(primary, fallback,
			scoring.WithClock(clk.now),
			scoring.WithConnectivitySource(&stubConn{st: connectivity.State{Online: true, BackendReachable: true}, ok: true}),
			scoring.WithBatterySource(batterySource(80, false)),
		)

		Convey("When scoring", func() {
			r := e.Score(ctx, sampleAt(37.7749, -122.4194, noon.Add(-10*time.Minute)))

			Convey("Then the live feed is skipped entirely", func() {
				So(primary.calls.Load(), ShouldEqual, 0)
				So(fallback.calls.Load(), ShouldEqual, 1)
			})

			Convey("Then recency takes its full toll", func() {
				// 95 - 20 fallback - 12 feed doubt - 15 recency.
				So(r.Confidence, ShouldEqual, 48)
				So(r.Degraded, ShouldBeTrue)
			})
		})
	})
}

func TestScoreCaching(t *testing.T) {
	Convey("Given an engine with a live feed", t, func() {
		ctx := context.Background()
		clk := &testClock{t: noon}
		primary := &stubFeed{assessment: fullAssessment(90)}
		e := scoring.New(primary, nil, scoring.WithClock(clk.now))

		Convey("When scoring the same spot twice within the TTL", func() {
			first := e.Score(ctx, sampleAt(37.7749, -122.4194, noon))
			second := e.Score(ctx, sampleAt(37.7749, -122.4194, noon))

			Convey("Then the feed is consulted once", func() {
				So(primary.calls.Load(), ShouldEqual, 1)
				So(second.OverallScore, ShouldEqual, first.OverallScore)
			})

			Convey("Then the cached reading cannot be mutated through returns", func() {
				second.Factors[0].Value = -1
				third := e.Score(ctx, sampleAt(37.7749, -122.4194, noon))
				So(third.Factors[0].Value, ShouldNotEqual, -1)
			})
		})

		Convey("When scoring two distinct spots", func() {
			e.Score(ctx, sampleAt(37.7749, -122.4194, noon))
			e.Score(ctx, sampleAt(40.7128, -74.0060, noon))

			Convey("Then each gets its own pass", func() {
				So(primary.calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When the TTL lapses", func() {
			short := scoring.New(primary, nil,
				scoring.WithClock(clk.now),
				scoring.WithCacheTTL(30*time.Millisecond),
			)
			short.Score(ctx, sampleAt(37.7749, -122.4194, noon))
			time.Sleep(60 * time.Millisecond)
			short.Score(ctx, sampleAt(37.7749, -122.4194, noon))

			Convey("Then the spot is recomputed", func() {
				So(primary.calls.Load(), ShouldEqual, 2)
			})
		})
	})
}

func TestScoreTrends(t *testing.T) {
	Convey("Given two passes over the same spot an hour apart", t, func() {
		ctx := context.Background()
		clk := &testClock{t: noon}
		primary := &stubFeed{assessment: fullAssessment(90)}
		e := scoring.New(primary, nil, scoring.WithClock(clk.now))

		first := e.Score(ctx, sampleAt(37.7749, -122.4194, noon))

		primary.assessment.Factors[model.FactorCrime] = 95
		primary.assessment.Factors[model.FactorLighting] = 60
		primary.assessment.Factors[model.FactorDensity] = 61
		later := noon.Add(time.Hour)
		clk.set(later)

		second := e.Score(ctx, sampleAt(37.7749, -122.4194, later))

		Convey("Then the first pass reads stable everywhere", func() {
			for _, f := range first.Factors {
				So(f.Trend, ShouldEqual, model.TrendStable)
			}
		})

		Convey("Then movements past the band change trend", func() {
			crime, _ := factorByID(second, model.FactorCrime)
			So(crime.Trend, ShouldEqual, model.TrendImproving)

			lighting, _ := factorByID(second, model.FactorLighting)
			So(lighting.Trend, ShouldEqual, model.TrendDeclining)
		})

		Convey("Then small movements stay stable", func() {
			density, _ := factorByID(second, model.FactorDensity)
			So(density.Trend, ShouldEqual, model.TrendStable)

			tod, _ := factorByID(second, model.FactorTimeOfDay)
			So(tod.Trend, ShouldEqual, model.TrendStable)
		})
	})
}

func TestScoreFactorMappings(t *testing.T) {
	Convey("Given connectivity in each state", t, func() {
		ctx := context.Background()
		clk := &testClock{t: noon}

		score := func(st connectivity.State) float64 {
			e := scoring.New(nil, nil,
				scoring.WithClock(clk.now),
				scoring.WithConnectivitySource(&stubConn{st: st, ok: true}),
			)
			r := e.Score(ctx, sampleAt(1, 1, noon))
			f, _ := factorByID(r, model.FactorConnectivity)
			return f.Value
		}

		Convey("Then reachable beats online beats offline", func() {
			reachable := score(connectivity.State{Online: true, BackendReachable: true})
			onlineOnly := score(connectivity.State{Online: true})
			offline := score(connectivity.State{})

			So(reachable, ShouldBeGreaterThan, onlineOnly)
			So(onlineOnly, ShouldBeGreaterThan, offline)
		})
	})

	Convey("Given battery readings", t, func() {
		ctx := context.Background()
		clk := &testClock{t: noon}

		batteryFactor := func(level int, lowPower bool) model.SafetyFactor {
			e := scoring.New(nil, nil,
				scoring.WithClock(clk.now),
				scoring.WithBatterySource(batterySource(level, lowPower)),
			)
			r := e.Score(ctx, sampleAt(2, 2, noon))
			f, _ := factorByID(r, model.FactorBattery)
			return f
		}

		Convey("Then the level maps through directly", func() {
			So(batteryFactor(90, false).Value, ShouldEqual, 90)
			So(batteryFactor(15, false).Value, ShouldEqual, 15)
		})

		Convey("Then low-power mode caps a high level", func() {
			So(batteryFactor(90, true).Value, ShouldEqual, 60)
			So(batteryFactor(30, true).Value, ShouldEqual, 30)
		})
	})

	Convey("Given hours across the day", t, func() {
		ctx := context.Background()

		todValue := func(hour int) float64 {
			at := time.Date(2025, 6, 14, hour, 30, 0, 0, time.UTC)
			clk := &testClock{t: at}
			e := scoring.New(nil, nil, scoring.WithClock(clk.now))
			r := e.Score(ctx, sampleAt(3, float64(hour), at))
			f, _ := factorByID(r, model.FactorTimeOfDay)
			return f.Value
		}

		Convey("Then daylight scores above evening above night", func() {
			So(todValue(12), ShouldBeGreaterThan, todValue(19))
			So(todValue(19), ShouldBeGreaterThan, todValue(2))
			So(todValue(6), ShouldBeGreaterThan, todValue(2))
		})
	})
}

func TestScoreBoundsProperty(t *testing.T) {
	Convey("Given extreme factor inputs", t, func() {
		ctx := context.Background()
		clk := &testClock{t: noon}

		extremes := []scoring.Assessment{
			{Factors: map[string]float64{model.FactorCrime: 0, model.FactorLighting: 0, model.FactorDensity: 0, model.FactorProximity: 0}, Confidence: 0},
			{Factors: map[string]float64{model.FactorCrime: 100, model.FactorLighting: 100, model.FactorDensity: 100, model.FactorProximity: 100}, Confidence: 100},
			{Factors: map[string]float64{model.FactorCrime: 250, model.FactorLighting: -50, model.FactorDensity: 50, model.FactorProximity: 50}, Confidence: 300},
		}
		batteries := []int{0, 100}
		states := []connectivity.State{{}, {Online: true, BackendReachable: true}}

		Convey("Then score and confidence stay inside their bounds", func() {
			lng := 0.0
			for _, a := range extremes {
				for _, level := range batteries {
					for _, st := range states {
						lng += 0.01
						e := scoring.New(&stubFeed{assessment: a}, nil,
							scoring.WithClock(clk.now),
							scoring.WithConnectivitySource(&stubConn{st: st, ok: true}),
							scoring.WithBatterySource(batterySource(level, false)),
						)
						r := e.Score(ctx, sampleAt(10, lng, noon))

						So(r.OverallScore, ShouldBeBetweenOrEqual, 0, 100)
						So(r.Confidence, ShouldBeBetweenOrEqual, 20, 95)
					}
				}
			}
		})
	})
}
