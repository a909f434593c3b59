// Package scoring computes best-effort safety readings from weighted
// factors.
//
// Conventions:
//   - Score never fails: unavailable sources degrade the reading instead
//     of erroring, and are visible per factor.
//   - Factor values and the overall score are 0-100, higher is safer.
//   - Confidence always stays within [20,95].
package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/guardiansafety/aegis/internal/domain/connectivity"
	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/pkg/logger"
	"github.com/guardiansafety/aegis/pkg/metrics"
)

// Default engine configuration constants.
const (
	defaultStalenessWindow = 5 * time.Minute
	defaultCacheTTL        = 5 * time.Minute
	defaultTrendTTL        = 24 * time.Hour
	defaultLowConfidence   = 40

	confidenceCeiling      = 95
	confidenceFloor        = 20
	excludedPenalty        = 12
	fallbackPenalty        = 5
	feedConfidenceDivisor  = 5
	recencyPenaltyMax      = 15
	maxFeedConfidenceValue = 100

	// trendBand is the movement a factor value needs before its trend
	// leaves stable.
	trendBand = 3.0

	maxFactorValue = 100.0
	neutralScore   = 50

	// Connectivity factor values by state.
	connReachableValue = 90.0
	connOnlineValue    = 65.0
	connOfflineValue   = 25.0

	// Low-power mode caps the battery factor: the device may stop
	// reporting sooner than the raw level suggests.
	lowPowerCap = 60.0
)

// Hour boundaries and values for the time-of-day curve.
const (
	dawnStartHour    = 5
	morningStartHour = 7
	eveningStartHour = 18
	nightStartHour   = 22

	dayTimeValue     = 85.0
	eveningTimeValue = 65.0
	dawnTimeValue    = 55.0
	nightTimeValue   = 30.0
)

// defaultWeights spreads the score across the feed-sourced factors and the
// locally computed ones. Deployments override these through config.
var defaultWeights = map[string]float64{
	model.FactorCrime:        0.25,
	model.FactorLighting:     0.15,
	model.FactorDensity:      0.15,
	model.FactorTimeOfDay:    0.15,
	model.FactorProximity:    0.10,
	model.FactorConnectivity: 0.10,
	model.FactorBattery:      0.10,
}

// Assessment is the factor set an area feed returns for a coordinate.
// Factors maps canonical factor IDs to 0-100 values, higher is safer;
// Confidence is the feed's own 0-100 estimate of its answer.
type Assessment struct {
	Factors    map[string]float64
	Confidence int
}

// Feed supplies area safety factors. Implementations live in the advisory
// adapter; the engine depends only on this contract.
type Feed interface {
	AreaAssessment(ctx context.Context, lat, lng float64, at time.Time) (Assessment, error)
}

// ConnectivitySource exposes the latest connectivity evaluation.
type ConnectivitySource interface {
	Current() (connectivity.State, bool)
}

// BatteryFunc supplies an optional battery reading; both returns are nil
// when the host has none.
type BatteryFunc func(ctx context.Context) (level *int, lowPower *bool)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights replaces the factor weight map. Factors with non-positive
// weight are dropped from the set entirely.
func WithWeights(weights map[string]float64) Option {
	return func(e *Engine) {
		if len(weights) == 0 {
			return
		}
		// Copy the weights map to avoid external modifications
		e.weights = make(map[string]float64, len(weights))
		for id, weight := range weights {
			if weight > 0 {
				e.weights[id] = weight
			}
		}
	}
}

// WithConnectivitySource wires the connectivity factor.
func WithConnectivitySource(src ConnectivitySource) Option {
	return func(e *Engine) {
		if src != nil {
			e.conn = src
		}
	}
}

// WithBatterySource wires the battery factor.
func WithBatterySource(fn BatteryFunc) Option {
	return func(e *Engine) {
		if fn != nil {
			e.battery = fn
		}
	}
}

// WithStalenessWindow sets how old a sample may be before the live feed is
// skipped and recency confidence bottoms out.
func WithStalenessWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.staleness = d
		}
	}
}

// WithCacheTTL sets how long a computed reading answers for its location
// bucket.
func WithCacheTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.cacheTTL = d
		}
	}
}

// WithLowConfidenceThreshold sets the confidence below which readings are
// badged low-confidence.
func WithLowConfidenceThreshold(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.lowConfidence = n
		}
	}
}

// WithClock injects the time source used for time-of-day and staleness.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine computes safety readings. It is safe for concurrent use; passes
// racing on the same location bucket resolve last-writer-wins through the
// reading cache.
type Engine struct {
	primary  Feed
	fallback Feed

	conn    ConnectivitySource
	battery BatteryFunc

	weights       map[string]float64
	staleness     time.Duration
	cacheTTL      time.Duration
	lowConfidence int
	now           func() time.Time

	readings *cache.Cache
	trends   *cache.Cache

	logger logger.Logger
}

// New creates an engine over a primary area feed and an optional fallback
// consulted when the primary is unavailable. Either feed may be nil; the
// affected factors are then excluded and the weights renormalized.
func New(primary, fallback Feed, opts ...Option) *Engine {
	e := &Engine{
		primary:       primary,
		fallback:      fallback,
		weights:       make(map[string]float64, len(defaultWeights)),
		staleness:     defaultStalenessWindow,
		cacheTTL:      defaultCacheTTL,
		lowConfidence: defaultLowConfidence,
		now:           time.Now,
		logger:        logger.Get().Named("scoring"),
	}
	for id, weight := range defaultWeights {
		e.weights[id] = weight
	}

	// Apply all options
	for _, opt := range opts {
		opt(e)
	}

	e.readings = cache.New(e.cacheTTL, 2*e.cacheTTL)
	e.trends = cache.New(defaultTrendTTL, 2*defaultTrendTTL)

	return e
}

// Score computes the safety reading for loc. It never returns an error:
// every failure path degrades the reading instead, visible through
// Degraded, Confidence and per-factor availability. Readings are memoized
// per rounded-coordinate-plus-hour bucket.
func (e *Engine) Score(ctx context.Context, loc model.LocationSample) model.SafetyReading {
	start := time.Now()
	now := e.now()

	key := readingKey(loc.Latitude, loc.Longitude, now.Hour())
	if v, ok := e.readings.Get(key); ok {
		if r, ok := v.(model.SafetyReading); ok {
			metrics.RecordScoreCacheHit()
			return r.Clone()
		}
	}
	metrics.RecordScoreCacheMiss()

	reading := e.compute(ctx, loc, now)

	// Last writer wins for re-entrant passes on the same bucket.
	e.readings.Set(key, reading.Clone(), cache.DefaultExpiration)

	metrics.RecordScoringLatency(float64(time.Since(start).Milliseconds()))
	metrics.RecordReadingComputed()
	if reading.Degraded {
		metrics.RecordReadingDegraded()
	}
	metrics.UpdateSafetyScore(reading.OverallScore)
	metrics.UpdateScoreConfidence(reading.Confidence)

	e.logger.Debug(ctx, "safety reading computed",
		logger.Int("score", reading.OverallScore),
		logger.Int("confidence", reading.Confidence),
		logger.String("risk", string(reading.RiskLevel)),
		logger.Bool("degraded", reading.Degraded),
	)
	return reading
}

func (e *Engine) compute(ctx context.Context, loc model.LocationSample, now time.Time) model.SafetyReading {
	stale := loc.Stale(now, e.staleness)
	area, areaSource, areaOK := e.areaFactors(ctx, loc, now, stale)

	factors := make([]model.SafetyFactor, 0, len(e.weights))

	for _, id := range []string{model.FactorCrime, model.FactorLighting, model.FactorDensity, model.FactorProximity} {
		weight, enabled := e.weights[id]
		if !enabled {
			continue
		}
		value, present := float64(0), false
		if areaOK {
			value, present = area.Factors[id]
		}
		if !present {
			factors = append(factors, model.SafetyFactor{ID: id, Weight: weight, Source: model.SourceFallback, Unavailable: true})
			continue
		}
		factors = append(factors, model.SafetyFactor{ID: id, Value: clampValue(value), Weight: weight, Source: areaSource})
	}

	if weight, enabled := e.weights[model.FactorTimeOfDay]; enabled {
		factors = append(factors, model.SafetyFactor{ID: model.FactorTimeOfDay, Value: timeOfDayValue(now), Weight: weight, Source: model.SourceLive})
	}

	if weight, enabled := e.weights[model.FactorConnectivity]; enabled {
		if st, ok := e.connectivityState(); ok {
			factors = append(factors, model.SafetyFactor{ID: model.FactorConnectivity, Value: connectivityValue(st), Weight: weight, Source: model.SourceLive})
		} else {
			factors = append(factors, model.SafetyFactor{ID: model.FactorConnectivity, Weight: weight, Source: model.SourceFallback, Unavailable: true})
		}
	}

	if weight, enabled := e.weights[model.FactorBattery]; enabled {
		if level, lowPower := e.batteryReading(ctx); level != nil {
			factors = append(factors, model.SafetyFactor{ID: model.FactorBattery, Value: batteryValue(*level, lowPower), Weight: weight, Source: model.SourceLive})
		} else {
			factors = append(factors, model.SafetyFactor{ID: model.FactorBattery, Weight: weight, Source: model.SourceFallback, Unavailable: true})
		}
	}

	// Weighted sum over the available set only, weights renormalized to 1.
	// A missing factor is excluded, never counted as zero.
	var totalWeight float64
	var excluded, fallbackCount int
	for i := range factors {
		if factors[i].Unavailable {
			excluded++
			factors[i].Weight = 0
			continue
		}
		if factors[i].Source == model.SourceFallback {
			fallbackCount++
		}
		totalWeight += factors[i].Weight
	}

	score := neutralScore
	if totalWeight > 0 {
		var weightedSum float64
		for i := range factors {
			if factors[i].Unavailable {
				continue
			}
			normalized := factors[i].Weight / totalWeight
			factors[i].Weight = normalized
			weightedSum += factors[i].Value * normalized
		}
		score = int(math.Round(math.Max(0, math.Min(maxFactorValue, weightedSum))))
	}

	confidence := confidenceCeiling
	confidence -= excludedPenalty * excluded
	confidence -= fallbackPenalty * fallbackCount
	if areaOK {
		confidence -= (maxFeedConfidenceValue - clampFeedConfidence(area.Confidence)) / feedConfidenceDivisor
	}
	confidence -= recencyPenalty(loc.Timestamp, now, e.staleness)
	if confidence < confidenceFloor {
		confidence = confidenceFloor
	}
	if confidence > confidenceCeiling {
		confidence = confidenceCeiling
	}

	e.applyTrends(AreaKey(loc.Latitude, loc.Longitude), factors)

	return model.SafetyReading{
		Timestamp:     now,
		OverallScore:  score,
		Confidence:    confidence,
		Factors:       factors,
		RiskLevel:     model.RiskLevelFor(score),
		Degraded:      stale || excluded > 0 || fallbackCount > 0,
		LowConfidence: confidence < e.lowConfidence,
	}
}

// areaFactors resolves the feed-sourced factor group. Stale samples skip
// the live feed: coordinates that old are not worth a network call, and
// the answer would misrepresent "now" anyway.
func (e *Engine) areaFactors(ctx context.Context, loc model.LocationSample, now time.Time, stale bool) (Assessment, model.FactorSource, bool) {
	if e.primary != nil && !stale {
		area, err := e.primary.AreaAssessment(ctx, loc.Latitude, loc.Longitude, now)
		if err == nil {
			return area, model.SourceLive, true
		}
		e.logger.Warn(ctx, "area feed unavailable, falling back", logger.Error(err))
	}
	if e.fallback != nil {
		area, err := e.fallback.AreaAssessment(ctx, loc.Latitude, loc.Longitude, now)
		if err == nil {
			return area, model.SourceFallback, true
		}
		e.logger.Warn(ctx, "fallback feed failed", logger.Error(err))
	}
	return Assessment{}, model.SourceFallback, false
}

func (e *Engine) connectivityState() (connectivity.State, bool) {
	if e.conn == nil {
		return connectivity.State{}, false
	}
	return e.conn.Current()
}

func (e *Engine) batteryReading(ctx context.Context) (*int, *bool) {
	if e.battery == nil {
		return nil, nil
	}
	return e.battery(ctx)
}

// applyTrends stamps each factor's movement against the previous pass for
// the same location, then advances the baseline. First visits and
// unavailable factors read stable; an unavailable factor keeps its old
// baseline so its trend resumes when the source returns.
func (e *Engine) applyTrends(key string, factors []model.SafetyFactor) {
	var prev map[string]float64
	if v, ok := e.trends.Get(key); ok {
		prev, _ = v.(map[string]float64)
	}

	next := make(map[string]float64, len(factors)+len(prev))
	for id, value := range prev {
		next[id] = value
	}
	for i := range factors {
		factors[i].Trend = model.TrendStable
		if factors[i].Unavailable {
			continue
		}
		if prevValue, ok := prev[factors[i].ID]; ok {
			switch {
			case factors[i].Value > prevValue+trendBand:
				factors[i].Trend = model.TrendImproving
			case factors[i].Value < prevValue-trendBand:
				factors[i].Trend = model.TrendDeclining
			}
		}
		next[factors[i].ID] = factors[i].Value
	}
	e.trends.Set(key, next, cache.DefaultExpiration)
}

// readingKey buckets passes by rounded coordinates plus hour, so re-entrant
// scoring for the same spot lands on one cache entry.
func readingKey(lat, lng float64, hour int) string {
	return fmt.Sprintf("%s:%02d", AreaKey(lat, lng), hour)
}

// AreaKey buckets coordinates into the grid cell used for trend tracking
// and area ranking. Three decimals keep cells roughly a city block wide.
func AreaKey(lat, lng float64) string {
	return fmt.Sprintf("%.3f:%.3f", lat, lng)
}

func clampValue(v float64) float64 {
	return math.Max(0, math.Min(maxFactorValue, v))
}

func clampFeedConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxFeedConfidenceValue {
		return maxFeedConfidenceValue
	}
	return v
}

// recencyPenalty grows linearly with sample age and saturates at the
// staleness window.
func recencyPenalty(ts, now time.Time, window time.Duration) int {
	if ts.IsZero() {
		return recencyPenaltyMax
	}
	age := now.Sub(ts)
	if age <= 0 {
		return 0
	}
	if age >= window {
		return recencyPenaltyMax
	}
	return int(float64(recencyPenaltyMax) * float64(age) / float64(window))
}

// timeOfDayValue maps the local hour onto a coarse safety curve: daylight
// is safest, late night riskiest, dawn and dusk in between.
func timeOfDayValue(at time.Time) float64 {
	hour := at.Hour()
	switch {
	case hour >= morningStartHour && hour < eveningStartHour:
		return dayTimeValue
	case hour >= eveningStartHour && hour < nightStartHour:
		return eveningTimeValue
	case hour >= dawnStartHour && hour < morningStartHour:
		return dawnTimeValue
	default:
		return nightTimeValue
	}
}

func connectivityValue(st connectivity.State) float64 {
	switch {
	case st.Online && st.BackendReachable:
		return connReachableValue
	case st.Online:
		return connOnlineValue
	default:
		return connOfflineValue
	}
}

func batteryValue(level int, lowPower *bool) float64 {
	v := math.Max(0, math.Min(maxFactorValue, float64(level)))
	if lowPower != nil && *lowPower {
		v = math.Min(v, lowPowerCap)
	}
	return v
}
