package model

import "time"

// RiskLevel is the monotone bucketing of an overall safety score.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "very_low"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// Risk bucket boundaries. Buckets are exhaustive over [0,100] and do not
// overlap: >=80 very_low, 60-79 low, 40-59 medium, 20-39 high, <20 very_high.
const (
	riskVeryLowFloor = 80
	riskLowFloor     = 60
	riskMediumFloor  = 40
	riskHighFloor    = 20
)

// RiskLevelFor buckets a 0-100 score. Higher scores are safer.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score >= riskVeryLowFloor:
		return RiskVeryLow
	case score >= riskLowFloor:
		return RiskLow
	case score >= riskMediumFloor:
		return RiskMedium
	case score >= riskHighFloor:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}

// Severity orders risk levels from safest (0) to most dangerous (4).
func (r RiskLevel) Severity() int {
	switch r {
	case RiskVeryLow:
		return 0
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 4
	}
}

// Trend describes how a factor moved relative to the previous reading for
// the same location bucket.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// FactorSource tells whether a factor value came from its live data source
// or from the static fallback heuristic.
type FactorSource string

const (
	SourceLive     FactorSource = "live"
	SourceFallback FactorSource = "fallback"
)

// Canonical factor IDs. Config weights, advisory payloads and readings all
// key factors by these. The first four come from the area feed; the rest
// are computed locally.
const (
	FactorCrime        = "crime_index"
	FactorLighting     = "lighting"
	FactorDensity      = "population_density"
	FactorProximity    = "emergency_proximity"
	FactorTimeOfDay    = "time_of_day"
	FactorConnectivity = "connectivity"
	FactorBattery      = "battery"
)

// SafetyFactor is one weighted component of a safety reading. Weight is the
// normalized weight actually applied in the weighted sum; an unavailable
// factor carries weight 0 and its value is the fallback estimate.
type SafetyFactor struct {
	ID          string
	Value       float64 // 0-100
	Weight      float64 // 0-1 after renormalization
	Trend       Trend
	Source      FactorSource
	Unavailable bool
}

// SafetyReading is one computed, timestamped safety assessment for a
// location. It is always produced, even when every external source failed.
type SafetyReading struct {
	Timestamp    time.Time
	OverallScore int // 0-100
	Confidence   int // 20-95
	Factors      []SafetyFactor
	RiskLevel    RiskLevel

	// Degraded marks readings computed with at least one factor excluded.
	Degraded bool
	// LowConfidence marks readings whose confidence fell below the badge
	// threshold; the UI surfaces these with a warning badge.
	LowConfidence bool
}

// Clone returns a copy whose factor slice is independent of the receiver.
func (r SafetyReading) Clone() SafetyReading {
	out := r
	out.Factors = append([]SafetyFactor(nil), r.Factors...)
	return out
}
