package advisory

import (
	"context"
	"math"
	"time"

	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/internal/domain/scoring"
)

// staticConfidence is the confidence attached to heuristic assessments.
// It sits deliberately low: the clock is a weak safety signal.
const staticConfidence = 40

// StaticFeed derives an assessment from the local time and coordinates
// alone. It never fails, making it the fallback when live feeds do.
type StaticFeed struct{}

// NewStaticFeed creates the heuristic feed.
func NewStaticFeed() *StaticFeed {
	return &StaticFeed{}
}

// AreaAssessment computes the time-of-day heuristic. The same coordinates
// and hour always produce the same values.
func (f *StaticFeed) AreaAssessment(_ context.Context, lat, lng float64, at time.Time) (scoring.Assessment, error) {
	hour := at.Hour()
	jitter := coordJitter(lat, lng)

	var crime, lighting, density, proximity float64
	switch {
	case hour >= 7 && hour < 18: // daytime
		crime, lighting, density, proximity = 75, 90, 75, 65
	case hour >= 18 && hour < 22: // evening
		crime, lighting, density, proximity = 60, 65, 60, 60
	default: // night
		crime, lighting, density, proximity = 45, 40, 35, 55
	}

	return scoring.Assessment{
		Factors: map[string]float64{
			model.FactorCrime:     clamp(crime + jitter),
			model.FactorLighting:  clamp(lighting + jitter),
			model.FactorDensity:   clamp(density + jitter),
			model.FactorProximity: clamp(proximity + jitter),
		},
		Confidence: staticConfidence,
	}, nil
}

// coordJitter maps coordinates to a stable offset in [-5, +5] so nearby
// areas do not all score identically.
func coordJitter(lat, lng float64) float64 {
	h := int64(math.Round(lat*1000))*31 + int64(math.Round(lng*1000))
	if h < 0 {
		h = -h
	}
	return float64(h%11) - 5
}
