// Package advisory implements the scoring engine's area feed port.
//
// The live feed asks an LLM for a structured area assessment; the static
// feed derives one from the clock and coordinates alone. Each feed returns
// per-factor values on the same 0-100 scale the scorer consumes.
package advisory

import (
	"context"
	"time"

	"github.com/guardiansafety/aegis/internal/domain/scoring"
	"github.com/guardiansafety/aegis/pkg/logger"
	"github.com/guardiansafety/aegis/pkg/metrics"
)

// Default guard configuration constants.
const (
	defaultCallTimeout = 5 * time.Second
	defaultRetries     = 1
)

// Guard decorates a feed with a per-call timeout and a bounded retry.
type Guard struct {
	inner   scoring.Feed
	timeout time.Duration
	retries int
	logger  logger.Logger
}

// NewGuard wraps a feed with call bounds.
func NewGuard(inner scoring.Feed, opts ...GuardOption) *Guard {
	g := &Guard{
		inner:   inner,
		timeout: defaultCallTimeout,
		retries: defaultRetries,
		logger:  logger.Get().Named("advisory"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// AreaAssessment calls the wrapped feed, once plus the configured retries,
// each attempt bounded by the guard timeout.
func (g *Guard) AreaAssessment(ctx context.Context, lat, lng float64, at time.Time) (scoring.Assessment, error) {
	var lastErr error

	for attempt := 0; attempt <= g.retries; attempt++ {
		start := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		a, err := g.inner.AreaAssessment(callCtx, lat, lng, at)
		cancel()

		metrics.RecordAdvisoryLatency(float64(time.Since(start).Milliseconds()))

		if err == nil {
			metrics.RecordAdvisoryCall("ok")
			return a, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			// The caller is gone; retrying cannot help.
			metrics.RecordAdvisoryCall("cancelled")
			break
		}

		metrics.RecordAdvisoryCall("error")
		g.logger.Warn(ctx, "advisory call failed",
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}

	metrics.RecordErrorByComponent("advisory", "exhausted")
	return scoring.Assessment{}, lastErr
}
