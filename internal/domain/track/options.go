// Package track manages the device location stream lifecycle.
package track

import (
	"time"

	"github.com/guardiansafety/aegis/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithNormalInterval sets the emission cadence for normal mode.
func WithNormalInterval(interval time.Duration) Option {
	return func(t *Tracker) {
		if interval > 0 {
			t.normalInterval = interval
		}
	}
}

// WithEmergencyInterval sets the emission cadence for emergency mode.
func WithEmergencyInterval(interval time.Duration) Option {
	return func(t *Tracker) {
		if interval > 0 {
			t.emergencyInterval = interval
		}
	}
}

// WithAccuracyCeiling sets the accuracy radius above which fixes are
// rejected.
func WithAccuracyCeiling(meters float64) Option {
	return func(t *Tracker) {
		if meters > 0 {
			t.accuracyCeiling = meters
		}
	}
}

// WithStreamBuffer sets the per-stream update channel capacity.
func WithStreamBuffer(size int) Option {
	return func(t *Tracker) {
		if size > 0 {
			t.streamBuffer = size
		}
	}
}

// WithLogger sets the tracker's logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}
