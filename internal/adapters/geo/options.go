// Package geo provides positioning sources implementing track.Provider.
package geo

import (
	"time"

	"github.com/guardiansafety/aegis/internal/domain/track"
)

// SimOption applies a configuration option to the SimProvider.
type SimOption func(*SimProvider)

// WithPermission sets the initial permission state.
func WithPermission(perm track.Permission) SimOption {
	return func(p *SimProvider) {
		if perm != "" {
			p.permission = perm
		}
	}
}

// WithStart sets the walk's starting coordinates.
func WithStart(lat, lng float64) SimOption {
	return func(p *SimProvider) {
		p.lat = lat
		p.lng = lng
	}
}

// WithStep sets the per-advance coordinate delta.
func WithStep(dLat, dLng float64) SimOption {
	return func(p *SimProvider) {
		p.stepLat = dLat
		p.stepLng = dLng
	}
}

// WithAccuracy sets the accuracy radius stamped on emitted fixes.
func WithAccuracy(meters float64) SimOption {
	return func(p *SimProvider) {
		if meters > 0 {
			p.accuracy = meters
		}
	}
}

// WithInterval sets the walk emission interval.
func WithInterval(interval time.Duration) SimOption {
	return func(p *SimProvider) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithClock sets the time source for emitted fixes.
func WithClock(now func() time.Time) SimOption {
	return func(p *SimProvider) {
		if now != nil {
			p.now = now
		}
	}
}
