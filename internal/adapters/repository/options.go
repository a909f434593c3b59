// Package repository defines the area risk index interface and errors.
package repository

import "time"

// Option applies a configuration option to the TreapIndex.
type Option func(*TreapIndex)

// WithSnapshotInterval sets how often the index publishes read snapshots.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(x *TreapIndex) {
		if interval > 0 {
			x.snapshotInterval = interval
		}
	}
}

// WithTopCacheSize caps the riskiest-area cache carried by each snapshot.
func WithTopCacheSize(size int) Option {
	return func(x *TreapIndex) {
		if size > 0 {
			x.topCacheSize = size
		}
	}
}

// WithFreshnessWindow sets how long an unrefreshed area stays ranked before
// the maintenance sweep evicts it. A zero window disables eviction.
func WithFreshnessWindow(window time.Duration) Option {
	return func(x *TreapIndex) {
		if window >= 0 {
			x.freshnessWindow = window
		}
	}
}

// WithMaintenanceInterval sets the cadence of eviction sweeps and gauge
// refreshes.
func WithMaintenanceInterval(interval time.Duration) Option {
	return func(x *TreapIndex) {
		if interval > 0 {
			x.maintenanceInterval = interval
		}
	}
}
