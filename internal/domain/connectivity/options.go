package connectivity

import (
	"time"

	"github.com/guardiansafety/aegis/pkg/logger"
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithPollInterval sets the evaluation schedule.
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithPingTimeout bounds each backend ping attempt.
func WithPingTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.pingTimeout = d
		}
	}
}

// WithPingRetries sets how many additional ping attempts follow a failure.
func WithPingRetries(n int) Option {
	return func(m *Monitor) {
		if n >= 0 {
			m.pingRetries = n
		}
	}
}

// WithSubscriberBuffer sets the per-subscriber channel capacity.
func WithSubscriberBuffer(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.subBuffer = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}
