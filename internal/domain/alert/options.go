package alert

import (
	"time"

	"github.com/guardiansafety/aegis/pkg/logger"
)

// Option configures a Machine.
type Option func(*Machine)

// WithVerifier installs the cancellation password verifier. Without one,
// password-protected alerts cannot be cancelled.
func WithVerifier(v Verifier) Option {
	return func(m *Machine) {
		if v != nil {
			m.verifier = v
		}
	}
}

// WithRecorder installs the audit trail recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Machine) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithNotifier installs the local notification collaborator.
func WithNotifier(n Notifier) Option {
	return func(m *Machine) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithRetrySchedule replaces the delivery backoff schedule. Each entry is
// the wait before one retry; the total budget is one initial attempt plus
// one retry per entry.
func WithRetrySchedule(schedule ...time.Duration) Option {
	return func(m *Machine) {
		if len(schedule) > 0 {
			m.retrySchedule = append([]time.Duration(nil), schedule...)
		}
	}
}

// WithTrailLimit caps the number of samples kept on an alert's trail.
func WithTrailLimit(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.trailLimit = n
		}
	}
}

// WithClock sets the time source. Tests inject a fixed clock.
func WithClock(fn func() time.Time) Option {
	return func(m *Machine) {
		if fn != nil {
			m.now = fn
		}
	}
}

// WithLogger sets the logger for machine events.
func WithLogger(l logger.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}
