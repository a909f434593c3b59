// Package advisory provides area safety assessments for the scoring engine.
package advisory

import (
	"time"

	"github.com/guardiansafety/aegis/pkg/logger"
)

// GuardOption applies a configuration option to the Guard.
type GuardOption func(*Guard)

// WithTimeout sets the per-attempt call timeout.
func WithTimeout(timeout time.Duration) GuardOption {
	return func(g *Guard) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

// WithRetries sets how many extra attempts follow a failed call.
func WithRetries(retries int) GuardOption {
	return func(g *Guard) {
		if retries >= 0 {
			g.retries = retries
		}
	}
}

// WithLogger sets the guard's logger.
func WithLogger(l logger.Logger) GuardOption {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// LLMOption applies a configuration option to the LLMFeed.
type LLMOption func(*LLMFeed)

// WithModel sets the chat model queried for assessments.
func WithModel(m string) LLMOption {
	return func(f *LLMFeed) {
		if m != "" {
			f.model = m
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) LLMOption {
	return func(f *LLMFeed) {
		if t >= 0 {
			f.temperature = t
		}
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) LLMOption {
	return func(f *LLMFeed) {
		if n > 0 {
			f.maxTokens = n
		}
	}
}
