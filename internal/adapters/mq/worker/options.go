// Package worker drains spooled audit entries into the durable history
// store.
package worker

import (
	"github.com/guardiansafety/aegis/pkg/logger"
)

// Option applies a configuration option to the SinkWorker.
type Option func(*SinkWorker)

// WithName sets the writer name for identification and logging.
func WithName(name string) Option {
	return func(w *SinkWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the writer.
func WithLogger(l logger.Logger) Option {
	return func(w *SinkWorker) {
		if l != nil {
			w.logger = l
		}
	}
}
