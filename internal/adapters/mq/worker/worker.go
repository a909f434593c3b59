// Package worker drains spooled audit entries into the durable history
// store.
//
// Entries that fail to land are logged and dropped, never retried: the
// audit trail is best-effort by contract and a wedged database must not
// back the spool up into the alert machine.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/guardiansafety/aegis/internal/adapters/history"
	"github.com/guardiansafety/aegis/internal/adapters/mq/queue"
	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/pkg/logger"
	"github.com/guardiansafety/aegis/pkg/metrics"
)

// Default writer configuration constants.
const (
	// sqlite serializes writers; a single drain keeps inserts ordered.
	defaultWriterCount    = 1
	depthSampleInterval   = 5 * time.Second
	writerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Entry is what writers read off the spool.
type Entry = queue.Entry

// Sink receives drained entries. history.Store satisfies it.
type Sink interface {
	RecordTransition(ctx context.Context, alertID string, from, to model.AlertStatus, actorID string, at time.Time) error
	RecordResponse(ctx context.Context, alertID string, r model.Response) error
}

// Queue defines how writers receive entries.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Entry
	Len(ctx context.Context) int
}

// Worker drains entries until stopped.
type Worker interface {
	// Run starts the drain loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// SinkWorker implements Worker by writing entries to a Sink.
type SinkWorker struct {
	queue Queue
	sink  Sink
	name  string

	// Shutdown control
	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewSinkWorker creates a new writer with configuration options.
func NewSinkWorker(queue Queue, sink Sink, opts ...Option) *SinkWorker {
	w := &SinkWorker{
		queue:    queue,
		sink:     sink,
		name:     "writer", // default name
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("journal"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with writer name if not already set
	if w.name != "writer" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the drain loop.
func (w *SinkWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	entryChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case entry, ok := <-entryChan:
			if !ok {
				// Spool closed and drained, writer should stop
				return
			}

			if err := w.drain(ctx, entry); err != nil {
				w.logger.Error(ctx, "journal entry lost",
					logger.String("alertID", entry.AlertID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the writer.
func (w *SinkWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	w.stopOnce.Do(func() { close(w.shutdown) })

	// Wait for the writer to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// drain writes a single entry to the sink.
func (w *SinkWorker) drain(ctx context.Context, e Entry) error { //nolint:gocritic // hugeParam: Entry must be passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordJournalDrainLatency(float64(time.Since(start).Milliseconds()))
	}()

	var err error
	switch e.Kind {
	case history.EntryTransition:
		err = w.sink.RecordTransition(ctx, e.AlertID, e.From, e.To, e.Actor, e.OccurredAt)
	case history.EntryResponse:
		err = w.sink.RecordResponse(ctx, e.AlertID, model.Response{
			ResponderID:   e.ResponderID,
			ResponderName: e.ResponderName,
			Kind:          e.ResponseKind,
			Timestamp:     e.OccurredAt,
			Location:      e.Location,
		})
	default:
		metrics.RecordErrorByComponent("journal", "unknown_kind")
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	if err != nil {
		metrics.RecordErrorByComponent("journal", "write_failed")
		return err
	}

	metrics.RecordJournalDrained()
	return nil
}

// Pool manages the writer set draining one spool.
type Pool struct {
	writers []*SinkWorker
	queue   Queue
	sink    Sink

	// Shutdown control
	stopOnce sync.Once
	shutdown chan struct{}

	// Logging
	logger logger.Logger
}

// NewPool creates a writer pool. Counts below one fall back to the
// single-writer default; raise it only for sinks that tolerate
// concurrent inserts.
func NewPool(writerCount int, queue Queue, sink Sink) *Pool {
	if writerCount < 1 {
		writerCount = defaultWriterCount
	}

	pool := &Pool{
		writers:  make([]*SinkWorker, writerCount),
		queue:    queue,
		sink:     sink,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("journal-pool"),
	}

	for i := 0; i < writerCount; i++ {
		pool.writers[i] = NewSinkWorker(
			queue,
			sink,
			WithName("writer-"+strconv.Itoa(i)),
		)
	}

	return pool
}

// Start starts all writers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.writers {
		go w.Run(ctx)
	}

	// Keep the depth gauge fresh while traffic is idle
	go p.sampleDepth(ctx)
}

// sampleDepth periodically republishes the spool depth gauge.
func (p *Pool) sampleDepth(ctx context.Context) {
	ticker := time.NewTicker(depthSampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.queue.Len(ctx)
		}
	}
}

// Stop gracefully stops all writers without closing the spool.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.shutdown) })

	ctx, cancel := context.WithTimeout(context.Background(), writerShutdownTimeout)
	defer cancel()

	for _, w := range p.writers {
		_ = w.Shutdown(ctx)
	}
}

// Shutdown closes the spool and waits for writers to flush whatever is
// still buffered.
func (p *Pool) Shutdown(ctx context.Context) error {
	// Close the spool first so writers drain the remainder and stop
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing spool", logger.Error(err))
		}
	}

	p.stopOnce.Do(func() { close(p.shutdown) })

	// Wait for all writers to finish or context to timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.writers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "writer shutdown timed out", logger.Int("writer_id", i))
		}
	}

	return nil
}
