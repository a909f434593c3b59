// Package queue spools audit journal entries between the alert machine
// and the durable history writer.
//
// The spool keeps database write latency out of the emergency path:
// producers enqueue without blocking and the writer pool drains in the
// background. A full spool drops entries rather than stalling a
// lifecycle transition.
package queue

import (
	"context"
	"sync"

	"github.com/guardiansafety/aegis/internal/adapters/history"
	"github.com/guardiansafety/aegis/pkg/metrics"
)

// Default spool configuration constants.
const (
	defaultCapacity   = 4096
	defaultBufferSize = 4096
)

// Entry is the payload type flowing through the spool. Reusing the
// history row type keeps producers and the writer aligned.
type Entry = history.Entry

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an entry to the spool.
	// Returns false if the spool is full and the entry was not enqueued.
	Enqueue(ctx context.Context, e Entry) bool

	// Dequeue returns a channel that receives entries as they become
	// available. The channel is closed when the spool is closed.
	Dequeue(ctx context.Context) <-chan Entry

	// Len returns the current number of spooled entries.
	Len(ctx context.Context) int

	// Close gracefully shuts down the spool.
	// After closing, no new entries can be enqueued and the dequeue
	// channel is closed once drained.
	Close() error

	// IsClosed returns true if the spool has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	entries    chan Entry
	capacity   int
	bufferSize int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory spool with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultCapacity,
		bufferSize: defaultBufferSize,
	}

	// Apply all options
	for _, opt := range opts {
		opt(q)
	}

	q.entries = make(chan Entry, q.bufferSize)

	metrics.UpdateJournalDepth(0)

	return q
}

// Enqueue adds an entry to the spool.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Entry) bool { //nolint:gocritic // hugeParam: Entry must be passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordJournalDropped("closed")
		return false
	}

	if len(q.entries) >= q.capacity {
		metrics.RecordJournalDropped("capacity_exceeded")
		return false
	}

	select {
	case q.entries <- e:
		metrics.RecordJournalEnqueued()
		metrics.UpdateJournalDepth(len(q.entries))
		return true
	case <-ctx.Done():
		metrics.RecordJournalDropped("context_cancelled")
		return false
	default:
		metrics.RecordJournalDropped("spool_full")
		return false
	}
}

// Dequeue returns a channel that receives entries as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Entry {
	out := make(chan Entry)
	go func() {
		defer close(out)
		for entry := range q.entries {
			select {
			case out <- entry:
				metrics.UpdateJournalDepth(len(q.entries))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of spooled entries.
func (q *InMemoryQueue) Len(_ context.Context) int {
	depth := len(q.entries)
	metrics.UpdateJournalDepth(depth)
	return depth
}

// Close gracefully shuts down the spool. Buffered entries remain
// readable until drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // already closed
	}

	close(q.entries)
	q.closed = true

	return nil
}

// IsClosed returns true if the spool has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
