// Package dedupe guards alert triggering against request replays.
//
// A client in an emergency retries aggressively over flaky connectivity,
// so the same trigger request can arrive more than once. Each request
// carries a client-chosen request ID; the guard claims the ID on first
// sight and binds it to the alert that trigger produced, so replays are
// answered with the original alert instead of raising a duplicate.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Default bound on remembered request IDs.
const defaultMaxSize = 10000

// Guard records claimed trigger request IDs for at-most-once triggering.
type Guard interface {
	// SeenAndRecord atomically checks whether id was claimed and claims
	// it if not. For a replayed id it returns the alert ID a previous
	// Bind attached, which is empty while the first attempt is still in
	// flight.
	SeenAndRecord(ctx context.Context, id string) (alertID string, seen bool)

	// Bind attaches the alert a claimed id produced. Replays of id then
	// surface that alert.
	Bind(ctx context.Context, id, alertID string)

	// Unrecord forgets a claimed id, allowing a retry. This should only
	// be used when the trigger failed after the claim.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// node is a single claim in the eviction list.
type node struct {
	id      string
	alertID string
	next    *node
}

// reset clears the node state for reuse.
func (n *node) reset() {
	n.id = ""
	n.alertID = ""
	n.next = nil
}

// inMemoryGuard implements Guard with a map plus a linked list for LIFO
// eviction in bounded mode. Unbounded mode (maxSize <= 0) keeps every
// claim and never evicts.
type inMemoryGuard struct {
	mu       sync.RWMutex
	seen     map[string]*node
	head     *node // most recently claimed
	maxSize  int   // 0 or negative = unbounded
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryGuard creates a new in-memory guard with configuration options.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &inMemoryGuard{
		maxSize: defaultMaxSize,
	}

	// Apply all options
	for _, opt := range opts {
		opt(g)
	}

	g.seen = make(map[string]*node)

	if g.maxSize > 0 {
		g.nodePool = sync.Pool{
			New: func() interface{} {
				return &node{}
			},
		}
	}

	return g
}

// SeenAndRecord atomically checks whether id was claimed and claims it if
// not. Returns the bound alert ID and true for a replay, or empty and
// false for a fresh claim.
func (g *inMemoryGuard) SeenAndRecord(_ context.Context, id string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n, exists := g.seen[id]; exists {
		return n.alertID, true
	}

	var n *node
	if g.maxSize > 0 {
		// Bounded mode: evict before adding the new claim
		if len(g.seen) >= g.maxSize {
			g.evictOldest()
		}

		n = g.nodePool.Get().(*node)
		n.id = id
		n.next = g.head
		g.head = n
	} else {
		n = &node{id: id}
	}

	g.seen[id] = n
	g.size.Add(1)
	return "", false
}

// Bind attaches the alert a claimed id produced.
func (g *inMemoryGuard) Bind(_ context.Context, id, alertID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n, exists := g.seen[id]; exists {
		n.alertID = alertID
	}
}

// Unrecord forgets a claimed id, allowing it to be retried.
func (g *inMemoryGuard) Unrecord(_ context.Context, id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, exists := g.seen[id]
	if !exists {
		return
	}
	delete(g.seen, id)
	g.size.Add(-1)

	if g.maxSize <= 0 {
		return
	}

	// Bounded mode: unlink and return the node to the pool
	if g.head == n {
		g.head = n.next
	} else {
		current := g.head
		for current != nil && current.next != n {
			current = current.next
		}
		if current != nil {
			current.next = n.next
		}
	}

	n.reset()
	g.nodePool.Put(n)
}

// evictOldest removes the oldest claim (tail of the list). Must be called
// with g.mu held.
func (g *inMemoryGuard) evictOldest() {
	if len(g.seen) == 0 || g.head == nil {
		return
	}

	// Single node: the head is also the tail
	if g.head.next == nil {
		tail := g.head
		delete(g.seen, tail.id)
		tail.reset()
		g.nodePool.Put(tail)
		g.head = nil
		g.size.Add(-1)
		return
	}

	// Walk to the second-to-last node
	prev := g.head
	for prev.next.next != nil {
		prev = prev.next
	}

	tail := prev.next
	prev.next = nil
	delete(g.seen, tail.id)
	tail.reset()
	g.nodePool.Put(tail)
	g.size.Add(-1)
}

// Size returns the current number of remembered claims.
func (g *inMemoryGuard) Size() int64 {
	return g.size.Load()
}
