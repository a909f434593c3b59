// Package repository defines the area risk index interface and errors.
package repository

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guardiansafety/aegis/pkg/metrics"
)

// Treap-based, in-memory Index implementation.
//
// Ordering: score ASC, then areaID ASC (deterministic). "less" means ranks
// earlier, so an in-order traversal walks the areas from most to least
// dangerous.

// Scores live on the 0-100 scale used by safety readings; anything outside
// is clamped before it enters the tree.
const (
	scoreFloor   = 0
	scoreCeiling = 100
)

func clampScore(score int) int {
	if score < scoreFloor {
		return scoreFloor
	}
	if score > scoreCeiling {
		return scoreCeiling
	}
	return score
}

// record stores the latest observation held for an area.
type record struct {
	score      int
	latitude   float64
	longitude  float64
	riskLevel  string
	confidence int
	degraded   bool
	scoredAt   time.Time
}

// Snapshot represents an immutable view of the ranked area state.
type Snapshot struct {
	// Rank and score in O(1) for reads
	RankByArea  map[string]int
	ScoreByArea map[string]int

	// Riskiest-areas cache up to M items, most dangerous first (M ≪ N_total)
	TopCache []Entry
}

// treap node
type node struct {
	id    string
	score int
	prio  uint64
	left  *node
	right *node
}

// less returns true if (aScore, aID) should appear before (bScore, bID)
// in the risk ordering (more dangerous areas first).
func less(aScore int, aID string, bScore int, bID string) bool {
	if aScore != bScore {
		return aScore < bScore // lower score ranks earlier
	}
	return aID < bID // tie-breaker by area key asc
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	return y
}

// priorityFor derives a heap priority from a clamped score and area key.
// Riskier areas get higher priorities so they stay near the root, and the
// key hash spreads the many equal scores to keep the tree from degrading
// into a list.
func priorityFor(score int, areaID string) uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(areaID))
	return uint64(scoreCeiling-score)<<32 | uint64(h.Sum32())
}

func insert(n *node, id string, score int) *node {
	if n == nil {
		return &node{id: id, score: score, prio: priorityFor(score, id)}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	return n
}

func deleteNode(n *node, id string, score int) *node {
	if n == nil {
		return nil
	}
	if score == n.score && id == n.id {
		// Merge children by rotating the higher priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	} else if less(score, id, n.score, n.id) {
		n.left = deleteNode(n.left, id, score)
	} else {
		n.right = deleteNode(n.right, id, score)
	}
	return n
}

// entryFor materializes the stored record for an area into an Entry with no
// rank assigned yet.
func entryFor(areaID string, rec record) Entry {
	return Entry{
		AreaID:     areaID,
		Latitude:   rec.latitude,
		Longitude:  rec.longitude,
		Score:      rec.score,
		RiskLevel:  rec.riskLevel,
		Confidence: rec.confidence,
		Degraded:   rec.degraded,
		ScoredAt:   rec.scoredAt,
	}
}

// collectTopN appends up to limit entries in risk order (lowest scores
// first). In-order traversal follows the less() ordering, so ties resolve
// by area key ascending.
func collectTopN(n *node, limit int, records map[string]record, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, records, out)
	if len(*out) < limit {
		if rec, exists := records[n.id]; exists {
			*out = append(*out, entryFor(n.id, rec))
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, records, out)
	}
}

// collectAll appends all entries in risk order (lowest scores first).
func collectAll(n *node, byID map[string]record, out *[]Entry) {
	if n == nil {
		return
	}
	collectAll(n.left, byID, out)
	if rec, ok := byID[n.id]; ok {
		*out = append(*out, entryFor(n.id, rec))
	}
	collectAll(n.right, byID, out)
}

type TreapIndex struct {
	mu                  sync.RWMutex
	root                *node
	byID                map[string]record
	snapshotInterval    time.Duration // How often to publish read snapshots
	topCacheSize        int           // Maximum riskiest-area rows kept per snapshot
	freshnessWindow     time.Duration // How long an unrefreshed area stays ranked
	maintenanceInterval time.Duration // Cadence of eviction sweeps and gauge refreshes

	// snapshot is an atomic pointer to the last published Snapshot
	snapshot atomic.Pointer[Snapshot]

	// Background goroutine management
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewTreapIndex constructs a treap index with configuration options.
func NewTreapIndex(ctx context.Context, opts ...Option) *TreapIndex {
	x := &TreapIndex{
		snapshotInterval:    1 * time.Second,
		topCacheSize:        500,
		freshnessWindow:     30 * time.Minute,
		maintenanceInterval: 5 * time.Second,
		byID:                make(map[string]record),
	}

	for _, opt := range opts {
		opt(x)
	}

	x.stopChan = make(chan struct{})
	x.startPeriodicSnapshots(ctx)
	x.startMaintenance(ctx)

	return x
}

// startPeriodicSnapshots starts a background goroutine that publishes
// snapshots at the configured interval.
func (x *TreapIndex) startPeriodicSnapshots(ctx context.Context) {
	x.wg.Add(1)
	go func() {
		defer x.wg.Done()
		ticker := time.NewTicker(x.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-x.stopChan:
				return
			case <-ticker.C:
				x.publishSnapshot()
			}
		}
	}()
}

// startMaintenance starts a background goroutine that evicts stale areas
// and refreshes gauges at the maintenance interval.
func (x *TreapIndex) startMaintenance(ctx context.Context) {
	x.wg.Add(1)
	go func() {
		defer x.wg.Done()
		ticker := time.NewTicker(x.maintenanceInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-x.stopChan:
				return
			case <-ticker.C:
				x.evictStale()
				x.refreshGauges()
			}
		}
	}()
}

// publishSnapshot rebuilds and publishes a new snapshot.
func (x *TreapIndex) publishSnapshot() {
	start := time.Now()
	x.mu.RLock()
	x.publishSnapshotInternal()
	x.mu.RUnlock()

	metrics.RecordIndexSnapshotDuration(float64(time.Since(start).Milliseconds()))
	metrics.RecordIndexSnapshotPublished()
}

// publishSnapshotInternal rebuilds and publishes a new snapshot (assumes
// the lock is held).
func (x *TreapIndex) publishSnapshotInternal() {
	// Riskiest-area cache for fast dashboard reads
	topCache := make([]Entry, 0, x.topCacheSize)
	collectTopN(x.root, x.topCacheSize, x.byID, &topCache)

	rankByArea := make(map[string]int, len(x.byID))
	scoreByArea := make(map[string]int, len(x.byID))

	// Collect everything to compute global ranks
	all := make([]Entry, 0, len(x.byID))
	collectAll(x.root, x.byID, &all)
	assignRanksWithTies(all)

	for _, entry := range all {
		rankByArea[entry.AreaID] = entry.Rank
		scoreByArea[entry.AreaID] = entry.Score
	}

	for i := range topCache {
		if rank, exists := rankByArea[topCache[i].AreaID]; exists {
			topCache[i].Rank = rank
		}
	}

	x.snapshot.Store(&Snapshot{
		RankByArea:  rankByArea,
		ScoreByArea: scoreByArea,
		TopCache:    topCache,
	})
}

// CurrentSnapshot returns the most recently published snapshot, or nil
// before the first publish.
func (x *TreapIndex) CurrentSnapshot() *Snapshot {
	return x.snapshot.Load()
}

// evictStale drops areas whose last observation fell outside the freshness
// window.
func (x *TreapIndex) evictStale() {
	if x.freshnessWindow <= 0 {
		return
	}
	cutoff := time.Now().Add(-x.freshnessWindow)

	x.mu.Lock()
	var stale []string
	for id, rec := range x.byID {
		if rec.scoredAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		x.root = deleteNode(x.root, id, x.byID[id].score)
		delete(x.byID, id)
	}
	x.mu.Unlock()

	metrics.RecordIndexEvictions(len(stale))
}

// refreshGauges updates the tracked-areas gauge.
func (x *TreapIndex) refreshGauges() {
	x.mu.RLock()
	tracked := len(x.byID)
	x.mu.RUnlock()

	metrics.UpdateIndexedAreas(tracked)
}

// Close gracefully shuts down the background goroutines.
func (x *TreapIndex) Close() error {
	select {
	case <-x.stopChan:
		// Channel already closed
	default:
		close(x.stopChan)
	}
	x.wg.Wait()
	return nil
}

// Update implements Index.Update with O(log n) expected time.
func (x *TreapIndex) Update(ctx context.Context, areaID string, score int) (bool, error) {
	return x.UpdateWithMeta(ctx, areaID, score, Observation{})
}

// UpdateWithMeta implements Index.UpdateWithMeta with O(log n) expected
// time. The latest observation always wins: scores move down as readily as
// they move up.
func (x *TreapIndex) UpdateWithMeta(ctx context.Context, areaID string, score int, meta Observation) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordIndexUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	ns := clampScore(score)
	if meta.ScoredAt.IsZero() {
		meta.ScoredAt = time.Now()
	}

	firstSighting := false

	x.mu.Lock()
	if old, ok := x.byID[areaID]; ok {
		if old.score != ns { // reposition only when the score moved
			x.root = deleteNode(x.root, areaID, old.score)
			x.root = insert(x.root, areaID, ns)
		}
	} else {
		firstSighting = true
		x.root = insert(x.root, areaID, ns)
	}
	x.byID[areaID] = record{
		score:      ns,
		latitude:   meta.Latitude,
		longitude:  meta.Longitude,
		riskLevel:  meta.RiskLevel,
		confidence: meta.Confidence,
		degraded:   meta.Degraded,
		scoredAt:   meta.ScoredAt,
	}
	x.mu.Unlock()

	// Update metrics outside the lock
	metrics.RecordIndexUpdate()
	if firstSighting {
		metrics.UpdateIndexedAreas(x.Count(ctx))
	}

	return firstSighting, nil
}

// RankOf returns the current risk rank and score for an area. Ranks are
// dense: tied scores share a rank and the next distinct score takes the
// following one.
func (x *TreapIndex) RankOf(ctx context.Context, areaID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordIndexQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	x.mu.RLock()
	defer x.mu.RUnlock()

	if _, ok := x.byID[areaID]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}

	// Collect all entries and rank them exactly the way Riskiest does
	all := make([]Entry, 0, len(x.byID))
	collectAll(x.root, x.byID, &all)
	sortEntries(all)
	assignRanksWithTies(all)

	for _, entry := range all {
		if entry.AreaID == areaID {
			return entry, nil
		}
	}

	return Entry{}, ErrNotFound
}

// Riskiest returns up to n areas ordered from the lowest safety score
// upward.
func (x *TreapIndex) Riskiest(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordIndexQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]Entry, 0, n)
	collectTopN(x.root, n, x.byID, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the total number of tracked areas.
func (x *TreapIndex) Count(ctx context.Context) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byID)
}

// sortEntries sorts entries by score ascending and areaID ascending to
// match the tree ordering.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score < entries[j].Score
		}
		return entries[i].AreaID < entries[j].AreaID
	})
}

// assignRanksWithTies assigns dense ranks over a risk-ordered slice: areas
// with the same score share a rank and the next distinct score takes the
// next consecutive rank.
func assignRanksWithTies(entries []Entry) {
	if len(entries) == 0 {
		return
	}

	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank

		sameScoreCount := 1
		for j := i + 1; j < len(entries) && entries[j].Score == entries[i].Score; j++ {
			entries[j].Rank = currentRank
			sameScoreCount++
		}

		currentRank++
		i += sameScoreCount - 1
	}
}
