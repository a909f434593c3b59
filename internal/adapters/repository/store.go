// Package repository defines the area risk index interface and errors.
package repository

import (
	"context"
	"time"
)

// Entry represents one ranked row of the area risk index.
type Entry struct {
	Rank       int
	AreaID     string
	Latitude   float64
	Longitude  float64
	Score      int
	RiskLevel  string
	Confidence int
	Degraded   bool
	ScoredAt   time.Time
}

// Observation carries the contextual fields stored alongside an area score.
// A zero ScoredAt is treated as "now".
type Observation struct {
	Latitude   float64
	Longitude  float64
	RiskLevel  string
	Confidence int
	Degraded   bool
	ScoredAt   time.Time
}

// Index provides read/write access to the ranked area state.
type Index interface {
	// Update records the most recent safety score for an area, replacing any
	// earlier observation. Returns true when the area was not tracked before.
	Update(ctx context.Context, areaID string, score int) (bool, error)
	// UpdateWithMeta records the most recent score together with the
	// observation it came from.
	UpdateWithMeta(ctx context.Context, areaID string, score int, meta Observation) (bool, error)

	// RankOf returns the current risk rank and score for an area.
	// Returns ErrNotFound if the area has never been scored.
	RankOf(ctx context.Context, areaID string) (Entry, error)

	// Riskiest returns up to n areas ordered from the lowest safety score
	// upward, so the most dangerous area comes first.
	Riskiest(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of areas tracked by the index.
	Count(ctx context.Context) int
}
