// Package types contains common types used across the application
package types

import "time"

// AreaRank is one row of the area risk index: a scored area together with
// its position in the risk ordering. Rank 1 is the riskiest tracked area,
// so ranks ascend as safety scores ascend.
type AreaRank struct {
	Rank       int       `json:"rank"`
	AreaID     string    `json:"area_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Score      int       `json:"score"`
	RiskLevel  string    `json:"risk_level"`
	Confidence int       `json:"confidence"`
	Degraded   bool      `json:"degraded,omitempty"`
	ScoredAt   time.Time `json:"scored_at"`
}
