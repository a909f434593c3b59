// Package model contains domain models passed between layers.
package model

import "time"

// LocationSample is a single validated device fix. Samples are immutable
// once created; consumers receive copies, never shared pointers.
type LocationSample struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64 // meters, non-negative
	Heading   *float64
	Speed     *float64
	Timestamp time.Time
}

// Stale reports whether the sample is older than the staleness window and
// must not be used for scoring or alert-location updates.
func (s LocationSample) Stale(now time.Time, window time.Duration) bool {
	return now.Sub(s.Timestamp) > window
}

// Clone returns an independent copy, including the optional fields.
func (s LocationSample) Clone() LocationSample {
	out := s
	if s.Heading != nil {
		h := *s.Heading
		out.Heading = &h
	}
	if s.Speed != nil {
		v := *s.Speed
		out.Speed = &v
	}
	return out
}

// TrackingMode selects the sampling cadence of a location stream.
type TrackingMode string

const (
	// ModeNormal samples at the relaxed interval used for ambient display.
	ModeNormal TrackingMode = "normal"
	// ModeEmergency samples at the tight interval used while an alert is active.
	ModeEmergency TrackingMode = "emergency"
)

// Valid reports whether the mode is one of the defined cadences.
func (m TrackingMode) Valid() bool {
	return m == ModeNormal || m == ModeEmergency
}
