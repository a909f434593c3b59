// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/guardiansafety/aegis/internal/domain/model"
	"github.com/guardiansafety/aegis/internal/domain/types"
)

// AreaRank mirrors the read shape returned by area risk queries.
type AreaRank = types.AreaRank

// Bounds for GET /safety/areas listings.
const (
	defaultAreaLimit = 10
	maxAreaLimit     = 100
)

// SafetyDependencies defines the interface for safety scoring operations.
type SafetyDependencies interface {
	Score(ctx context.Context, lat, lng float64) model.SafetyReading
	CurrentLocation(ctx context.Context) (model.LocationSample, error)
	RiskiestAreas(ctx context.Context, n int) ([]AreaRank, error)
	AreaRank(ctx context.Context, lat, lng float64) (AreaRank, error)
}

// SafetyHandler handles safety score and location requests.
type SafetyHandler struct {
	deps SafetyDependencies
}

// NewSafetyHandler creates a new safety handler.
func NewSafetyHandler(deps SafetyDependencies) *SafetyHandler {
	return &SafetyHandler{deps: deps}
}

// HandleScore handles GET /safety/score?lat=&lng= requests. Without query
// coordinates the score is computed at the device's current fix.
func (h *SafetyHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.safety_score"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	lat, lng, err := h.coordinates(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	reading := h.deps.Score(r.Context(), lat, lng)
	writeJSON(w, http.StatusOK, toReadingPayload(reading))
}

// HandleLocation handles GET /safety/location requests.
func (h *SafetyHandler) HandleLocation(w http.ResponseWriter, r *http.Request) {
	const op = "api.safety_location"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	fix, err := h.deps.CurrentLocation(r.Context())
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toLocationPayload(fix))
}

// HandleAreas handles GET /safety/areas?limit=N requests, listing tracked
// areas riskiest first.
func (h *SafetyHandler) HandleAreas(w http.ResponseWriter, r *http.Request) {
	const op = "api.safety_areas"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := defaultAreaLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = parsed
	}
	if n > maxAreaLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	areas, err := h.deps.RiskiestAreas(r.Context(), n)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, areas)
}

// HandleAreaRank handles GET /safety/areas/rank?lat=&lng= requests. Without
// query coordinates the rank is looked up at the device's current fix.
func (h *SafetyHandler) HandleAreaRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.safety_area_rank"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	lat, lng, err := h.coordinates(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rank, err := h.deps.AreaRank(r.Context(), lat, lng)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rank)
}

// coordinates resolves the score location from query parameters, falling
// back to the device's current fix when both are absent.
func (h *SafetyHandler) coordinates(r *http.Request) (float64, float64, error) {
	q := r.URL.Query()
	latStr, lngStr := q.Get("lat"), q.Get("lng")
	if latStr == "" && lngStr == "" {
		fix, err := h.deps.CurrentLocation(r.Context())
		if err != nil {
			return 0, 0, err
		}
		return fix.Latitude, fix.Longitude, nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, err
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return 0, 0, err
	}
	p := locationPayload{Latitude: lat, Longitude: lng}
	if err := p.validate(); err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}
