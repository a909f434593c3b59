// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/guardiansafety/aegis/internal/domain/alert"
)

// CountdownDependencies defines the interface for countdown operations.
type CountdownDependencies interface {
	StartCountdown(ctx context.Context, req alert.TriggerRequest) (alert.Countdown, error)
	CancelCountdown(ctx context.Context, id string) bool
	Countdowns(ctx context.Context) []alert.Countdown
}

// CountdownHandler handles countdown requests.
type CountdownHandler struct {
	deps CountdownDependencies
}

// NewCountdownHandler creates a new countdown handler.
func NewCountdownHandler(deps CountdownDependencies) *CountdownHandler {
	return &CountdownHandler{deps: deps}
}

// HandleCountdowns handles POST /countdowns and GET /countdowns requests.
func (h *CountdownHandler) HandleCountdowns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleStart(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *CountdownHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_countdown"
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	cd, err := h.deps.StartCountdown(r.Context(), req.toTrigger())
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toCountdownPayload(cd))
}

func (h *CountdownHandler) handleList(w http.ResponseWriter, r *http.Request) {
	countdowns := h.deps.Countdowns(r.Context())
	out := make([]countdownPayload, 0, len(countdowns))
	for _, cd := range countdowns {
		out = append(out, toCountdownPayload(cd))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleCancelCountdown handles POST /countdowns/{id}/cancel requests.
func (h *CountdownHandler) HandleCancelCountdown(w http.ResponseWriter, r *http.Request) {
	const op = "api.cancel_countdown"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/countdowns/")
	id, sub, _ := strings.Cut(path, "/")
	if id == "" || sub != "cancel" {
		http.NotFound(w, r)
		return
	}
	if !h.deps.CancelCountdown(r.Context(), id) {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, cancelledResponse{Cancelled: true})
}
