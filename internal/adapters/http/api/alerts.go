// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/guardiansafety/aegis/internal/adapters/history"
	"github.com/guardiansafety/aegis/internal/domain/alert"
	"github.com/guardiansafety/aegis/internal/domain/model"
)

// AlertDependencies defines the interface for alert lifecycle operations.
type AlertDependencies interface {
	Trigger(ctx context.Context, requestID string, req alert.TriggerRequest) (model.Alert, error)
	Respond(ctx context.Context, alertID string, r model.Response) (model.Alert, error)
	Cancel(ctx context.Context, alertID, actorID, password string) (model.Alert, error)
	Resolve(ctx context.Context, alertID, actorID string) (model.Alert, error)
	GetAlert(ctx context.Context, alertID string) (model.Alert, error)
	ActiveAlerts(ctx context.Context) []model.Alert
	ReportLocation(ctx context.Context, alertID string, sample model.LocationSample) error
	Timeline(ctx context.Context, alertID string) ([]history.Entry, error)
}

// AlertsHandler handles alert requests.
type AlertsHandler struct {
	deps AlertDependencies
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(deps AlertDependencies) *AlertsHandler {
	return &AlertsHandler{deps: deps}
}

// HandleAlerts handles POST /alerts and GET /alerts requests.
func (h *AlertsHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleTrigger(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

// HandleAlert handles GET /alerts/{id} plus the respond, cancel, resolve,
// location and timeline subresources.
func (h *AlertsHandler) HandleAlert(w http.ResponseWriter, r *http.Request) {
	const op = "api.alert"
	path := strings.TrimPrefix(r.URL.Path, "/alerts/")
	id, sub, _ := strings.Cut(path, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case sub == "respond" && r.Method == http.MethodPost:
		h.handleRespond(w, r, id)
	case sub == "cancel" && r.Method == http.MethodPost:
		h.handleCancel(w, r, id)
	case sub == "resolve" && r.Method == http.MethodPost:
		h.handleResolve(w, r, id)
	case sub == "location" && r.Method == http.MethodPost:
		h.handleLocation(w, r, id)
	case sub == "timeline" && r.Method == http.MethodGet:
		h.handleTimeline(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *AlertsHandler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	const op = "api.trigger_alert"
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	a, err := h.deps.Trigger(r.Context(), req.RequestID, req.toTrigger())
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAlertPayload(a))
}

func (h *AlertsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	alerts := h.deps.ActiveAlerts(r.Context())
	out := make([]alertPayload, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertPayload(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AlertsHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.get_alert"
	a, err := h.deps.GetAlert(r.Context(), id)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlertPayload(a))
}

func (h *AlertsHandler) handleRespond(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.respond_alert"
	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	a, err := h.deps.Respond(r.Context(), id, req.toResponse())
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlertPayload(a))
}

func (h *AlertsHandler) handleCancel(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.cancel_alert"
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	a, err := h.deps.Cancel(r.Context(), id, req.ActorID, req.Password)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlertPayload(a))
}

func (h *AlertsHandler) handleResolve(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.resolve_alert"
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	a, err := h.deps.Resolve(r.Context(), id, req.ActorID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlertPayload(a))
}

func (h *AlertsHandler) handleLocation(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.report_location"
	var req locationPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.ReportLocation(r.Context(), id, req.toSample()); err != nil {
		writeDomainError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AlertsHandler) handleTimeline(w http.ResponseWriter, r *http.Request, id string) {
	const op = "api.alert_timeline"
	entries, err := h.deps.Timeline(r.Context(), id)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimelinePayload(entries))
}
