// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// SettingsDependencies defines the interface for safety settings
// operations.
type SettingsDependencies interface {
	SetCancelPassword(ctx context.Context, password string) error
	CancelPasswordConfigured() bool
}

// SettingsHandler handles cancellation policy settings.
type SettingsHandler struct {
	deps SettingsDependencies
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(deps SettingsDependencies) *SettingsHandler {
	return &SettingsHandler{deps: deps}
}

// HandleCancelPassword handles GET and POST /settings/cancel-password
// requests. GET reports whether a password is installed; it never echoes
// the password itself.
func (h *SettingsHandler) HandleCancelPassword(w http.ResponseWriter, r *http.Request) {
	const op = "api.cancel_password"
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, configuredResponse{
			Configured: h.deps.CancelPasswordConfigured(),
		})
	case http.MethodPost:
		var req passwordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := h.deps.SetCancelPassword(r.Context(), req.Password); err != nil {
			writeDomainError(w, op, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}
