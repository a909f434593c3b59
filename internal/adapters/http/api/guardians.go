// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// GuardianDependencies defines the interface for guardian key operations.
type GuardianDependencies interface {
	IssueGuardianKey(ctx context.Context, userID, name string) (string, error)
	ValidateGuardianKey(ctx context.Context, key string) bool
}

// GuardiansHandler handles guardian key requests.
type GuardiansHandler struct {
	deps GuardianDependencies
}

// NewGuardiansHandler creates a new guardians handler.
func NewGuardiansHandler(deps GuardianDependencies) *GuardiansHandler {
	return &GuardiansHandler{deps: deps}
}

// HandleIssueKey handles POST /guardians/keys requests.
func (h *GuardiansHandler) HandleIssueKey(w http.ResponseWriter, r *http.Request) {
	const op = "api.issue_guardian_key"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	key, err := h.deps.IssueGuardianKey(r.Context(), req.UserID, req.Name)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, keyResponse{Key: key})
}

// HandleValidateKey handles POST /guardians/keys/validate requests.
func (h *GuardiansHandler) HandleValidateKey(w http.ResponseWriter, r *http.Request) {
	const op = "api.validate_guardian_key"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req keyValidationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	writeJSON(w, http.StatusOK, keyValidationResponse{
		Valid: h.deps.ValidateGuardianKey(r.Context(), req.Key),
	})
}
