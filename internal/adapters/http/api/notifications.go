// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"

	"github.com/guardiansafety/aegis/internal/domain/escalate"
)

// NotificationDependencies defines the interface for notification center
// operations.
type NotificationDependencies interface {
	NotificationCenter() escalate.Center
	DismissNotification(id string) bool
}

// NotificationsHandler handles notification center requests.
type NotificationsHandler struct {
	deps NotificationDependencies
}

// NewNotificationsHandler creates a new notifications handler.
func NewNotificationsHandler(deps NotificationDependencies) *NotificationsHandler {
	return &NotificationsHandler{deps: deps}
}

// HandleCenter handles GET /notifications requests.
func (h *NotificationsHandler) HandleCenter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, toCenterPayload(h.deps.NotificationCenter()))
}

// HandleDismiss handles POST /notifications/{id}/dismiss requests.
func (h *NotificationsHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	const op = "api.dismiss_notification"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/notifications/")
	id, sub, _ := strings.Cut(path, "/")
	if id == "" || sub != "dismiss" {
		http.NotFound(w, r)
		return
	}
	if !h.deps.DismissNotification(id) {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, dismissedResponse{Dismissed: true})
}
