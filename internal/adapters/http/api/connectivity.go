// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/guardiansafety/aegis/internal/domain/connectivity"
)

// ConnectivityDependencies defines the interface for connectivity status
// operations.
type ConnectivityDependencies interface {
	Connectivity() (connectivity.State, bool)
	CheckConnectivity(ctx context.Context) (connectivity.State, error)
}

// ConnectivityHandler handles connectivity status requests.
type ConnectivityHandler struct {
	deps ConnectivityDependencies
}

// NewConnectivityHandler creates a new connectivity handler.
func NewConnectivityHandler(deps ConnectivityDependencies) *ConnectivityHandler {
	return &ConnectivityHandler{deps: deps}
}

// HandleConnectivity handles GET /connectivity requests. With refresh=1 a
// fresh probe runs instead of returning the cached snapshot.
func (h *ConnectivityHandler) HandleConnectivity(w http.ResponseWriter, r *http.Request) {
	const op = "api.connectivity"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if r.URL.Query().Get("refresh") == "" {
		if st, ok := h.deps.Connectivity(); ok {
			writeJSON(w, http.StatusOK, st)
			return
		}
	}
	st, err := h.deps.CheckConnectivity(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
