package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/guardiansafety/aegis/internal/adapters/history"
	"github.com/guardiansafety/aegis/internal/adapters/policy"
	"github.com/guardiansafety/aegis/internal/adapters/repository"
	"github.com/guardiansafety/aegis/internal/domain/alert"
	"github.com/guardiansafety/aegis/internal/domain/dedupe"
	"github.com/guardiansafety/aegis/internal/domain/track"
)

// Sentinel kinds for API errors.
var (
	ErrServe      = errors.New("api serve failed")
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// Wrap prefixes err with the operation name so logs and error payloads
// carry their origin.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// NewKind returns kind tagged with the operation name.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags err with the operation name and a sentinel kind so callers
// can errors.Is against the kind while keeping the cause.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// statusFor maps domain errors onto an HTTP status and a stable error
// code. Unrecognized errors fall through to 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, alert.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, alert.ErrNoRecipients):
		return http.StatusBadRequest, "no_recipients"
	case errors.Is(err, alert.ErrNoSender):
		return http.StatusBadRequest, "no_sender"
	case errors.Is(err, alert.ErrInvalidResponse):
		return http.StatusBadRequest, "invalid_response"
	case errors.Is(err, alert.ErrInvalidCountdown):
		return http.StatusBadRequest, "invalid_countdown"
	case errors.Is(err, alert.ErrUnknownResponder):
		return http.StatusForbidden, "unknown_responder"
	case errors.Is(err, alert.ErrCancelDenied):
		return http.StatusForbidden, "cancel_denied"
	case errors.Is(err, alert.ErrNotOwner):
		return http.StatusForbidden, "not_owner"
	case errors.Is(err, dedupe.ErrInFlight):
		return http.StatusConflict, "in_flight"
	case errors.Is(err, history.ErrDisabled):
		return http.StatusNotFound, "history_disabled"
	case errors.Is(err, track.ErrNoFix):
		return http.StatusNotFound, "no_fix"
	case errors.Is(err, policy.ErrNoIdentity):
		return http.StatusBadRequest, "no_identity"
	case errors.Is(err, policy.ErrEmptyPassword):
		return http.StatusBadRequest, "empty_password"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "area_not_known"
	case errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "invalid_limit"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeDomainError translates a domain error into the API error envelope.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, Wrap(op, err))
}
