package alert

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from
// callers.
var (
	// ErrNotFound rejects operations naming an unknown alert.
	ErrNotFound = errors.New("alert not found")

	// ErrNoRecipients rejects a trigger with an empty recipient list; an
	// alert nobody receives protects nobody.
	ErrNoRecipients = errors.New("alert has no recipients")

	// ErrNoSender rejects a trigger without a sender identity.
	ErrNoSender = errors.New("alert has no sender")

	// ErrNotOwner rejects terminal transitions from anyone but the
	// triggering sender.
	ErrNotOwner = errors.New("actor does not own the alert")

	// ErrCancelDenied rejects a cancellation that failed password
	// verification.
	ErrCancelDenied = errors.New("cancellation denied")

	// ErrInvalidResponse rejects responder events with an unknown kind.
	ErrInvalidResponse = errors.New("invalid response kind")

	// ErrUnknownResponder rejects responses from anyone outside the
	// alert's recipient list.
	ErrUnknownResponder = errors.New("responder is not an alert recipient")

	// ErrInvalidCountdown rejects a countdown with a non-positive delay.
	ErrInvalidCountdown = errors.New("invalid countdown delay")
)
