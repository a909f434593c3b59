package delivery

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from
// callers.
var (
	// ErrClosed rejects sends on a closed client.
	ErrClosed = errors.New("delivery client closed")

	// ErrUnknownAlert rejects loopback updates for an alert that was never
	// created.
	ErrUnknownAlert = errors.New("unknown alert")
)
