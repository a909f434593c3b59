package dedupe

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrInFlight rejects a replayed request whose first carrier has not
	// finished yet.
	ErrInFlight = errors.New("request already in flight")
)
