package history

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrDisabled means no audit trail is configured.
	ErrDisabled = errors.New("history store disabled")
)
