package advisory

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrUnavailable = errors.New("advisory feed unavailable")
	ErrBadResponse = errors.New("malformed advisory response")
)
