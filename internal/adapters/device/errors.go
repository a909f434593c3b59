package device

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrProbeFailed indicates the host refused a capability read.
	ErrProbeFailed = errors.New("device probe failed")
)
