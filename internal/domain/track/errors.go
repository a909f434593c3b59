package track

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrNoStream rejects operations naming an unknown or stopped stream.
	ErrNoStream = errors.New("no such tracking stream")

	// ErrInvalidMode rejects unknown tracking modes.
	ErrInvalidMode = errors.New("invalid tracking mode")

	// ErrNoFix means no validated fix has arrived yet.
	ErrNoFix = errors.New("no location fix available")

	// ErrPermissionDenied is fatal: the device refused location access.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrLowAccuracy marks fixes rejected by the accuracy ceiling. The
	// stream keeps running.
	ErrLowAccuracy = errors.New("fix accuracy below threshold")

	// ErrDeviceUnavailable marks transient positioning failures. The
	// stream keeps running.
	ErrDeviceUnavailable = errors.New("positioning device unavailable")

	// ErrWatchBusy means another watch already holds the device.
	ErrWatchBusy = errors.New("watch already active")
)
