package connectivity

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrStarted indicates the monitor is already running.
	ErrStarted = errors.New("connectivity monitor already started")

	// ErrNotStarted indicates an operation that needs a running monitor.
	ErrNotStarted = errors.New("connectivity monitor not started")

	// ErrNoProbe indicates the monitor was built without a transport probe.
	ErrNoProbe = errors.New("no transport probe configured")
)
