package worker

import "errors"

// Sentinel kinds for writer errors.
var (
	ErrUnknownKind = errors.New("unknown journal entry kind")
)
