package repository

import "errors"

// Sentinel kinds for risk index errors.
var (
	ErrNotFound     = errors.New("area not tracked")
	ErrInvalidLimit = errors.New("invalid risk listing limit")
)
