package config

import "errors"

// Sentinel kinds callers can match with errors.Is to tell unreadable
// configuration apart from readable-but-invalid.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
