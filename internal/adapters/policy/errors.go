package policy

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from
// callers.
var (
	// ErrEmptyPassword rejects installing a blank cancellation password.
	ErrEmptyPassword = errors.New("empty cancellation password")

	// ErrNoIdentity rejects issuing a guardian key without a user.
	ErrNoIdentity = errors.New("guardian key needs a user identity")
)
