// Package policy holds the local authorization collaborators: the
// cancellation password verifier and the guardian key scheme.
//
// Conventions:
//   - Verification never errors, it answers yes or no. An unconfigured
//     verifier answers no; cancellation fails closed.
//   - Guardian keys are self-certifying: format plus an HMAC checksum,
//     validated without a lookup.
package policy

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/guardiansafety/aegis/pkg/logger"
	"github.com/guardiansafety/aegis/pkg/metrics"
)

// Verifier checks cancellation passwords against a bcrypt hash.
type Verifier struct {
	mu   sync.RWMutex
	hash []byte

	logger logger.Logger
}

// NewVerifier creates a Verifier. Without a provisioned hash every check
// answers no until SetPassword runs.
func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{
		logger: logger.Get().Named("policy"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(v)
	}

	return v
}

// SetPassword hashes and installs a new cancellation password, replacing
// any previous one.
func (v *Verifier) SetPassword(ctx context.Context, password string) error {
	if password == "" {
		return ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.hash = hash
	v.mu.Unlock()

	v.logger.Info(ctx, "cancellation password updated")
	return nil
}

// Configured reports whether a password hash is installed.
func (v *Verifier) Configured() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.hash) > 0
}

// VerifyCancelPassword answers whether candidate matches the installed
// password. No hash installed means no.
func (v *Verifier) VerifyCancelPassword(ctx context.Context, candidate string) bool {
	v.mu.RLock()
	hash := v.hash
	v.mu.RUnlock()

	if len(hash) == 0 {
		metrics.RecordErrorByComponent("policy", "no_password")
		v.logger.Warn(ctx, "cancellation attempted with no password configured")
		return false
	}
	if candidate == "" {
		return false
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(candidate)); err != nil {
		v.logger.Debug(ctx, "cancellation password mismatch")
		return false
	}
	return true
}
