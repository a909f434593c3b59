// Package policy holds the local authorization collaborators.
package policy

import (
	"github.com/guardiansafety/aegis/pkg/logger"
)

// VerifierOption applies a configuration option to the Verifier.
type VerifierOption func(*Verifier)

// WithPasswordHash installs a pre-provisioned bcrypt hash, typically from
// configuration.
func WithPasswordHash(hash string) VerifierOption {
	return func(v *Verifier) {
		if hash != "" {
			v.hash = []byte(hash)
		}
	}
}

// WithVerifierLogger sets the verifier's logger.
func WithVerifierLogger(l logger.Logger) VerifierOption {
	return func(v *Verifier) {
		if l != nil {
			v.logger = l
		}
	}
}

// KeyOption applies a configuration option to the guardian key issuer.
type KeyOption func(*GuardianKeys)

// WithKeySecret sets the issuing secret so keys stay valid across
// restarts.
func WithKeySecret(secret []byte) KeyOption {
	return func(g *GuardianKeys) {
		if len(secret) > 0 {
			g.secret = append([]byte(nil), secret...)
		}
	}
}

// WithKeyLogger sets the issuer's logger.
func WithKeyLogger(l logger.Logger) KeyOption {
	return func(g *GuardianKeys) {
		if l != nil {
			g.logger = l
		}
	}
}
