package policy

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/guardiansafety/aegis/pkg/logger"
	"github.com/guardiansafety/aegis/pkg/metrics"
)

// Guardian key format constants. Keys read GRD-XXXX-XXXX: seven body
// characters plus one checksum character, drawn from an alphabet without
// lookalikes so keys survive being read aloud.
const (
	keyPrefix   = "GRD"
	keyAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	keyBodyLen  = 7
)

// GuardianKeys issues and validates the shareable keys contacts present
// to prove a guardian relationship. The checksum is keyed, so a key
// cannot be fabricated without the issuing secret.
type GuardianKeys struct {
	secret []byte

	logger logger.Logger
}

// NewGuardianKeys creates an issuer. Without WithKeySecret a random
// secret is drawn, making keys valid only for this process lifetime.
func NewGuardianKeys(opts ...KeyOption) *GuardianKeys {
	g := &GuardianKeys{
		logger: logger.Get().Named("policy"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(g)
	}

	if len(g.secret) == 0 {
		g.secret = make([]byte, 32)
		_, _ = rand.Read(g.secret)
	}

	return g
}

// IssueKey mints a fresh guardian key for one user. Issuing twice for the
// same user produces distinct keys; all of them validate.
func (g *GuardianKeys) IssueKey(ctx context.Context, userID, name string) (string, error) {
	if userID == "" {
		return "", ErrNoIdentity
	}

	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(userID))
	mac.Write([]byte{0})
	mac.Write([]byte(name))
	mac.Write([]byte{0})
	mac.Write([]byte(uuid.NewString()))
	sum := mac.Sum(nil)

	body := make([]byte, keyBodyLen)
	for i := range body {
		body[i] = keyAlphabet[int(sum[i])%len(keyAlphabet)]
	}
	full := append(body, g.checksumChar(body))

	key := fmt.Sprintf("%s-%s-%s", keyPrefix, full[:4], full[4:])
	g.logger.Info(ctx, "guardian key issued", logger.String("user", userID))
	return key, nil
}

// ValidateKey answers whether key is well-formed and carries a checksum
// this issuer could have produced.
func (g *GuardianKeys) ValidateKey(ctx context.Context, key string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(key))

	parts := strings.Split(normalized, "-")
	if len(parts) != 3 || parts[0] != keyPrefix || len(parts[1]) != 4 || len(parts[2]) != 4 {
		metrics.RecordErrorByComponent("policy", "malformed_key")
		return false
	}

	full := parts[1] + parts[2]
	for i := 0; i < len(full); i++ {
		if !strings.ContainsRune(keyAlphabet, rune(full[i])) {
			metrics.RecordErrorByComponent("policy", "malformed_key")
			return false
		}
	}

	if g.checksumChar([]byte(full[:keyBodyLen])) != full[keyBodyLen] {
		metrics.RecordErrorByComponent("policy", "bad_key_checksum")
		g.logger.Debug(ctx, "guardian key failed checksum")
		return false
	}
	return true
}

func (g *GuardianKeys) checksumChar(body []byte) byte {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(body)
	sum := mac.Sum(nil)
	return keyAlphabet[int(sum[0])%len(keyAlphabet)]
}
