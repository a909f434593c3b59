package policy_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"

	"github.com/guardiansafety/aegis/internal/adapters/policy"
	"github.com/guardiansafety/aegis/internal/domain/alert"
	"github.com/guardiansafety/aegis/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var _ alert.Verifier = (*policy.Verifier)(nil)

func TestVerifier(t *testing.T) {
	Convey("Given an unconfigured verifier", t, func() {
		v := policy.NewVerifier()
		ctx := context.Background()

		Convey("Then it fails closed", func() {
			So(v.Configured(), ShouldBeFalse)
			So(v.VerifyCancelPassword(ctx, "anything"), ShouldBeFalse)
		})

		Convey("When a password is set", func() {
			So(v.SetPassword(ctx, "orcrist"), ShouldBeNil)

			Convey("Then only that password verifies", func() {
				So(v.Configured(), ShouldBeTrue)
				So(v.VerifyCancelPassword(ctx, "orcrist"), ShouldBeTrue)
				So(v.VerifyCancelPassword(ctx, "glamdring"), ShouldBeFalse)
				So(v.VerifyCancelPassword(ctx, ""), ShouldBeFalse)
			})

			Convey("Then replacing it invalidates the old one", func() {
				So(v.SetPassword(ctx, "glamdring"), ShouldBeNil)
				So(v.VerifyCancelPassword(ctx, "orcrist"), ShouldBeFalse)
				So(v.VerifyCancelPassword(ctx, "glamdring"), ShouldBeTrue)
			})
		})

		Convey("When a blank password is set", func() {
			So(errors.Is(v.SetPassword(ctx, ""), policy.ErrEmptyPassword), ShouldBeTrue)
		})
	})

	Convey("Given a verifier provisioned from configuration", t, func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("sting"), bcrypt.MinCost)
		So(err, ShouldBeNil)
		v := policy.NewVerifier(policy.WithPasswordHash(string(hash)))
		ctx := context.Background()

		Convey("Then the provisioned hash verifies", func() {
			So(v.Configured(), ShouldBeTrue)
			So(v.VerifyCancelPassword(ctx, "sting"), ShouldBeTrue)
			So(v.VerifyCancelPassword(ctx, "anduril"), ShouldBeFalse)
		})
	})
}

func TestGuardianKeys(t *testing.T) {
	Convey("Given a guardian key issuer", t, func() {
		g := policy.NewGuardianKeys(policy.WithKeySecret([]byte("aegis-test-secret")))
		ctx := context.Background()

		Convey("When a key is issued", func() {
			key, err := g.IssueKey(ctx, "user-1", "Dana")
			So(err, ShouldBeNil)

			Convey("Then it is well-formed and validates", func() {
				So(key, ShouldStartWith, "GRD-")
				So(key, ShouldHaveLength, 13)
				So(g.ValidateKey(ctx, key), ShouldBeTrue)
			})

			Convey("Then it survives case changes and padding", func() {
				So(g.ValidateKey(ctx, "  "+strings.ToLower(key)+" "), ShouldBeTrue)
			})

			Convey("Then issuing again produces a distinct key that also validates", func() {
				again, aerr := g.IssueKey(ctx, "user-1", "Dana")
				So(aerr, ShouldBeNil)
				So(again, ShouldNotEqual, key)
				So(g.ValidateKey(ctx, again), ShouldBeTrue)
			})

			Convey("Then another issuer sharing the secret accepts it", func() {
				peer := policy.NewGuardianKeys(policy.WithKeySecret([]byte("aegis-test-secret")))
				So(peer.ValidateKey(ctx, key), ShouldBeTrue)
			})

			Convey("Then a tampered checksum is rejected", func() {
				replacement := byte('2')
				if key[len(key)-1] == '2' {
					replacement = '3'
				}
				tampered := key[:len(key)-1] + string(replacement)
				So(g.ValidateKey(ctx, tampered), ShouldBeFalse)
			})
		})

		Convey("When malformed keys are offered", func() {
			Convey("Then they are rejected on shape alone", func() {
				So(g.ValidateKey(ctx, ""), ShouldBeFalse)
				So(g.ValidateKey(ctx, "GRD-ABCD"), ShouldBeFalse)
				So(g.ValidateKey(ctx, "KEY-ABCD-EFGH"), ShouldBeFalse)
				So(g.ValidateKey(ctx, "GRD-AB!D-EFGH"), ShouldBeFalse)
				So(g.ValidateKey(ctx, "GRD-ABIL-EFGH"), ShouldBeFalse)
			})
		})

		Convey("When issuing without an identity", func() {
			_, err := g.IssueKey(ctx, "", "")

			Convey("Then issuing is refused", func() {
				So(errors.Is(err, policy.ErrNoIdentity), ShouldBeTrue)
			})
		})
	})
}
