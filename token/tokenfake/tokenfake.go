// Package tokenfake mints JWTs with chosen claims for tests. Signatures use a throwaway HMAC key;
// nothing in the portal verifies them.
package tokenfake

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-clinic-portal/token"
)

var signingKey = []byte("tokenfake")

// ExpiringIn returns a token for subject that expires d after token.NowTimeFunc().
func ExpiringIn(subject string, d time.Duration) string {
	return ExpiringAt(subject, token.NowTimeFunc().Add(d))
}

// ExpiringAt returns a token for subject with the given exp claim.
func ExpiringAt(subject string, exp time.Time) string {
	now := token.NowTimeFunc()
	return sign(jwtlib.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(exp),
	})
}

// Mint signs arbitrary registered claims.
func Mint(claims jwtlib.RegisteredClaims) string {
	return sign(claims)
}

// WithoutExpiry returns a token for subject carrying no exp claim.
func WithoutExpiry(subject string) string {
	return sign(jwtlib.RegisteredClaims{Subject: subject})
}

func sign(claims jwtlib.RegisteredClaims) string {
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic("tokenfake: " + err.Error())
	}
	return signed
}
