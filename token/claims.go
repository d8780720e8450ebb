package token

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-clinic-portal/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// parseClaims decodes the payload of a JWT without verifying its signature. The portal never holds
// the backend's signing keys; claims are only used to schedule refreshes and key local caches.
func parseClaims(rawToken string) (*jwtlib.RegisteredClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.ErrInvalidToken
	}
	claims := &jwtlib.RegisteredClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	return claims, nil
}

// Expiry returns the exp claim of rawToken.
func Expiry(rawToken string) (time.Time, error) {
	claims, err := parseClaims(rawToken)
	if err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, errors.ErrMissingExpiry
	}
	return exp.Time, nil
}

// Subject returns the sub claim of rawToken.
func Subject(rawToken string) (string, error) {
	claims, err := parseClaims(rawToken)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing sub claim", errors.ErrInvalidToken)
	}
	return claims.Subject, nil
}

// RemainingLifetime is the time left before rawToken expires. A token that cannot be decoded
// counts as already expired.
func RemainingLifetime(rawToken string) time.Duration {
	exp, err := Expiry(rawToken)
	if err != nil {
		return 0
	}
	remaining := exp.Sub(NowTimeFunc())
	if remaining < 0 {
		return 0
	}
	return remaining
}
