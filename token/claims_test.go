package token_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-clinic-portal/internal/errors"
	"github.com/jrsteele09/go-clinic-portal/token"
	"github.com/jrsteele09/go-clinic-portal/token/tokenfake"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Unix(1_750_000_000, 0)

func freezeTime(t *testing.T) {
	t.Helper()
	token.NowTimeFunc = func() time.Time { return fixedNow }
	t.Cleanup(func() { token.NowTimeFunc = time.Now })
}

func TestExpiryAndSubject(t *testing.T) {
	freezeTime(t)
	raw := tokenfake.ExpiringIn("user-1", 10*time.Minute)

	exp, err := token.Expiry(raw)
	require.NoError(t, err)
	require.Equal(t, fixedNow.Add(10*time.Minute).Unix(), exp.Unix())

	sub, err := token.Subject(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", sub)
}

func TestExpiry_Failures(t *testing.T) {
	freezeTime(t)

	_, err := token.Expiry("")
	require.ErrorIs(t, err, errors.ErrInvalidToken)

	_, err = token.Expiry("not.a.jwt")
	require.ErrorIs(t, err, errors.ErrInvalidToken)

	_, err = token.Expiry(tokenfake.WithoutExpiry("user-1"))
	require.ErrorIs(t, err, errors.ErrMissingExpiry)
}

func TestRemainingLifetime(t *testing.T) {
	freezeTime(t)

	require.Equal(t, 30*time.Second, token.RemainingLifetime(tokenfake.ExpiringIn("u", 30*time.Second)))
	require.Zero(t, token.RemainingLifetime(tokenfake.ExpiringIn("u", -time.Minute)))
	require.Zero(t, token.RemainingLifetime("garbage"))
}

func TestShouldRefresh(t *testing.T) {
	freezeTime(t)

	tests := []struct {
		name    string
		access  string
		refresh string
		want    bool
	}{
		{"access valid beyond window", tokenfake.ExpiringIn("u", 61*time.Second), tokenfake.ExpiringIn("u", time.Hour), false},
		{"access long lived", tokenfake.ExpiringIn("u", time.Hour), tokenfake.ExpiringIn("u", 2*time.Hour), false},
		{"access expiring, refresh healthy", tokenfake.ExpiringIn("u", 30*time.Second), tokenfake.ExpiringIn("u", 120*time.Second), true},
		{"access expiring, refresh nearly gone", tokenfake.ExpiringIn("u", 30*time.Second), tokenfake.ExpiringIn("u", 3*time.Second), false},
		{"refresh at minimum lifetime", tokenfake.ExpiringIn("u", 30*time.Second), tokenfake.ExpiringIn("u", 5*time.Second), true},
		{"access already expired", tokenfake.ExpiringIn("u", -time.Minute), tokenfake.ExpiringIn("u", time.Hour), true},
		{"access undecodable", "garbage", tokenfake.ExpiringIn("u", time.Hour), true},
		{"refresh undecodable", tokenfake.ExpiringIn("u", 30*time.Second), "garbage", false},
		{"missing access", "", tokenfake.ExpiringIn("u", time.Hour), false},
		{"missing refresh", tokenfake.ExpiringIn("u", 30*time.Second), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, token.ShouldRefresh(tt.access, tt.refresh))
		})
	}
}
