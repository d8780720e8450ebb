package token

import "time"

const (
	// RefreshWindow is how close to expiry an access token must be before a refresh is due.
	RefreshWindow = 60 * time.Second
	// MinRefreshLifetime is the least lifetime a refresh token needs for a refresh to be worth sending.
	MinRefreshLifetime = 5 * time.Second
)

// ShouldRefresh reports whether the access token is about to expire while the refresh token can
// still be exchanged. Missing or undecodable tokens never trigger a refresh.
func ShouldRefresh(accessToken, refreshToken string) bool {
	if accessToken == "" || refreshToken == "" {
		return false
	}
	if RemainingLifetime(accessToken) >= RefreshWindow {
		return false
	}
	return RemainingLifetime(refreshToken) >= MinRefreshLifetime
}
