package config

import (
	"time"

	"golang.org/x/time/rate"
)

type SessionConfig interface {
	GetSecureCookies() bool
	GetSnapshotStore() string
	GetSnapshotKey() string
	GetLoginRateLimit() (rate.Limit, int)
}

type Session struct {
	vars EnvVars
}

var _ SessionConfig = Session{}

// GetSecureCookies makes token cookies HttpOnly and Secure in production only.
func (s Session) GetSecureCookies() bool {
	return s.vars.IsProduction()
}

func (s Session) GetSnapshotStore() string {
	return s.vars.SnapshotStore
}

func (s Session) GetSnapshotKey() string {
	return s.vars.SnapshotKey
}

// GetLoginRateLimit returns the per-IP limit for login submissions.
func (s Session) GetLoginRateLimit() (rate.Limit, int) {
	perMinute := s.vars.LoginPerMinute
	if perMinute <= 0 {
		return rate.Inf, 0
	}
	burst := s.vars.LoginBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.Every(time.Minute / time.Duration(perMinute)), burst
}

type Backend struct {
	vars EnvVars
}

var _ BackendConfig = Backend{}

func (b Backend) GetBackendURL() string {
	return b.vars.BackendURL
}

func (b Backend) GetBackendTimeout() time.Duration {
	if b.vars.BackendTimeout <= 0 {
		return 15 * time.Second
	}
	return b.vars.BackendTimeout
}
