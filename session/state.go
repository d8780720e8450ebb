// Package session holds the token pair and authentication flag of one browser session. The cookie
// jar is the persisted medium; State mirrors it in memory and crosses that boundary only through
// Load, Save, SetTokens and Clear.
package session

import (
	"strings"
	"sync"

	"github.com/jrsteele09/go-clinic-portal/cookies"
	"github.com/jrsteele09/go-clinic-portal/token"
	"github.com/rs/zerolog/log"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	LoggedInCookie     = "logged_in"

	loggedInValue = "true"
)

// Tokens is a snapshot of the session. IsAuthenticated holds only when both tokens are present
// and the logged_in marker is set.
type Tokens struct {
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
}

// CookieHeader renders the token pair as a Cookie request header value.
func (t Tokens) CookieHeader() string {
	parts := make([]string, 0, 2)
	if t.AccessToken != "" {
		parts = append(parts, AccessTokenCookie+"="+t.AccessToken)
	}
	if t.RefreshToken != "" {
		parts = append(parts, RefreshTokenCookie+"="+t.RefreshToken)
	}
	return strings.Join(parts, "; ")
}

// State is the single source of truth for one session's tokens.
type State struct {
	jar   cookies.Jar
	attrs cookies.Attributes

	// writeMu serializes jar mutations so a reader never sees a half-written pair.
	writeMu sync.Mutex

	mu     sync.RWMutex
	tokens Tokens
}

// New binds a State to jar and loads the current cookies. attrs apply to the token cookies written
// by Save; the logged_in marker is never HttpOnly.
func New(jar cookies.Jar, attrs cookies.Attributes) *State {
	if jar == nil {
		jar = cookies.NoJar{}
	}
	if attrs.Path == "" {
		attrs.Path = "/"
	}
	s := &State{jar: jar, attrs: attrs}
	s.Load()
	return s
}

// Load re-reads the three cookies from the jar into memory.
func (s *State) Load() Tokens {
	access, _ := s.jar.Get(AccessTokenCookie)
	refresh, _ := s.jar.Get(RefreshTokenCookie)
	marker, _ := s.jar.Get(LoggedInCookie)

	t := Tokens{
		AccessToken:     access,
		RefreshToken:    refresh,
		IsAuthenticated: access != "" && refresh != "" && marker == loggedInValue,
	}

	s.mu.Lock()
	s.tokens = t
	s.mu.Unlock()
	return t
}

// Save writes both token cookies and the logged_in marker, then reloads.
func (s *State) Save(accessToken, refreshToken string) Tokens {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.jar.Set(AccessTokenCookie, accessToken, s.attrs)
	s.jar.Set(RefreshTokenCookie, refreshToken, s.attrs)
	s.writeMarker()
	return s.Load()
}

// Current returns the in-memory mirror.
func (s *State) Current() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// CookieHeader is Current().CookieHeader().
func (s *State) CookieHeader() string {
	return s.Current().CookieHeader()
}

// SetTokens replaces the session with backend-issued Set-Cookie strings written verbatim, so the
// attributes chosen by the backend survive. The marker is written once both tokens are present.
func (s *State) SetTokens(rawSetCookies []string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.deleteAll()
	for _, raw := range rawSetCookies {
		if err := cookies.SetRaw(s.jar, raw); err != nil {
			log.Warn().Err(err).Msg("Skipping malformed session cookie")
		}
	}

	access, _ := s.jar.Get(AccessTokenCookie)
	refresh, _ := s.jar.Get(RefreshTokenCookie)
	if marker, _ := s.jar.Get(LoggedInCookie); access != "" && refresh != "" && marker != loggedInValue {
		s.writeMarker()
	}
	s.Load()
}

// Clear deletes the three cookies and resets memory.
func (s *State) Clear() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.deleteAll()
	s.mu.Lock()
	s.tokens = Tokens{}
	s.mu.Unlock()
}

// ShouldRefreshToken reports whether the access token is due for renewal and the refresh token can
// still pay for it.
func (s *State) ShouldRefreshToken() bool {
	t := s.Current()
	return token.ShouldRefresh(t.AccessToken, t.RefreshToken)
}

func (s *State) writeMarker() {
	markerAttrs := s.attrs
	markerAttrs.HttpOnly = false
	s.jar.Set(LoggedInCookie, loggedInValue, markerAttrs)
}

func (s *State) deleteAll() {
	s.jar.Delete(AccessTokenCookie)
	s.jar.Delete(RefreshTokenCookie)
	s.jar.Delete(LoggedInCookie)
}
