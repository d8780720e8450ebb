// Package backendfake is an in-process stand-in for the portal's REST backend. It issues JWT
// session cookies, rotates them on refresh and counts every call so tests can assert on the
// refresh protocol.
package backendfake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-clinic-portal/internal/utils"
	"github.com/jrsteele09/go-clinic-portal/token"
	"github.com/jrsteele09/go-clinic-portal/token/tokenfake"
	"github.com/jrsteele09/go-clinic-portal/users"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
)

type account struct {
	passwordHash []byte
	profile      users.Profile
}

// Backend serves /auth/login, /auth/logout, /auth/refresh-token, /auth/verify, /profile and any
// path registered with Handle.
type Backend struct {
	*httptest.Server

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// RefreshDelay holds each refresh call, to let concurrent callers pile up.
	RefreshDelay time.Duration

	mu       sync.Mutex
	accounts map[string]account
	access   map[string]string
	refresh  map[string]string
	handlers map[string]http.HandlerFunc

	failRefresh        atomic.Bool
	refreshWithoutBody atomic.Bool
	failLogout         atomic.Bool
	rejectNext         atomic.Int64

	Refreshes atomic.Int64
	Logouts   atomic.Int64
	Logins    atomic.Int64

	callsMu    sync.Mutex
	calls      map[string]int
	lastCookie map[string]string
}

// New starts a backend. Close it when done.
func New() *Backend {
	b := &Backend{
		AccessTTL:  DefaultAccessTTL,
		RefreshTTL: DefaultRefreshTTL,
		accounts:   make(map[string]account),
		access:     make(map[string]string),
		refresh:    make(map[string]string),
		handlers:   make(map[string]http.HandlerFunc),
		calls:      make(map[string]int),
		lastCookie: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", b.count(b.handleLogin))
	mux.HandleFunc("POST /auth/logout", b.count(b.handleLogout))
	mux.HandleFunc("POST /auth/refresh-token", b.count(b.handleRefresh))
	mux.HandleFunc("GET /auth/verify", b.count(b.authorized(func(w http.ResponseWriter, r *http.Request, _ users.Profile) {
		writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
	})))
	mux.HandleFunc("GET /profile", b.count(b.authorized(func(w http.ResponseWriter, r *http.Request, p users.Profile) {
		writeJSON(w, http.StatusOK, p)
	})))
	mux.HandleFunc("/", b.count(b.authorized(b.handleRegistered)))
	b.Server = httptest.NewServer(mux)
	return b
}

// AddUser registers an account. The password is stored as a bcrypt hash.
func (b *Backend) AddUser(profile users.Profile, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic("backendfake: " + err.Error())
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[profile.Email] = account{passwordHash: hash, profile: profile}
}

// Handle registers an authorized handler for pattern (a path, matched exactly).
func (b *Backend) Handle(path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[path] = h
}

// IssueSession mints a session for the account with email, as a login would, and returns the
// raw Set-Cookie headers.
func (b *Backend) IssueSession(email string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(email)
}

// ExpireAccessTokens invalidates every issued access token; the next authorized call gets a 401.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = make(map[string]string)
}

// RejectNext makes the next n authorized calls answer 401 whatever cookie they carry.
func (b *Backend) RejectNext(n int) {
	b.rejectNext.Store(int64(n))
}

// FailRefresh makes /auth/refresh-token answer 401.
func (b *Backend) FailRefresh(fail bool) {
	b.failRefresh.Store(fail)
}

// RefreshWithoutCookies makes /auth/refresh-token answer 200 with no Set-Cookie.
func (b *Backend) RefreshWithoutCookies(on bool) {
	b.refreshWithoutBody.Store(on)
}

// FailLogout makes /auth/logout answer 500.
func (b *Backend) FailLogout(fail bool) {
	b.failLogout.Store(fail)
}

// Calls returns how often path was requested.
func (b *Backend) Calls(path string) int {
	b.callsMu.Lock()
	defer b.callsMu.Unlock()
	return b.calls[path]
}

// LastCookie returns the Cookie header of the latest request to path.
func (b *Backend) LastCookie(path string) string {
	b.callsMu.Lock()
	defer b.callsMu.Unlock()
	return b.lastCookie[path]
}

func (b *Backend) count(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.callsMu.Lock()
		b.calls[r.URL.Path]++
		b.lastCookie[r.URL.Path] = r.Header.Get("Cookie")
		b.callsMu.Unlock()
		next(w, r)
	}
}

func (b *Backend) authorized(next func(http.ResponseWriter, *http.Request, users.Profile)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b.rejectNext.Add(-1) >= 0 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		c, err := r.Cookie("access_token")
		if err != nil || token.RemainingLifetime(c.Value) == 0 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		b.mu.Lock()
		email, ok := b.access[c.Value]
		acct := b.accounts[email]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		next(w, r, acct.profile)
	}
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	b.Logins.Add(1)
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid body"})
		return
	}

	b.mu.Lock()
	acct, ok := b.accounts[body.Email]
	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(body.Password)) != nil {
		b.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	setCookies := b.issueLocked(body.Email)
	acct.profile.LastLogin = utils.Ptr(time.Now().UTC().Truncate(time.Second))
	b.accounts[body.Email] = acct
	b.mu.Unlock()

	for _, sc := range setCookies {
		w.Header().Add("Set-Cookie", sc)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful", "user": acct.profile})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.Logouts.Add(1)
	if b.failLogout.Load() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Logout failed"})
		return
	}
	b.mu.Lock()
	if c, err := r.Cookie("access_token"); err == nil {
		delete(b.access, c.Value)
	}
	if c, err := r.Cookie("refresh_token"); err == nil {
		delete(b.refresh, c.Value)
	}
	b.mu.Unlock()

	for _, name := range []string{"access_token", "refresh_token", "logged_in"} {
		http.SetCookie(w, &http.Cookie{Name: name, Path: "/", MaxAge: -1})
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.Refreshes.Add(1)
	if b.RefreshDelay > 0 {
		time.Sleep(b.RefreshDelay)
	}
	if b.failRefresh.Load() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid refresh token"})
		return
	}
	if b.refreshWithoutBody.Load() {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
		return
	}

	c, err := r.Cookie("refresh_token")
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Missing refresh token"})
		return
	}

	b.mu.Lock()
	email, ok := b.refresh[c.Value]
	if !ok || token.RemainingLifetime(c.Value) == 0 {
		b.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid refresh token"})
		return
	}
	delete(b.refresh, c.Value)
	setCookies := b.issueLocked(email)
	b.mu.Unlock()

	for _, sc := range setCookies {
		w.Header().Add("Set-Cookie", sc)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed"})
}

func (b *Backend) handleRegistered(w http.ResponseWriter, r *http.Request, _ users.Profile) {
	b.mu.Lock()
	h, ok := b.handlers[r.URL.Path]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
		return
	}
	h(w, r)
}

func (b *Backend) issueLocked(email string) []string {
	acct := b.accounts[email]
	now := token.NowTimeFunc()
	accessToken := mint(acct.profile.ID, now, b.AccessTTL)
	refreshToken := mint(acct.profile.ID, now, b.RefreshTTL)
	b.access[accessToken] = email
	b.refresh[refreshToken] = email

	return []string{
		sessionCookie("access_token", accessToken, b.AccessTTL).String(),
		sessionCookie("refresh_token", refreshToken, b.RefreshTTL).String(),
	}
}

func mint(subject string, now time.Time, ttl time.Duration) string {
	return tokenfake.Mint(jwtlib.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
	})
}

func sessionCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
