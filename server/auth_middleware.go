package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-clinic-portal/apiclient"
	"github.com/jrsteele09/go-clinic-portal/authstore"
	"github.com/jrsteele09/go-clinic-portal/cookies"
	"github.com/jrsteele09/go-clinic-portal/guard"
	"github.com/jrsteele09/go-clinic-portal/internal/i18n"
	"github.com/jrsteele09/go-clinic-portal/session"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyStore stores the request's auth store
	ContextKeyStore ContextKey = "auth_store"
	// ContextKeyDecision stores the route guard decision
	ContextKeyDecision ContextKey = "guard_decision"
)

// SessionMiddleware binds the request's cookies to a session and an auth store. Every later
// reader and writer of the session cookies in this request goes through them. Tokens renewed while
// serving the request carry the cached profile over.
func (s *Server) SessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jar := cookies.NewRequestJar(w, r)
		state := session.New(jar, s.cookieAttributes(r))
		store := authstore.New(state, s.snapshots)

		ctx := cookies.WithJar(r.Context(), jar)
		ctx = context.WithValue(ctx, ContextKeyStore, store)
		next(w, r.WithContext(ctx))
		store.Sync()
	}
}

// GuardMiddleware runs the route guard and redirects when the visitor may not see the page.
func (s *Server) GuardMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := StoreFromContext(r.Context())
		if !ok {
			log.Error().Str("path", r.URL.Path).Msg("Guard used without session middleware")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		d := s.guard.Evaluate(r.Context(), store, r.URL.Path)
		if d.Redirect != "" {
			if _, expired := apiclient.AsRedirect(d.Err); expired {
				redirectWithError(w, r, d.Redirect, translator(r).T(i18n.KeySessionExpired))
				return
			}
			redirectSuccess(w, r, d.Redirect)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyDecision, d)
		next(w, r.WithContext(ctx))
	}
}

// StoreFromContext returns the auth store set by SessionMiddleware.
func StoreFromContext(ctx context.Context) (*authstore.Store, bool) {
	store, ok := ctx.Value(ContextKeyStore).(*authstore.Store)
	return store, ok && store != nil
}

// DecisionFromContext returns the guard decision for the current page.
func DecisionFromContext(ctx context.Context) (guard.Decision, bool) {
	d, ok := ctx.Value(ContextKeyDecision).(guard.Decision)
	return d, ok
}

// cookieAttributes are used when the portal itself writes the token cookies. Cookies issued by
// the backend keep their own attributes.
func (s *Server) cookieAttributes(r *http.Request) cookies.Attributes {
	secure := s.config.GetSecureCookies()
	return cookies.Attributes{
		Path:     "/",
		Secure:   secure || getScheme(r) == "https",
		HttpOnly: secure,
		SameSite: http.SameSiteLaxMode,
	}
}
