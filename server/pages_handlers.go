package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-clinic-portal/apiclient"
	"github.com/jrsteele09/go-clinic-portal/internal/i18n"
	"github.com/jrsteele09/go-clinic-portal/internal/obs"
	"github.com/jrsteele09/go-clinic-portal/internal/routes"
	"github.com/jrsteele09/go-clinic-portal/users"
	"github.com/rs/zerolog/log"
)

// pageData is the template model shared by every page
type pageData struct {
	AppName string
	Title   string
	Lang    string
	Path    string
	Profile *users.Profile
	Error   string
	Message string
	Form    signInForm
	T       func(key string, args ...any) string
}

func (s *Server) newPageData(r *http.Request, titleKey string) pageData {
	t := translator(r)
	data := pageData{
		AppName: s.config.GetAppName(),
		Title:   t.T(titleKey),
		Lang:    t.Language().String(),
		Path:    r.URL.Path,
		Error:   r.URL.Query().Get("error"),
		Message: r.URL.Query().Get("message"),
		T:       t.T,
	}
	if store, ok := StoreFromContext(r.Context()); ok {
		data.Profile = store.Profile()
	}
	return data
}

// HomeHandler renders the landing page of a signed in user
func (s *Server) HomeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.pages.render(w, pageHome, http.StatusOK, s.newPageData(r, i18n.KeyHomeTitle))
	}
}

// DashboardHandler renders the dashboard
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.pages.render(w, pageDashboard, http.StatusOK, s.newPageData(r, i18n.KeyDashboardTitle))
	}
}

// ProfileHandler refetches the profile from the backend before rendering it
func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, _ := StoreFromContext(r.Context())
		if _, err := s.guard.RefreshProfile(r.Context(), store); err != nil {
			if re, ok := apiclient.AsRedirect(err); ok {
				redirectWithError(w, r, re.Location, translator(r).T(i18n.KeySessionExpired))
				return
			}
			log.Err(err).Str("request_id", requestID(r)).Msg("Failed to refresh profile")
			redirectWithError(w, r, routes.SignIn, translator(r).T(i18n.KeyGenericError))
			return
		}
		s.pages.render(w, pageProfile, http.StatusOK, s.newPageData(r, i18n.KeyProfileTitle))
	}
}

// SignUpPageHandler renders the sign up page
func (s *Server) SignUpPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.pages.render(w, pageSignUp, http.StatusOK, s.newPageData(r, i18n.KeySignUpTitle))
	}
}

// ForgotPasswordPageHandler renders the forgot password page
func (s *Server) ForgotPasswordPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.pages.render(w, pageForgotPassword, http.StatusOK, s.newPageData(r, i18n.KeyForgotPasswordTitle))
	}
}

// HealthHandler reports liveness
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "env": s.env})
	}
}

func requestID(r *http.Request) string {
	return obs.RequestID(r.Context())
}
