package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-clinic-portal/actions"
	"github.com/jrsteele09/go-clinic-portal/apiclient"
	"github.com/jrsteele09/go-clinic-portal/internal/errors"
	"github.com/jrsteele09/go-clinic-portal/internal/i18n"
	"github.com/jrsteele09/go-clinic-portal/internal/routes"
	"github.com/rs/zerolog/log"
)

// signInForm is the state of the sign in form
type signInForm struct {
	Email       string
	Error       string
	FieldErrors map[string]string
}

// SignInPageHandler displays the sign in page (GET /sign-in)
func (s *Server) SignInPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderSignIn(w, r, http.StatusOK, signInForm{Email: r.URL.Query().Get("email")})
	}
}

// LoginSubmissionHandler processes the sign in form (POST /auth/login)
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := StoreFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		input := actions.LoginInput{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
		}
		redirect, err := s.actions.Login(r.Context(), store, input)
		if err != nil {
			s.renderLoginError(w, r, input.Email, err)
			return
		}
		redirectSuccess(w, r, redirect)
	}
}

// LogoutHandler ends the session (POST /auth/logout)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := StoreFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		redirect := s.actions.Logout(r.Context(), store)
		redirectSuccess(w, r, redirect+"?message="+url.QueryEscape(translator(r).T(i18n.KeySignedOut)))
	}
}

// renderLoginError maps a failed sign in to what the user sees: field messages for invalid input,
// a flash message for everything else.
func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, email string, err error) {
	t := translator(r)

	var ve *actions.ValidationError
	switch {
	case errors.As(err, &ve):
		form := signInForm{Email: email, FieldErrors: make(map[string]string, len(ve.Fields))}
		for field, rule := range ve.Fields {
			form.FieldErrors[field] = t.T(fieldMessageKey(rule))
		}
		s.renderSignIn(w, r, http.StatusUnprocessableEntity, form)
	case errors.Is(err, errors.ErrInvalidCredentials):
		redirectWithError(w, r, routes.SignIn, t.T(i18n.KeyInvalidCredentials))
	default:
		if re, ok := apiclient.AsRedirect(err); ok {
			redirectWithError(w, r, re.Location, t.T(i18n.KeySessionExpired))
			return
		}
		log.Err(err).Str("request_id", requestID(r)).Msg("Sign in failed")
		redirectWithError(w, r, routes.SignIn, t.T(i18n.KeyGenericError))
	}
}

func (s *Server) renderSignIn(w http.ResponseWriter, r *http.Request, status int, form signInForm) {
	data := s.newPageData(r, i18n.KeySignInTitle)
	data.Form = form
	s.pages.render(w, pageSignIn, status, data)
}

func fieldMessageKey(rule string) string {
	switch rule {
	case "required":
		return i18n.KeyFieldRequired
	case "email":
		return i18n.KeyFieldEmail
	}
	return i18n.KeyFieldInvalid
}
