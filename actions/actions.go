// Package actions implements the form submissions that change who is signed in.
package actions

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-clinic-portal/apiclient"
	"github.com/jrsteele09/go-clinic-portal/authstore"
	"github.com/jrsteele09/go-clinic-portal/internal/errors"
	"github.com/jrsteele09/go-clinic-portal/internal/routes"
	"github.com/rs/zerolog/log"
)

// Backend is the part of the API client the actions use.
type Backend interface {
	Login(ctx context.Context, email, password string) (*apiclient.LoginResult, error)
	Logout(ctx context.Context, creds apiclient.Credentials) error
}

var _ Backend = (*apiclient.Client)(nil)

// LoginInput is the sign in form.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ValidationError maps form fields to the rule they broke (required, email, ...).
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f, rule := range e.Fields {
		fields = append(fields, f+" ("+rule+")")
	}
	return "invalid input: " + strings.Join(fields, ", ")
}

type Service struct {
	backend  Backend
	validate *validator.Validate
}

func New(backend Backend) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Service{backend: backend, validate: v}
}

// Login signs in and returns where to send the user. Input is validated before the backend is
// called.
func (s *Service) Login(ctx context.Context, store *authstore.Store, in LoginInput) (string, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.Validate(in); err != nil {
		return "", err
	}

	result, err := s.backend.Login(ctx, in.Email, in.Password)
	if err != nil {
		return "", err
	}
	if !store.SetSessionCookies(result.SetCookies) {
		store.Logout()
		return "", errors.ErrNoSessionIssued
	}
	userID := ""
	if result.User != nil {
		store.SetUser(result.User)
		userID = result.User.ID
	}
	log.Info().Str("user", userID).Msg("User signed in")
	return routes.Dashboard, nil
}

// Logout ends the session and returns the sign-in route. A failing backend call does not keep the
// user signed in.
func (s *Service) Logout(ctx context.Context, store *authstore.Store) string {
	if err := s.backend.Logout(ctx, store.Session()); err != nil {
		log.Err(err).Msg("Backend logout failed")
	}
	store.Logout()
	return routes.SignIn
}

// Validate checks in against its struct tags.
func (s *Service) Validate(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrapf(errors.ErrInternal, "validate: %v", err)
	}
	ve := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields[fe.Field()] = fe.Tag()
	}
	return ve
}
