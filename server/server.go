package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-clinic-portal/actions"
	"github.com/jrsteele09/go-clinic-portal/apiclient"
	"github.com/jrsteele09/go-clinic-portal/authstore/snapshot"
	"github.com/jrsteele09/go-clinic-portal/guard"
	"github.com/jrsteele09/go-clinic-portal/internal/config"
	"github.com/jrsteele09/go-clinic-portal/internal/obs"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	api       *apiclient.Client
	guard     *guard.Provider
	actions   *actions.Service
	snapshots snapshot.Repo
	loginRate *IPRateLimiter
	pages     *pageTemplates
}

// New wires the portal's pages onto the backend client. The login rate limiter lives until ctx
// is done.
func New(ctx context.Context, config config.Config, api *apiclient.Client, snapshots snapshot.Repo) (*Server, error) {
	pages, err := parsePageTemplates()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	limit, burst := config.GetLoginRateLimit()
	s := &Server{
		env:       config.GetEnv(),
		mux:       http.NewServeMux(),
		config:    config,
		api:       api,
		guard:     guard.New(api),
		actions:   actions.New(api),
		snapshots: snapshots,
		loginRate: NewIPRateLimiter(ctx, limit, burst),
		pages:     pages,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

// RegisterRouteFunc registers handler and records request metrics under pattern.
func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, obs.Instrument(pattern, handler))
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
