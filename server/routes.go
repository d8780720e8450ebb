package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-clinic-portal/internal/obs"
	"github.com/jrsteele09/go-clinic-portal/internal/routes"
	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	// Public-only pages
	s.RegisterRouteFunc("GET "+routes.SignIn, ChainMiddleware(s.SignInPageHandler(), s.PageMiddleware()...))
	s.RegisterRouteFunc("GET "+routes.SignUp, ChainMiddleware(s.SignUpPageHandler(), s.PageMiddleware()...))
	s.RegisterRouteFunc("GET "+routes.ForgotPassword, ChainMiddleware(s.ForgotPasswordPageHandler(), s.PageMiddleware()...))

	// Protected pages
	s.RegisterRouteFunc("GET "+routes.Home+"{$}", ChainMiddleware(s.HomeHandler(), s.PageMiddleware()...))
	s.RegisterRouteFunc("GET "+routes.Dashboard, ChainMiddleware(s.DashboardHandler(), s.PageMiddleware()...))
	s.RegisterRouteFunc("GET "+routes.Profile, ChainMiddleware(s.ProfileHandler(), s.PageMiddleware()...))

	// LOGIN
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare(s.SessionMiddleware, s.LoginRateLimitMiddleware)...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare(s.SessionMiddleware)...))

	// Operations
	s.RegisterRouteHandler("GET "+RouteMetrics, obs.Handler())
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteStaticCSS, ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleWare(s.CacheMiddleware)...))
}

// PageMiddleware is the chain of every rendered page: the HTML chain, then the session and the
// route guard.
func (s *Server) PageMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return s.HTMLMiddleWare(s.SessionMiddleware, s.GuardMiddleware)
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		err := StreamFile(w, r, filePath)
		if err != nil {
			logError(r.Method, filePath, err)
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}

func logError(method, path string, err error) {
	log.Warn().Err(err).Msgf("[%-19s] %s", colourMethod(method), path)
}
