package server

// Route path constants owned by the web front. Page paths live in internal/routes.
const (
	// Auth Routes - form submissions
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Operations
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)
