// Package routes holds the portal's page paths and the set of public-only pages.
package routes

import "strings"

const (
	Home           = "/"
	SignIn         = "/sign-in"
	SignUp         = "/sign-up"
	ForgotPassword = "/forgot-password"
	Dashboard      = "/dashboard"
	Profile        = "/profile"
)

// publicOnly lists pages only an unauthenticated visitor should see.
var publicOnly = map[string]struct{}{
	SignIn:         {},
	SignUp:         {},
	ForgotPassword: {},
}

// IsPublic reports whether path is one of the public-only pages. Trailing slashes are ignored.
func IsPublic(path string) bool {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	_, ok := publicOnly[path]
	return ok
}

// Public returns the public-only page paths.
func Public() []string {
	return []string{SignIn, SignUp, ForgotPassword}
}
