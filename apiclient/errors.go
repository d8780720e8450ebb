package apiclient

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-clinic-portal/internal/errors"
)

// StatusError is a backend response with a 4xx/5xx status. The body is kept for diagnostics.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apiclient: %s %s returned %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsStatus reports whether err carries a backend response with the given status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == status
}

// RedirectError ends the current handler: the session is gone and the user must be sent to
// Location. Callers do not resume the work that produced it.
type RedirectError struct {
	Location string
	Cause    error
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("apiclient: redirect to %s: %v", e.Location, e.Cause)
}

func (e *RedirectError) Unwrap() error {
	return e.Cause
}

// AsRedirect extracts a RedirectError from err's chain.
func AsRedirect(err error) (*RedirectError, bool) {
	var re *RedirectError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
