// Package cookies reads and writes named cookies on whatever jar the current execution context
// provides: the request/response pair of a page render, a process-local jar, or none at all.
package cookies

import (
	"context"
	"net/http"
	"time"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Attributes are the cookie attributes applied on Set.
type Attributes struct {
	Path     string
	Domain   string
	MaxAge   int
	Expires  time.Time
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
}

// Jar is the cookie store accessor. None of its operations fail.
type Jar interface {
	Get(name string) (string, bool)
	Set(name, value string, attrs Attributes)
	Delete(name string)
}

// NoJar is used when no cookie jar exists. Reads are absent and writes are dropped.
type NoJar struct{}

var _ Jar = NoJar{}

func (NoJar) Get(string) (string, bool) { return "", false }

func (NoJar) Set(string, string, Attributes) {}

func (NoJar) Delete(string) {}

type jarKey struct{}

// WithJar attaches jar to ctx.
func WithJar(ctx context.Context, jar Jar) context.Context {
	return context.WithValue(ctx, jarKey{}, jar)
}

// FromContext returns the jar attached to ctx, or NoJar when there is none.
func FromContext(ctx context.Context) Jar {
	if ctx == nil {
		return NoJar{}
	}
	if jar, ok := ctx.Value(jarKey{}).(Jar); ok && jar != nil {
		return jar
	}
	return NoJar{}
}

func (a Attributes) cookie(name, value string) *http.Cookie {
	path := a.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   a.Domain,
		MaxAge:   a.MaxAge,
		Expires:  a.Expires,
		Secure:   a.Secure,
		HttpOnly: a.HttpOnly,
		SameSite: a.SameSite,
	}
}

func attributesOf(c *http.Cookie) Attributes {
	return Attributes{
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   c.MaxAge,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: c.SameSite,
	}
}

// expired reports whether the attributes describe a deletion.
func (a Attributes) expired() bool {
	if a.MaxAge < 0 {
		return true
	}
	return !a.Expires.IsZero() && !a.Expires.After(NowTimeFunc())
}
