// Package apiclient talks to the portal's REST backend on behalf of one browser session. Every
// request carries the session's cookies; a 401 triggers one token refresh and one resend of the
// original request.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-clinic-portal/internal/obs"
	"github.com/jrsteele09/go-clinic-portal/internal/routes"
	"github.com/jrsteele09/go-clinic-portal/session"
	"github.com/rs/zerolog/log"
)

// Credentials is the session a request is made for.
type Credentials interface {
	Current() session.Tokens
	SetTokens(rawSetCookies []string)
	Clear()
	ShouldRefreshToken() bool
}

var _ Credentials = (*session.State)(nil)

// Client is shared by all requests of the process. Sessions are passed per call.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	signInPath string

	refresher refresher
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for backend calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithSignInPath overrides where a dead session is redirected.
func WithSignInPath(path string) Option {
	return func(c *Client) { c.signInPath = path }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid backend URL %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		signInPath: routes.SignIn,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type retriedKey struct{}

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func isRetried(ctx context.Context) bool {
	retried, _ := ctx.Value(retriedKey{}).(bool)
	return retried
}

// NewRequest builds a backend request for path. A non-nil body is sent as JSON.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("apiclient: failed to encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return nil, fmt.Errorf("apiclient: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := obs.RequestID(ctx); id != "" {
		req.Header.Set(obs.RequestIDHeader, id)
	}
	return req, nil
}

// Do sends req with the session's cookies. Responses below 400 are returned untouched; other
// statuses become a *StatusError. A first 401 refreshes the session and resends req once; when the
// refresh fails the session is logged out and a *RedirectError to the sign-in page is returned.
// A session about to expire is renewed before sending, and that renewal is the only refresh the
// request gets.
func (c *Client) Do(creds Credentials, req *http.Request) (*http.Response, error) {
	if err := bufferBody(req); err != nil {
		return nil, err
	}
	ctx := req.Context()

	refreshed := false
	if !isRetried(ctx) && creds.ShouldRefreshToken() {
		if _, err := c.TokenSource(ctx, creds).Token(); err != nil {
			return nil, c.forceLogout(ctx, creds, err)
		}
		refreshed = true
	}

	out := req.Clone(ctx)
	if header := creds.Current().CookieHeader(); header != "" {
		out.Header.Set("Cookie", header)
	}
	resetBody(out, req)

	resp, err := c.send(out)
	if err == nil {
		return resp, nil
	}
	if !IsStatus(err, http.StatusUnauthorized) || isRetried(ctx) {
		return nil, err
	}
	return c.retryAfterRefresh(creds, out, refreshed)
}

// retryAfterRefresh resends sent once with renewed cookies. When the cookies on sent were renewed
// moments ago it resends them as they are.
func (c *Client) retryAfterRefresh(creds Credentials, sent *http.Request, refreshed bool) (*http.Response, error) {
	ctx := markRetried(sent.Context())
	cookieHeader := sent.Header.Get("Cookie")

	if !refreshed {
		renewed, err := c.renewedCookieHeader(ctx, creds, cookieHeader)
		if err != nil {
			return nil, c.forceLogout(ctx, creds, err)
		}
		cookieHeader = renewed
	}

	retry := sent.Clone(ctx)
	if cookieHeader != "" {
		retry.Header.Set("Cookie", cookieHeader)
	}
	resetBody(retry, sent)

	resp, err := c.send(retry)
	if err != nil {
		obs.ObserveRetry("failed")
		return nil, err
	}
	obs.ObserveRetry("success")
	return resp, nil
}

// renewedCookieHeader returns the Cookie header for the retry. If the session already moved on
// from the cookies that were sent, another request refreshed it and no new refresh is made.
func (c *Client) renewedCookieHeader(ctx context.Context, creds Credentials, sentCookie string) (string, error) {
	if movedOn(creds, sentCookie) {
		return creds.Current().CookieHeader(), nil
	}

	setCookies, err := c.refresh(ctx, "unauthorized", sentCookie)
	if err != nil {
		if movedOn(creds, sentCookie) {
			return creds.Current().CookieHeader(), nil
		}
		return "", err
	}
	creds.SetTokens(setCookies)
	return mergeCookieHeader(sentCookie, setCookies), nil
}

// movedOn reports whether the session holds other cookies than sentCookie, meaning a concurrent
// request of the same session renewed it.
func movedOn(creds Credentials, sentCookie string) bool {
	current := creds.Current()
	return current.AccessToken != "" && current.CookieHeader() != sentCookie
}

// forceLogout tells the backend the session is over, clears it locally and redirects to sign in.
// A failing logout call is only logged.
func (c *Client) forceLogout(ctx context.Context, creds Credentials, cause error) error {
	log.Warn().Err(cause).Msg("Session refresh failed, logging out")
	if err := c.Logout(ctx, creds); err != nil {
		log.Err(err).Msg("Forced logout call failed")
	}
	creds.Clear()
	return &RedirectError{Location: c.signInPath, Cause: sessionExpired(cause)}
}

// send performs req and converts 4xx/5xx responses into *StatusError.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return nil, &StatusError{
		Method:     req.Method,
		Path:       req.URL.Path,
		StatusCode: resp.StatusCode,
		Body:       body,
	}
}

// GetJSON fetches path for the session and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, creds Credentials, path string, out any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(creds, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("apiclient: failed to decode %s: %w", path, err)
	}
	return nil
}

// bufferBody makes req's body replayable so a retry can resend it.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return fmt.Errorf("apiclient: failed to buffer request body: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

// resetBody gives clone a fresh copy of from's body.
func resetBody(clone, from *http.Request) {
	if from.GetBody == nil {
		return
	}
	if body, err := from.GetBody(); err == nil {
		clone.Body = body
		clone.GetBody = from.GetBody
	}
}
