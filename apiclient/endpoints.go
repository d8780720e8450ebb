package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/jrsteele09/go-clinic-portal/internal/errors"
	"github.com/jrsteele09/go-clinic-portal/users"
)

// Backend paths
const (
	LoginPath        = "/auth/login"
	LogoutPath       = "/auth/logout"
	RefreshTokenPath = "/auth/refresh-token"
	VerifyPath       = "/auth/verify"
	ProfilePath      = "/profile"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is a successful sign in: the raw Set-Cookie headers of the new session and the
// user when the backend returned one.
type LoginResult struct {
	SetCookies []string
	User       *users.Profile
	Message    string
}

type loginResponse struct {
	Message string         `json:"message"`
	User    *users.Profile `json:"user"`
}

// Login posts the credentials. It does not touch any session; the caller stores the cookies.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	req, err := c.NewRequest(ctx, http.MethodPost, LoginPath, loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	resp, err := c.send(req)
	if err != nil {
		if IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusBadRequest) {
			return nil, errors.Wrapf(errors.ErrInvalidCredentials, "login %s", email)
		}
		return nil, err
	}
	defer resp.Body.Close()

	result := &LoginResult{SetCookies: resp.Header.Values("Set-Cookie")}
	if len(result.SetCookies) == 0 {
		return nil, errors.ErrNoSessionIssued
	}

	var body loginResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if len(data) > 0 && json.Unmarshal(data, &body) == nil {
		result.User = body.User
		result.Message = body.Message
	}
	return result, nil
}

// Logout ends the session on the backend. It bypasses the refresh protocol.
func (c *Client) Logout(ctx context.Context, creds Credentials) error {
	req, err := c.NewRequest(ctx, http.MethodPost, LogoutPath, nil)
	if err != nil {
		return err
	}
	if header := creds.Current().CookieHeader(); header != "" {
		req.Header.Set("Cookie", header)
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// RefreshToken asks the backend for a new token pair. Only a 200 carrying Set-Cookie headers
// counts as success.
func (c *Client) RefreshToken(ctx context.Context, cookieHeader string) ([]string, error) {
	req, err := c.NewRequest(ctx, http.MethodPost, RefreshTokenPath, nil)
	if err != nil {
		return nil, err
	}
	if cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrRefreshFailed, "%v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrRefreshFailed, "status %d", resp.StatusCode)
	}
	setCookies := resp.Header.Values("Set-Cookie")
	if len(setCookies) == 0 {
		return nil, errors.ErrNoRefreshCookies
	}
	return setCookies, nil
}

// Profile fetches the signed in user.
func (c *Client) Profile(ctx context.Context, creds Credentials) (*users.Profile, error) {
	var p users.Profile
	if err := c.GetJSON(ctx, creds, ProfilePath, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Verify reports whether the backend still accepts the session.
func (c *Client) Verify(ctx context.Context, creds Credentials) error {
	return c.GetJSON(ctx, creds, VerifyPath, nil)
}
