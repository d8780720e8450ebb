package apiclient

import (
	"context"

	"github.com/jrsteele09/go-clinic-portal/internal/errors"
	"github.com/jrsteele09/go-clinic-portal/token"
	"golang.org/x/oauth2"
)

type sessionTokenSource struct {
	ctx    context.Context
	client *Client
	creds  Credentials
}

// TokenSource returns the session's access token as an oauth2.Token, renewing it first when it is
// about to expire. Renewal goes through the same shared refresh as the 401 path.
func (c *Client) TokenSource(ctx context.Context, creds Credentials) oauth2.TokenSource {
	return &sessionTokenSource{ctx: ctx, client: c, creds: creds}
}

func (s *sessionTokenSource) Token() (*oauth2.Token, error) {
	if s.creds.ShouldRefreshToken() {
		sent := s.creds.Current().CookieHeader()
		setCookies, err := s.client.refresh(s.ctx, "proactive", sent)
		switch {
		case err == nil:
			s.creds.SetTokens(setCookies)
		case !movedOn(s.creds, sent):
			return nil, err
		}
	}

	current := s.creds.Current()
	if current.AccessToken == "" {
		return nil, errors.ErrNotAuthenticated
	}
	tok := &oauth2.Token{AccessToken: current.AccessToken, RefreshToken: current.RefreshToken}
	if exp, err := token.Expiry(current.AccessToken); err == nil {
		tok.Expiry = exp
	}
	return tok, nil
}
