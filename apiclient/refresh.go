package apiclient

import (
	"context"

	"github.com/jrsteele09/go-clinic-portal/cookies"
	"github.com/jrsteele09/go-clinic-portal/internal/errors"
	"github.com/jrsteele09/go-clinic-portal/internal/obs"
	"golang.org/x/sync/singleflight"
)

// refresher makes sure only one refresh per session cookie pair is in flight across the process.
// Parallel requests of one browser arrive with the same Cookie header and share the result of the
// flight they joined. Nothing is kept once the flight lands.
type refresher struct {
	group singleflight.Group
}

// refresh exchanges cookieHeader for new session cookies. Concurrent callers sending the exact same
// Cookie header share one backend call, which is detached from the cancellation of whichever
// caller started it.
func (c *Client) refresh(ctx context.Context, trigger, cookieHeader string) ([]string, error) {
	v, err, shared := c.refresher.group.Do(cookieHeader, func() (any, error) {
		return c.RefreshToken(context.WithoutCancel(ctx), cookieHeader)
	})
	switch {
	case err != nil:
		obs.ObserveRefresh(trigger, "failed")
		return nil, err
	case shared:
		obs.ObserveRefresh(trigger, "shared")
	default:
		obs.ObserveRefresh(trigger, "success")
	}
	return copyStrings(v.([]string)), nil
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func mergeCookieHeader(cookieHeader string, setCookies []string) string {
	return cookies.MergeHeader(cookieHeader, cookies.Pairs(setCookies))
}

func sessionExpired(cause error) error {
	if errors.Is(cause, errors.ErrSessionExpired) {
		return cause
	}
	return errors.Wrapf(errors.ErrSessionExpired, "%v", cause)
}
