// Package guard decides, for one navigation, whether the visitor is signed in and where they must
// be sent. It rehydrates the auth store, fetches the profile when only cookies are known and
// keeps signed in users off the sign-in pages.
package guard

import (
	"context"

	"github.com/jrsteele09/go-clinic-portal/apiclient"
	"github.com/jrsteele09/go-clinic-portal/authstore"
	"github.com/jrsteele09/go-clinic-portal/internal/obs"
	"github.com/jrsteele09/go-clinic-portal/internal/routes"
	"github.com/jrsteele09/go-clinic-portal/users"
	"github.com/rs/zerolog/log"
)

type State int

const (
	StateHydrating State = iota
	StateChecking
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateHydrating:
		return "hydrating"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// ProfileFetcher loads the signed in user from the backend.
type ProfileFetcher interface {
	Profile(ctx context.Context, creds apiclient.Credentials) (*users.Profile, error)
}

// Decision is the outcome of one evaluation. Redirect is empty when the route may render.
type Decision struct {
	State       State
	Redirect    string
	Transitions []State
	Err         error
}

// Provider evaluates routes against an auth store.
type Provider struct {
	profiles ProfileFetcher
}

func New(profiles ProfileFetcher) *Provider {
	return &Provider{profiles: profiles}
}

// Evaluate runs the guard for route: hydrate the store, settle on authenticated or not, then pick
// a redirect. It runs on every navigation; nothing about a previous decision is kept.
func (p *Provider) Evaluate(ctx context.Context, store *authstore.Store, route string) Decision {
	d := Decision{State: StateHydrating, Transitions: []State{StateHydrating}}

	store.Hydrate(ctx)
	d.moveTo(StateChecking)

	switch {
	case store.Profile() != nil:
		store.SetLoading(false)
		d.moveTo(StateAuthenticated)
	case store.Session().Current().AccessToken != "":
		if profile, err := p.fetch(ctx, store); err != nil {
			d.Err = err
			d.moveTo(StateUnauthenticated)
			if re, ok := apiclient.AsRedirect(err); ok {
				d.Redirect = re.Location
			}
		} else {
			d.moveTo(StateAuthenticated)
			log.Debug().Str("user", profile.ID).Msg("Profile loaded")
		}
	default:
		store.SetUser(nil)
		d.moveTo(StateUnauthenticated)
	}

	if d.Redirect == "" {
		d.Redirect = redirectFor(d.State, route)
	}
	if d.State == StateUnauthenticated && routes.IsPublic(route) {
		d.Redirect = ""
	}
	obs.ObserveGuard(d.State.String(), d.Redirect)
	return d
}

// RefreshProfile refetches the profile even when one is cached.
func (p *Provider) RefreshProfile(ctx context.Context, store *authstore.Store) (*users.Profile, error) {
	return p.fetch(ctx, store)
}

func (p *Provider) fetch(ctx context.Context, store *authstore.Store) (*users.Profile, error) {
	store.SetLoading(true)
	profile, err := p.profiles.Profile(ctx, store.Session())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch profile")
		store.SetUser(nil)
		return nil, err
	}
	store.SetUser(profile)
	return profile, nil
}

func redirectFor(state State, route string) string {
	public := routes.IsPublic(route)
	switch {
	case state == StateAuthenticated && public:
		return routes.Home
	case state == StateUnauthenticated && !public:
		return routes.SignIn
	}
	return ""
}

func (d *Decision) moveTo(s State) {
	d.State = s
	d.Transitions = append(d.Transitions, s)
}
