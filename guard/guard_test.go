package guard_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-clinic-portal/apiclient"
	"github.com/jrsteele09/go-clinic-portal/authstore"
	"github.com/jrsteele09/go-clinic-portal/authstore/snapshot"
	"github.com/jrsteele09/go-clinic-portal/cookies"
	"github.com/jrsteele09/go-clinic-portal/guard"
	"github.com/jrsteele09/go-clinic-portal/internal/errors"
	"github.com/jrsteele09/go-clinic-portal/session"
	"github.com/jrsteele09/go-clinic-portal/token/tokenfake"
	"github.com/jrsteele09/go-clinic-portal/users"
	"github.com/stretchr/testify/require"
)

var ana = &users.Profile{ID: "user-1", Name: "Ana", Email: "ana@clinic.test", IsActive: true}

type fakeProfiles struct {
	profile *users.Profile
	err     error
	calls   atomic.Int32
	loading atomic.Bool
	store   *authstore.Store
}

func (f *fakeProfiles) Profile(_ context.Context, _ apiclient.Credentials) (*users.Profile, error) {
	f.calls.Add(1)
	if f.store != nil {
		f.loading.Store(f.store.IsLoading())
	}
	return f.profile, f.err
}

func signedInStore(t *testing.T, repo snapshot.Repo) *authstore.Store {
	t.Helper()
	state := session.New(cookies.NewMemoryJar(), cookies.Attributes{})
	state.Save(tokenfake.ExpiringIn("user-1", time.Hour), tokenfake.ExpiringIn("user-1", 24*time.Hour))
	return authstore.New(state, repo)
}

// cacheProfile saves profile as the snapshot of store's session.
func cacheProfile(t *testing.T, repo snapshot.Repo, store *authstore.Store, profile *users.Profile) {
	t.Helper()
	fingerprint := snapshot.Fingerprint(store.Session().Current().RefreshToken)
	require.NoError(t, repo.Upsert("user-1", snapshot.Snapshot{Profile: profile, Session: fingerprint}))
}

func anonymousStore() *authstore.Store {
	return authstore.New(session.New(cookies.NewMemoryJar(), cookies.Attributes{}), snapshot.NewInMemoryRepo())
}

func TestEvaluate_CachedProfileOnSignInRedirectsHome(t *testing.T) {
	repo := snapshot.NewInMemoryRepo()
	store := signedInStore(t, repo)
	cacheProfile(t, repo, store, ana)
	profiles := &fakeProfiles{}

	d := guard.New(profiles).Evaluate(context.Background(), store, "/sign-in")

	require.Equal(t, guard.StateAuthenticated, d.State)
	require.Equal(t, "/", d.Redirect)
	require.Equal(t, []guard.State{guard.StateHydrating, guard.StateChecking, guard.StateAuthenticated}, d.Transitions)
	require.Zero(t, profiles.calls.Load(), "a cached profile is not refetched")
	require.Equal(t, ana.ID, store.Profile().ID)
	require.False(t, store.IsLoading())
}

func TestEvaluate_FetchesProfileOnce(t *testing.T) {
	store := signedInStore(t, snapshot.NewInMemoryRepo())
	profiles := &fakeProfiles{profile: ana, store: store}
	provider := guard.New(profiles)

	d := provider.Evaluate(context.Background(), store, "/dashboard")
	require.Equal(t, guard.StateAuthenticated, d.State)
	require.Empty(t, d.Redirect)
	require.EqualValues(t, 1, profiles.calls.Load())
	require.True(t, profiles.loading.Load(), "loading is set while fetching")
	require.False(t, store.IsLoading())
	require.Equal(t, ana, store.Profile())

	d = provider.Evaluate(context.Background(), store, "/profile")
	require.Equal(t, guard.StateAuthenticated, d.State)
	require.EqualValues(t, 1, profiles.calls.Load())
}

func TestEvaluate_ProfileFailureIsUnauthenticated(t *testing.T) {
	store := signedInStore(t, snapshot.NewInMemoryRepo())
	profiles := &fakeProfiles{err: &apiclient.StatusError{Method: http.MethodGet, Path: "/profile", StatusCode: http.StatusInternalServerError}}

	d := guard.New(profiles).Evaluate(context.Background(), store, "/dashboard")

	require.Equal(t, guard.StateUnauthenticated, d.State)
	require.Equal(t, "/sign-in", d.Redirect)
	require.Error(t, d.Err)
	require.Nil(t, store.Profile())
	require.False(t, store.IsAuthenticated())
}

func TestEvaluate_ExpiredSessionFollowsRedirect(t *testing.T) {
	store := signedInStore(t, snapshot.NewInMemoryRepo())
	profiles := &fakeProfiles{err: &apiclient.RedirectError{Location: "/login", Cause: errors.ErrSessionExpired}}

	d := guard.New(profiles).Evaluate(context.Background(), store, "/dashboard")

	require.Equal(t, guard.StateUnauthenticated, d.State)
	require.Equal(t, "/login", d.Redirect)
}

func TestEvaluate_Anonymous(t *testing.T) {
	tests := []struct {
		route    string
		redirect string
	}{
		{route: "/", redirect: "/sign-in"},
		{route: "/dashboard", redirect: "/sign-in"},
		{route: "/sign-in", redirect: ""},
		{route: "/sign-up/", redirect: ""},
		{route: "/forgot-password", redirect: ""},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			profiles := &fakeProfiles{}
			d := guard.New(profiles).Evaluate(context.Background(), anonymousStore(), tt.route)

			require.Equal(t, guard.StateUnauthenticated, d.State)
			require.Equal(t, tt.redirect, d.Redirect)
			require.Zero(t, profiles.calls.Load())
		})
	}
}

func TestEvaluate_StaleSnapshotIsIgnored(t *testing.T) {
	repo := snapshot.NewInMemoryRepo()
	refresh := tokenfake.ExpiringIn("user-1", 24*time.Hour)
	require.NoError(t, repo.Upsert("user-1", snapshot.Snapshot{Profile: ana, Session: snapshot.Fingerprint(refresh)}))

	jar := cookies.NewMemoryJar()
	jar.Set(session.AccessTokenCookie, tokenfake.ExpiringIn("user-1", time.Hour), cookies.Attributes{})
	jar.Set(session.RefreshTokenCookie, refresh, cookies.Attributes{})
	store := authstore.New(session.New(jar, cookies.Attributes{}), repo)
	profiles := &fakeProfiles{err: errors.ErrNotAuthenticated}

	d := guard.New(profiles).Evaluate(context.Background(), store, "/dashboard")

	require.Equal(t, guard.StateUnauthenticated, d.State)
	require.Equal(t, "/sign-in", d.Redirect)
	_, err := repo.Get("user-1")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestEvaluate_ForgedSubjectDoesNotReadCachedProfile(t *testing.T) {
	repo := snapshot.NewInMemoryRepo()
	owner := signedInStore(t, repo)
	cacheProfile(t, repo, owner, ana)

	forged := tokenfake.ExpiringIn("user-1", 2*time.Hour)
	state := session.New(cookies.NewMemoryJar(), cookies.Attributes{})
	state.Save(forged, forged)
	store := authstore.New(state, repo)
	profiles := &fakeProfiles{err: &apiclient.RedirectError{Location: "/sign-in", Cause: errors.ErrSessionExpired}}

	d := guard.New(profiles).Evaluate(context.Background(), store, "/dashboard")

	require.Equal(t, guard.StateUnauthenticated, d.State)
	require.Equal(t, "/sign-in", d.Redirect)
	require.EqualValues(t, 1, profiles.calls.Load(), "the backend decides, not the snapshot")
	require.Nil(t, store.Profile())

	snap, err := repo.Get("user-1")
	require.NoError(t, err)
	require.Equal(t, ana, snap.Profile)
}

func TestRefreshProfile(t *testing.T) {
	repo := snapshot.NewInMemoryRepo()
	store := signedInStore(t, repo)
	cacheProfile(t, repo, store, ana)
	updated := &users.Profile{ID: "user-1", Name: "Ana Maria", Email: "ana@clinic.test"}
	profiles := &fakeProfiles{profile: updated}
	provider := guard.New(profiles)

	provider.Evaluate(context.Background(), store, "/profile")
	require.Zero(t, profiles.calls.Load())

	p, err := provider.RefreshProfile(context.Background(), store)
	require.NoError(t, err)
	require.Equal(t, "Ana Maria", p.Name)
	require.Equal(t, updated, store.Profile())

	snap, err := repo.Get("user-1")
	require.NoError(t, err)
	require.Equal(t, "Ana Maria", snap.Profile.Name)
}
