package authstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-clinic-portal/authstore"
	"github.com/jrsteele09/go-clinic-portal/authstore/snapshot"
	"github.com/jrsteele09/go-clinic-portal/cookies"
	"github.com/jrsteele09/go-clinic-portal/session"
	"github.com/jrsteele09/go-clinic-portal/token/tokenfake"
	"github.com/jrsteele09/go-clinic-portal/users"
	"github.com/stretchr/testify/require"
)

var ana = &users.Profile{ID: "user-1", Name: "Ana", Email: "ana@clinic.test"}

func newStore(t *testing.T, repo snapshot.Repo) (*authstore.Store, *cookies.MemoryJar) {
	t.Helper()
	jar := cookies.NewMemoryJar()
	return authstore.New(session.New(jar, cookies.Attributes{}), repo), jar
}

func TestNew_StartsLoadingWithoutHydrating(t *testing.T) {
	repo := snapshot.NewInMemoryRepo()
	require.NoError(t, repo.Upsert("user-1", snapshot.Snapshot{Profile: ana}))

	store, _ := newStore(t, repo)
	require.True(t, store.IsLoading())
	require.Nil(t, store.Profile())
	require.Equal(t, authstore.LifecycleInit, store.Lifecycle())
}

func TestSetUser(t *testing.T) {
	store, _ := newStore(t, nil)

	store.SetUser(ana)
	require.Equal(t, ana, store.Profile())
	require.True(t, store.IsAuthenticated())
	require.False(t, store.IsLoading())
	require.Equal(t, authstore.LifecycleActive, store.Lifecycle())

	store.SetUser(nil)
	require.Nil(t, store.Profile())
	require.False(t, store.IsAuthenticated())
}

func TestSetTokens_WritesCookiesAndMarker(t *testing.T) {
	store, jar := newStore(t, nil)
	store.SetTokens("abc", "def")

	require.True(t, store.IsAuthenticated())
	for name, want := range map[string]string{
		session.AccessTokenCookie:  "abc",
		session.RefreshTokenCookie: "def",
		session.LoggedInCookie:     "true",
	} {
		got, ok := jar.Get(name)
		require.True(t, ok, name)
		require.Equal(t, want, got, name)
	}
	require.True(t, store.Session().Current().IsAuthenticated)
}

func TestLogout_ClearsEverything(t *testing.T) {
	repo := snapshot.NewInMemoryRepo()
	store, jar := newStore(t, repo)
	store.SetTokens(tokenfake.ExpiringIn("user-1", time.Hour), tokenfake.ExpiringIn("user-1", 24*time.Hour))
	store.SetUser(ana)

	_, err := repo.Get("user-1")
	require.NoError(t, err, "profile persisted under the token subject")

	store.Logout()
	require.Nil(t, store.Profile())
	require.False(t, store.IsAuthenticated())
	require.Equal(t, authstore.LifecycleCleared, store.Lifecycle())
	require.Equal(t, session.Tokens{}, store.Session().Current())
	for _, name := range []string{session.AccessTokenCookie, session.RefreshTokenCookie, session.LoggedInCookie} {
		_, ok := jar.Get(name)
		require.False(t, ok, name)
	}
	_, err = repo.Get("user-1")
	require.Error(t, err)
}

func TestHydrate_RestoresOnce(t *testing.T) {
	repo := snapshot.NewInMemoryRepo()
	jar := cookies.NewMemoryJar()
	state := session.New(jar, cookies.Attributes{})
	refresh := tokenfake.ExpiringIn("user-1", 24*time.Hour)
	state.Save(tokenfake.ExpiringIn("user-1", time.Hour), refresh)
	require.NoError(t, repo.Upsert("user-1", snapshot.Snapshot{Profile: ana, Session: snapshot.Fingerprint(refresh)}))

	store := authstore.New(state, repo)
	store.Hydrate(context.Background())
	require.Equal(t, ana.ID, store.Profile().ID)
	require.True(t, store.IsAuthenticated())
	require.Equal(t, authstore.LifecycleHydrated, store.Lifecycle())

	require.NoError(t, repo.Upsert("user-1", snapshot.Snapshot{Profile: &users.Profile{ID: "user-1", Name: "changed"}}))
	store.Hydrate(context.Background())
	require.Equal(t, "Ana", store.Profile().Name, "second hydrate is a no-op")
}

func TestHydrate_DiscardsSnapshotOfUnauthenticatedSession(t *testing.T) {
	repo := snapshot.NewInMemoryRepo()
	jar := cookies.NewMemoryJar()
	refresh := tokenfake.ExpiringIn("user-1", 24*time.Hour)
	jar.Set(session.AccessTokenCookie, tokenfake.ExpiringIn("user-1", time.Hour), cookies.Attributes{})
	jar.Set(session.RefreshTokenCookie, refresh, cookies.Attributes{})
	require.NoError(t, repo.Upsert("user-1", snapshot.Snapshot{Profile: ana, Session: snapshot.Fingerprint(refresh)}))

	store := authstore.New(session.New(jar, cookies.Attributes{}), repo)
	require.False(t, store.IsAuthenticated(), "no logged_in marker")
	store.Hydrate(context.Background())

	require.Nil(t, store.Profile())
	_, err := repo.Get("user-1")
	require.Error(t, err)
}

func TestHydrate_IgnoresSnapshotOfAnotherSession(t *testing.T) {
	repo := snapshot.NewInMemoryRepo()
	owner := tokenfake.ExpiringIn("user-1", 24*time.Hour)
	require.NoError(t, repo.Upsert("user-1", snapshot.Snapshot{Profile: ana, Session: snapshot.Fingerprint(owner)}))

	forged := tokenfake.ExpiringIn("user-1", 2*time.Hour)
	state := session.New(cookies.NewMemoryJar(), cookies.Attributes{})
	state.Save(forged, forged)
	store := authstore.New(state, repo)

	store.Hydrate(context.Background())
	require.Nil(t, store.Profile(), "same subject, different refresh token")

	store.SetUser(nil)
	store.Logout()
	snap, err := repo.Get("user-1")
	require.NoError(t, err, "another session cannot discard the snapshot")
	require.True(t, snap.BelongsTo(snapshot.Fingerprint(owner)))
}

func TestSync_FollowsRenewedTokens(t *testing.T) {
	repo := snapshot.NewInMemoryRepo()
	store, _ := newStore(t, repo)
	oldRefresh := tokenfake.ExpiringIn("user-1", 24*time.Hour)
	store.SetTokens(tokenfake.ExpiringIn("user-1", time.Hour), oldRefresh)
	store.SetUser(ana)

	store.Sync()
	snap, err := repo.Get("user-1")
	require.NoError(t, err)
	require.True(t, snap.BelongsTo(snapshot.Fingerprint(oldRefresh)))

	newRefresh := tokenfake.ExpiringIn("user-1", 48*time.Hour)
	store.Session().Save(tokenfake.ExpiringIn("user-1", 2*time.Hour), newRefresh)
	store.Sync()

	snap, err = repo.Get("user-1")
	require.NoError(t, err)
	require.True(t, snap.BelongsTo(snapshot.Fingerprint(newRefresh)))
	require.False(t, snap.BelongsTo(snapshot.Fingerprint(oldRefresh)))
	require.Equal(t, ana.Name, snap.Profile.Name)
}

func TestHydrate_NoSnapshotRepo(t *testing.T) {
	store, _ := newStore(t, nil)
	store.Hydrate(context.Background())
	require.Nil(t, store.Profile())
	require.Equal(t, authstore.LifecycleHydrated, store.Lifecycle())
}

func TestLifecycleString(t *testing.T) {
	require.Equal(t, "init", authstore.LifecycleInit.String())
	require.Equal(t, "cleared", authstore.LifecycleCleared.String())
}

func TestSetUserNil_AfterSessionClearedElsewhere(t *testing.T) {
	repo := snapshot.NewInMemoryRepo()
	store, _ := newStore(t, repo)
	store.SetTokens(tokenfake.ExpiringIn("user-1", time.Hour), tokenfake.ExpiringIn("user-1", 24*time.Hour))
	store.SetUser(ana)

	store.Session().Clear()
	store.SetUser(nil)

	_, err := repo.Get("user-1")
	require.Error(t, err, "the snapshot follows the session out")
}

func TestSetSessionCookies(t *testing.T) {
	store, jar := newStore(t, nil)

	require.False(t, store.SetSessionCookies([]string{"access_token=abc; Path=/"}))
	require.False(t, store.IsAuthenticated())

	require.True(t, store.SetSessionCookies([]string{
		"access_token=abc; Path=/; HttpOnly",
		"refresh_token=def; Path=/; HttpOnly",
	}))
	require.True(t, store.IsAuthenticated())
	require.Equal(t, authstore.LifecycleActive, store.Lifecycle())
	marker, ok := jar.Get(session.LoggedInCookie)
	require.True(t, ok)
	require.Equal(t, "true", marker)
}
