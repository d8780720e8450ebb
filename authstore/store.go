// Package authstore is the user/session state consumed by pages: the current profile, the
// authenticated flag and the loading flag. A Store is an explicit object built for one request and
// passed to whatever needs it; nothing here is process-global.
package authstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-clinic-portal/authstore/snapshot"
	"github.com/jrsteele09/go-clinic-portal/internal/errors"
	"github.com/jrsteele09/go-clinic-portal/session"
	"github.com/jrsteele09/go-clinic-portal/token"
	"github.com/jrsteele09/go-clinic-portal/users"
	"github.com/rs/zerolog/log"
)

// Lifecycle is the store's position in init -> hydrated -> active -> cleared.
type Lifecycle int

const (
	LifecycleInit Lifecycle = iota
	LifecycleHydrated
	LifecycleActive
	LifecycleCleared
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleInit:
		return "init"
	case LifecycleHydrated:
		return "hydrated"
	case LifecycleActive:
		return "active"
	case LifecycleCleared:
		return "cleared"
	}
	return "unknown"
}

type Store struct {
	session   *session.State
	snapshots snapshot.Repo

	mu            sync.RWMutex
	profile       *users.Profile
	authenticated bool
	loading       bool
	lifecycle     Lifecycle

	hydrateOnce sync.Once

	// last outlives a session cleared behind the store's back (forced logout).
	last binding
	// saved is the session fingerprint the persisted snapshot belongs to.
	saved string
}

// binding locates the snapshot of a session: the token subject it is stored under and the
// fingerprint of the refresh token it must belong to.
type binding struct {
	key     string
	session string
}

// New creates a store over the session. snapshots may be nil, in which case nothing is persisted.
// The store starts loading and does not hydrate itself.
func New(state *session.State, snapshots snapshot.Repo) *Store {
	return &Store{
		session:       state,
		snapshots:     snapshots,
		authenticated: state.Current().IsAuthenticated,
		loading:       true,
		lifecycle:     LifecycleInit,
	}
}

// Hydrate restores the persisted snapshot. Only the first call has any effect. A snapshot saved
// for another session is ignored; one whose session is no longer authenticated is discarded.
func (s *Store) Hydrate(ctx context.Context) {
	s.hydrateOnce.Do(func() {
		defer s.setLifecycle(LifecycleHydrated)

		if s.snapshots == nil || ctx.Err() != nil {
			return
		}
		b, ok := s.binding()
		if !ok {
			return
		}

		snap, err := s.snapshots.Get(b.key)
		if errors.Is(err, errors.ErrNotFound) {
			return
		}
		if err != nil {
			log.Warn().Err(err).Msg("Failed to read auth snapshot")
			return
		}
		if !snap.BelongsTo(b.session) {
			log.Debug().Str("user", b.key).Msg("Auth snapshot belongs to another session")
			return
		}

		if !s.session.Current().IsAuthenticated {
			if err := s.snapshots.Delete(b.key); err != nil {
				log.Warn().Err(err).Msg("Failed to discard stale auth snapshot")
			}
			return
		}

		s.mu.Lock()
		s.profile = snap.Profile
		s.authenticated = snap.Profile != nil || s.authenticated
		s.saved = b.session
		s.mu.Unlock()
	})
}

// SetUser replaces the profile. The authenticated flag follows whether a profile is set.
func (s *Store) SetUser(profile *users.Profile) {
	s.mu.Lock()
	s.profile = profile
	s.authenticated = profile != nil
	s.loading = false
	if profile != nil {
		s.lifecycle = LifecycleActive
	}
	s.mu.Unlock()

	s.persist(profile)
}

// SetTokens writes the token cookies and the logged_in marker.
func (s *Store) SetTokens(accessToken, refreshToken string) {
	s.session.Save(accessToken, refreshToken)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = true
	s.lifecycle = LifecycleActive
}

// SetSessionCookies stores backend issued Set-Cookie headers verbatim and reports whether they
// formed a complete session.
func (s *Store) SetSessionCookies(rawSetCookies []string) bool {
	s.session.SetTokens(rawSetCookies)
	tokens := s.session.Current()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = tokens.IsAuthenticated
	if tokens.IsAuthenticated {
		s.lifecycle = LifecycleActive
	}
	return tokens.IsAuthenticated
}

// Logout deletes the session cookies and forgets the profile.
func (s *Store) Logout() {
	b, bound := s.binding()

	s.session.Clear()

	s.mu.Lock()
	s.profile = nil
	s.authenticated = false
	s.loading = false
	s.lifecycle = LifecycleCleared
	s.mu.Unlock()

	if bound {
		s.discard(b)
	}
}

// Sync saves the profile again when the session's tokens were renewed during the request, so the
// snapshot follows the new refresh token.
func (s *Store) Sync() {
	s.mu.RLock()
	profile, saved := s.profile, s.saved
	s.mu.RUnlock()

	current := s.session.Current()
	if profile == nil || !current.IsAuthenticated || snapshot.Fingerprint(current.RefreshToken) == saved {
		return
	}
	s.persist(profile)
}

func (s *Store) Profile() *users.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

func (s *Store) Lifecycle() Lifecycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lifecycle
}

// Session returns the token state the store writes through.
func (s *Store) Session() *session.State {
	return s.session
}

func (s *Store) setLifecycle(l Lifecycle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lifecycle == LifecycleInit {
		s.lifecycle = l
	}
}

// binding derives the snapshot location from the current tokens: the subject of the access token,
// else of the refresh token, bound to the refresh token's fingerprint. Without tokens the last
// binding seen is used.
func (s *Store) binding() (binding, bool) {
	t := s.session.Current()
	for _, raw := range []string{t.AccessToken, t.RefreshToken} {
		if sub, err := token.Subject(raw); err == nil {
			b := binding{key: sub, session: snapshot.Fingerprint(t.RefreshToken)}
			s.mu.Lock()
			s.last = b
			s.mu.Unlock()
			return b, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.last.key != ""
}

func (s *Store) persist(profile *users.Profile) {
	if s.snapshots == nil {
		return
	}
	b, ok := s.binding()
	if !ok {
		return
	}
	if profile == nil {
		s.discard(b)
		return
	}
	if b.session == "" {
		return
	}

	err := s.snapshots.Upsert(b.key, snapshot.Snapshot{Profile: profile, Session: b.session, SavedAt: token.NowTimeFunc()})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to persist auth snapshot")
		return
	}
	s.mu.Lock()
	s.saved = b.session
	s.mu.Unlock()
}

// discard deletes the snapshot under b only when it belongs to b's session.
func (s *Store) discard(b binding) {
	if s.snapshots == nil {
		return
	}
	snap, err := s.snapshots.Get(b.key)
	if errors.Is(err, errors.ErrNotFound) {
		return
	}
	if err == nil && !snap.BelongsTo(b.session) {
		return
	}
	if err := s.snapshots.Delete(b.key); err != nil {
		log.Warn().Err(err).Msg("Failed to delete auth snapshot")
	}
	s.mu.Lock()
	s.saved = ""
	s.mu.Unlock()
}
