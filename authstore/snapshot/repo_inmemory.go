package snapshot

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/go-clinic-portal/internal/errors"
)

// InMemoryRepo is an in-memory implementation of Repo
type InMemoryRepo struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory snapshot repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		snapshots: make(map[string]Snapshot),
	}
}

// Upsert creates or replaces a snapshot
func (r *InMemoryRepo) Upsert(key string, snapshot Snapshot) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy the profile so later changes by the caller don't leak in
	if snapshot.Profile != nil {
		p := *snapshot.Profile
		snapshot.Profile = &p
	}
	r.snapshots[key] = snapshot
	return nil
}

// Get retrieves a snapshot by key
func (r *InMemoryRepo) Get(key string) (Snapshot, error) {
	if key == "" {
		return Snapshot{}, fmt.Errorf("key is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, ok := r.snapshots[key]
	if !ok {
		return Snapshot{}, errors.ErrNotFound
	}
	return snapshot, nil
}

// Delete removes a snapshot
func (r *InMemoryRepo) Delete(key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.snapshots, key) // Already gone is not an error
	return nil
}
