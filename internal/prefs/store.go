// Package prefs implements notification preference storage and evaluation
// for the activities service. The store is process-lifetime and in-memory;
// preferences reset on restart, matching the enrollment roster's lifecycle.
package prefs

import (
	"context"
	"sort"
	"sync"

	"mergington/internal/types"
)

// Store is the injected abstraction over preference storage. Handlers and
// the dispatcher depend on this interface rather than the concrete map.
type Store interface {
	// Get returns the preferences for the identity, lazily creating the
	// all-defaults record on first access.
	Get(ctx context.Context, email string) (types.Preferences, error)

	// Put replaces the full preference record for the identity.
	Put(ctx context.Context, email string, p types.Preferences) error

	// Delete removes the record. Returns false if no record existed.
	// A subsequent Get recreates the defaults.
	Delete(ctx context.Context, email string) (bool, error)

	// All returns a snapshot of every stored record.
	All(ctx context.Context) (map[string]types.Preferences, error)

	// ListEnabled returns the identities with notifications globally enabled
	// and the given category toggled on, in sorted order.
	ListEnabled(ctx context.Context, category types.Category) ([]string, error)
}

// MemoryStore is the in-memory Store implementation. A RWMutex guards the
// map; bulk reads operate on copies so callers never observe concurrent
// mutation.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs map[string]types.Preferences
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prefs: make(map[string]types.Preferences),
	}
}

// Get returns the record for email, creating and storing the defaults if
// absent. Lazy creation means every student effectively starts opted in.
func (s *MemoryStore) Get(_ context.Context, email string) (types.Preferences, error) {
	s.mu.RLock()
	p, ok := s.prefs[email]
	s.mu.RUnlock()
	if ok {
		return p, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the write lock; another goroutine may have created it.
	if p, ok := s.prefs[email]; ok {
		return p, nil
	}
	p = types.DefaultPreferences(email)
	s.prefs[email] = p
	return p, nil
}

// Put replaces the stored record wholesale. The email key always wins over
// whatever identity the record carries.
func (s *MemoryStore) Put(_ context.Context, email string, p types.Preferences) error {
	p.Email = email
	s.mu.Lock()
	s.prefs[email] = p
	s.mu.Unlock()
	return nil
}

// Delete removes the record for email.
func (s *MemoryStore) Delete(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prefs[email]; !ok {
		return false, nil
	}
	delete(s.prefs, email)
	return true, nil
}

// All returns a copy of the full preference map.
func (s *MemoryStore) All(_ context.Context) (map[string]types.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]types.Preferences, len(s.prefs))
	for k, v := range s.prefs {
		out[k] = v
	}
	return out, nil
}

// ListEnabled scans the snapshot for identities with Enabled=true and the
// category flag on. Order is sorted for deterministic broadcasts.
func (s *MemoryStore) ListEnabled(_ context.Context, category types.Category) ([]string, error) {
	s.mu.RLock()
	out := make([]string, 0, len(s.prefs))
	for email, p := range s.prefs {
		if p.Enabled && p.CategoryEnabled(category) {
			out = append(out, email)
		}
	}
	s.mu.RUnlock()

	sort.Strings(out)
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
