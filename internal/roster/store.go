// Package roster implements the in-memory activity roster for Mergington
// High School. The roster is process-lifetime state seeded at startup;
// durable storage is intentionally out of scope for this service.
package roster

import (
	"context"
	"sort"
	"sync"

	"mergington/internal/types"
)

// Store is the injected abstraction over the activity roster.
type Store interface {
	// Get returns the activity by name.
	Get(ctx context.Context, name string) (types.Activity, error)

	// List returns every activity keyed by name (copy-on-read snapshot).
	List(ctx context.Context) (map[string]types.Activity, error)

	// Names returns the sorted activity names.
	Names(ctx context.Context) ([]string, error)

	// AddParticipant enrolls the email in the activity. Fails on unknown
	// activity, duplicate enrollment, or a full roster.
	AddParticipant(ctx context.Context, name, email string) (types.Activity, error)

	// RemoveParticipant withdraws the email from the activity. Fails on
	// unknown activity or when the email is not enrolled.
	RemoveParticipant(ctx context.Context, name, email string) (types.Activity, error)
}

// MemoryStore is the in-memory Store implementation, guarded by a RWMutex.
type MemoryStore struct {
	mu         sync.RWMutex
	activities map[string]types.Activity
}

// NewMemoryStore creates a store seeded with the given activities. Passing
// nil seeds the standard school roster from Seed().
func NewMemoryStore(seed map[string]types.Activity) *MemoryStore {
	if seed == nil {
		seed = Seed()
	}
	activities := make(map[string]types.Activity, len(seed))
	for name, a := range seed {
		a.Name = name
		activities[name] = a
	}
	return &MemoryStore{activities: activities}
}

// Seed returns the school's standard activity roster.
func Seed() map[string]types.Activity {
	return map[string]types.Activity{
		"Chess Club": {
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		"Programming Class": {
			Description:     "Learn programming fundamentals and build software projects",
			Schedule:        "Tuesdays and Thursdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"emma@mergington.edu", "sophia@mergington.edu"},
		},
		"Gym Class": {
			Description:     "Physical education and sports activities",
			Schedule:        "Mondays, Wednesdays, Fridays, 2:00 PM - 3:00 PM",
			MaxParticipants: 30,
			Participants:    []string{"john@mergington.edu", "olivia@mergington.edu"},
		},
	}
}

// Get returns the activity by name.
func (s *MemoryStore) Get(_ context.Context, name string) (types.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activities[name]
	if !ok {
		return types.Activity{}, types.NewAppError(types.ErrCodeNotFoundActivity, "activity not found", nil)
	}
	return copyActivity(a), nil
}

// List returns a snapshot of every activity.
func (s *MemoryStore) List(_ context.Context) (map[string]types.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]types.Activity, len(s.activities))
	for name, a := range s.activities {
		out[name] = copyActivity(a)
	}
	return out, nil
}

// AddParticipant enrolls the email, enforcing uniqueness and capacity.
func (s *MemoryStore) AddParticipant(_ context.Context, name, email string) (types.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.activities[name]
	if !ok {
		return types.Activity{}, types.NewAppError(types.ErrCodeNotFoundActivity, "activity not found", nil)
	}
	for _, p := range a.Participants {
		if p == email {
			return types.Activity{}, types.NewAppError(
				types.ErrCodeConflictAlreadySignedUp,
				"student is already signed up for this activity",
				nil,
			)
		}
	}
	if len(a.Participants) >= a.MaxParticipants {
		return types.Activity{}, types.NewAppError(
			types.ErrCodeConflictActivityFull,
			"activity has reached maximum capacity",
			nil,
		)
	}

	a.Participants = append(append([]string(nil), a.Participants...), email)
	s.activities[name] = a
	return copyActivity(a), nil
}

// RemoveParticipant withdraws the email from the activity.
func (s *MemoryStore) RemoveParticipant(_ context.Context, name, email string) (types.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.activities[name]
	if !ok {
		return types.Activity{}, types.NewAppError(types.ErrCodeNotFoundActivity, "activity not found", nil)
	}

	idx := -1
	for i, p := range a.Participants {
		if p == email {
			idx = i
			break
		}
	}
	if idx < 0 {
		return types.Activity{}, types.NewAppError(
			types.ErrCodeConflictNotSignedUp,
			"student is not signed up for this activity",
			nil,
		)
	}

	participants := append([]string(nil), a.Participants...)
	a.Participants = append(participants[:idx], participants[idx+1:]...)
	s.activities[name] = a
	return copyActivity(a), nil
}

// Names returns the sorted activity names. Used by the digest trigger for a
// stable iteration order.
func (s *MemoryStore) Names(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.activities))
	for name := range s.activities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func copyActivity(a types.Activity) types.Activity {
	a.Participants = append([]string(nil), a.Participants...)
	return a
}

var _ Store = (*MemoryStore)(nil)
