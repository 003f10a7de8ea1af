package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/mergington/activity-signup/internal/model"
)

// MemoryStore keeps the directory in process memory. The set of activities
// is fixed at construction, so only the per-activity locks are needed.
type MemoryStore struct {
	opts       Options
	activities map[string]*memoryEntry
}

type memoryEntry struct {
	mu       sync.Mutex
	activity model.Activity
}

// NewMemoryStore builds a MemoryStore from the seed catalog. The seed is
// copied; later changes to it are not observed.
func NewMemoryStore(seed map[string]model.Activity, opts Options) *MemoryStore {
	activities := make(map[string]*memoryEntry, len(seed))
	for name, a := range seed {
		activities[name] = &memoryEntry{activity: a.Clone()}
	}
	return &MemoryStore{opts: opts, activities: activities}
}

// List returns a deep copy of every activity.
func (s *MemoryStore) List(_ context.Context) (map[string]model.Activity, error) {
	out := make(map[string]model.Activity, len(s.activities))
	for name, e := range s.activities {
		e.mu.Lock()
		out[name] = e.activity.Clone()
		e.mu.Unlock()
	}
	return out, nil
}

// Enroll adds email to the activity roster.
func (s *MemoryStore) Enroll(_ context.Context, activity, email string) error {
	e, ok := s.activities[activity]
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.opts.checkEnroll(&e.activity, email); err != nil {
		return err
	}
	e.activity.Participants = append(e.activity.Participants, email)
	return nil
}

// Withdraw removes email from the activity roster.
func (s *MemoryStore) Withdraw(_ context.Context, activity, email string) error {
	e, ok := s.activities[activity]
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idx := slices.Index(e.activity.Participants, email)
	if idx < 0 {
		return ErrNotRegistered
	}
	e.activity.Participants = slices.Delete(e.activity.Participants, idx, idx+1)
	return nil
}
