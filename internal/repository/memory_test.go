package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergington/activity-signup/internal/model"
)

func chessSeed() map[string]model.Activity {
	return map[string]model.Activity{
		"Chess Club": {
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{},
		},
		"Programming Class": {
			Description:     "Learn programming fundamentals and build software projects",
			Schedule:        "Tuesdays and Thursdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 2,
			Participants:    []string{"emma@mergington.edu", "sophia@mergington.edu"},
		},
	}
}

// storeContract runs the directory behaviour every backend must honour.
func storeContract(t *testing.T, newStore func(t *testing.T, seed map[string]model.Activity, opts Options) Store) {
	ctx := context.Background()

	roster := func(t *testing.T, s Store, name string) []string {
		t.Helper()
		all, err := s.List(ctx)
		require.NoError(t, err)
		a, ok := all[name]
		require.True(t, ok, "activity %q missing", name)
		require.NotNil(t, a.Participants)
		return a.Participants
	}

	t.Run("chess club scenario", func(t *testing.T) {
		s := newStore(t, chessSeed(), Options{})

		require.NoError(t, s.Enroll(ctx, "Chess Club", "a@x.edu"))
		assert.Equal(t, []string{"a@x.edu"}, roster(t, s, "Chess Club"))

		assert.ErrorIs(t, s.Enroll(ctx, "Chess Club", "a@x.edu"), ErrAlreadyRegistered)
		assert.Equal(t, []string{"a@x.edu"}, roster(t, s, "Chess Club"))

		require.NoError(t, s.Withdraw(ctx, "Chess Club", "a@x.edu"))
		assert.Empty(t, roster(t, s, "Chess Club"))

		assert.ErrorIs(t, s.Withdraw(ctx, "Chess Club", "a@x.edu"), ErrNotRegistered)
		assert.Empty(t, roster(t, s, "Chess Club"))
	})

	t.Run("withdraw keeps order", func(t *testing.T) {
		s := newStore(t, chessSeed(), Options{})

		for _, e := range []string{"e1@x.edu", "e2@x.edu", "e3@x.edu"} {
			require.NoError(t, s.Enroll(ctx, "Chess Club", e))
		}
		assert.Equal(t, []string{"e1@x.edu", "e2@x.edu", "e3@x.edu"}, roster(t, s, "Chess Club"))

		require.NoError(t, s.Withdraw(ctx, "Chess Club", "e2@x.edu"))
		assert.Equal(t, []string{"e1@x.edu", "e3@x.edu"}, roster(t, s, "Chess Club"))
	})

	t.Run("enroll then withdraw restores roster", func(t *testing.T) {
		s := newStore(t, chessSeed(), Options{})
		before := roster(t, s, "Programming Class")

		require.NoError(t, s.Enroll(ctx, "Programming Class", "new@mergington.edu"))
		require.NoError(t, s.Withdraw(ctx, "Programming Class", "new@mergington.edu"))

		assert.Equal(t, before, roster(t, s, "Programming Class"))
	})

	t.Run("unknown activity", func(t *testing.T) {
		s := newStore(t, chessSeed(), Options{})

		assert.ErrorIs(t, s.Enroll(ctx, "Unknown Club", "x@y.edu"), ErrNotFound)
		assert.ErrorIs(t, s.Withdraw(ctx, "Unknown Club", "x@y.edu"), ErrNotFound)
		assert.ErrorIs(t, s.Enroll(ctx, "chess club", "x@y.edu"), ErrNotFound)
		assert.ErrorIs(t, s.Enroll(ctx, "Chess Club ", "x@y.edu"), ErrNotFound)
	})

	t.Run("emails are case sensitive", func(t *testing.T) {
		s := newStore(t, chessSeed(), Options{})

		require.NoError(t, s.Enroll(ctx, "Chess Club", "a@x.edu"))
		require.NoError(t, s.Enroll(ctx, "Chess Club", "A@x.edu"))
		assert.Equal(t, []string{"a@x.edu", "A@x.edu"}, roster(t, s, "Chess Club"))
	})

	t.Run("capacity is advisory by default", func(t *testing.T) {
		s := newStore(t, chessSeed(), Options{})

		require.NoError(t, s.Enroll(ctx, "Programming Class", "third@mergington.edu"))
		assert.Len(t, roster(t, s, "Programming Class"), 3)
	})

	t.Run("capacity enforced when enabled", func(t *testing.T) {
		s := newStore(t, chessSeed(), Options{EnforceCapacity: true})

		assert.ErrorIs(t, s.Enroll(ctx, "Programming Class", "third@mergington.edu"), ErrActivityFull)
		assert.Len(t, roster(t, s, "Programming Class"), 2)

		// duplicate check wins over capacity
		assert.ErrorIs(t, s.Enroll(ctx, "Programming Class", "emma@mergington.edu"), ErrAlreadyRegistered)

		require.NoError(t, s.Withdraw(ctx, "Programming Class", "emma@mergington.edu"))
		require.NoError(t, s.Enroll(ctx, "Programming Class", "third@mergington.edu"))
		assert.Equal(t, []string{"sophia@mergington.edu", "third@mergington.edu"}, roster(t, s, "Programming Class"))
	})

	t.Run("list returns copies", func(t *testing.T) {
		s := newStore(t, chessSeed(), Options{})

		all, err := s.List(ctx)
		require.NoError(t, err)
		a := all["Programming Class"]
		a.Participants[0] = "mutated@x.edu"

		assert.Equal(t, "emma@mergington.edu", roster(t, s, "Programming Class")[0])
	})

	t.Run("concurrent duplicate signups", func(t *testing.T) {
		s := newStore(t, chessSeed(), Options{})

		var wg sync.WaitGroup
		var ok atomic.Int32
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.Enroll(ctx, "Chess Club", "same@x.edu"); err == nil {
					ok.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), ok.Load())
		assert.Equal(t, []string{"same@x.edu"}, roster(t, s, "Chess Club"))
	})

	t.Run("concurrent distinct signups", func(t *testing.T) {
		s := newStore(t, chessSeed(), Options{})

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Enroll(ctx, "Chess Club", fmt.Sprintf("s%d@x.edu", i)))
			}()
		}
		wg.Wait()

		assert.Len(t, roster(t, s, "Chess Club"), 20)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T, seed map[string]model.Activity, opts Options) Store {
		return NewMemoryStore(seed, opts)
	})
}

func TestMemoryStoreCopiesSeed(t *testing.T) {
	seed := chessSeed()
	s := NewMemoryStore(seed, Options{})

	require.NoError(t, s.Enroll(context.Background(), "Programming Class", "x@y.edu"))

	assert.Len(t, seed["Programming Class"].Participants, 2)
}
