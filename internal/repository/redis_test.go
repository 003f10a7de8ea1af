package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergington/activity-signup/internal/model"
)

func newRedisStore(t *testing.T, seed map[string]model.Activity, opts Options) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStore(client, "test:", seed, opts)
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestRedisStore(t *testing.T) {
	storeContract(t, func(t *testing.T, seed map[string]model.Activity, opts Options) Store {
		return newRedisStore(t, seed, opts)
	})
}

func TestRedisStoreLoadResetsRosters(t *testing.T) {
	ctx := context.Background()
	s := newRedisStore(t, chessSeed(), Options{})

	require.NoError(t, s.Enroll(ctx, "Chess Club", "a@x.edu"))
	require.NoError(t, s.Withdraw(ctx, "Programming Class", "emma@mergington.edu"))

	require.NoError(t, s.Load(ctx))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all["Chess Club"].Participants)
	assert.Equal(t, []string{"emma@mergington.edu", "sophia@mergington.edu"}, all["Programming Class"].Participants)
}

func TestRedisStoreKeysUsePrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStore(client, "signup:", chessSeed(), Options{})
	require.NoError(t, s.Load(context.Background()))

	got, err := mr.List("signup:roster:Programming Class")
	require.NoError(t, err)
	assert.Equal(t, []string{"emma@mergington.edu", "sophia@mergington.edu"}, got)
}

func TestRedisStoreSeeded(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStore(client, "test:", chessSeed(), Options{})

	seeded, err := s.Seeded(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	require.NoError(t, s.Load(ctx))

	seeded, err = s.Seeded(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)
}
