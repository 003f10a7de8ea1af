package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mergington/activity-signup/internal/model"
)

// maxTxRetries bounds optimistic transaction retries under contention.
const maxTxRetries = 32

// RedisStore keeps each roster in a Redis list. Activity metadata never
// changes after startup, so it stays in process and only rosters live in
// Redis.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	opts    Options
	catalog map[string]model.Activity
}

// NewRedisStore constructs a RedisStore over the seed catalog. Rosters in
// the seed are not written until Load is called.
func NewRedisStore(client *redis.Client, prefix string, seed map[string]model.Activity, opts Options) *RedisStore {
	catalog := make(map[string]model.Activity, len(seed))
	for name, a := range seed {
		catalog[name] = a.Clone()
	}
	return &RedisStore{client: client, prefix: prefix, opts: opts, catalog: catalog}
}

func (s *RedisStore) rosterKey(activity string) string {
	return s.prefix + "roster:" + activity
}

func (s *RedisStore) seededKey() string {
	return s.prefix + "seeded"
}

// Seeded reports whether Load has run against this Redis keyspace.
func (s *RedisStore) Seeded(ctx context.Context) (bool, error) {
	n, err := s.client.Exists(ctx, s.seededKey()).Result()
	if err != nil {
		return false, fmt.Errorf("check seeded: %w", err)
	}
	return n > 0, nil
}

// Load resets every roster to its seed value.
func (s *RedisStore) Load(ctx context.Context) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.seededKey(), "1", 0)
		for _, name := range sortedNames(s.catalog) {
			key := s.rosterKey(name)
			p.Del(ctx, key)
			if participants := s.catalog[name].Participants; len(participants) > 0 {
				p.RPush(ctx, key, toArgs(participants)...)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load rosters: %w", err)
	}
	return nil
}

// List returns every activity with the roster currently held in Redis.
func (s *RedisStore) List(ctx context.Context) (map[string]model.Activity, error) {
	names := sortedNames(s.catalog)
	cmds := make([]*redis.StringSliceCmd, len(names))

	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, name := range names {
			cmds[i] = p.LRange(ctx, s.rosterKey(name), 0, -1)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list rosters: %w", err)
	}

	out := make(map[string]model.Activity, len(names))
	for i, name := range names {
		a := s.catalog[name]
		a.Participants = append([]string{}, cmds[i].Val()...)
		out[name] = a
	}
	return out, nil
}

// Enroll appends email to the roster under WATCH so a concurrent change to
// the same roster aborts and retries the transaction.
func (s *RedisStore) Enroll(ctx context.Context, activity, email string) error {
	meta, ok := s.catalog[activity]
	if !ok {
		return ErrNotFound
	}
	key := s.rosterKey(activity)

	return s.watch(ctx, key, func(tx *redis.Tx) error {
		roster, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return fmt.Errorf("read roster: %w", err)
		}
		current := model.Activity{MaxParticipants: meta.MaxParticipants, Participants: roster}
		if err := s.opts.checkEnroll(&current, email); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.RPush(ctx, key, email)
			return nil
		})
		return err
	})
}

// Withdraw removes email from the roster. LREM keeps the order of the
// remaining elements.
func (s *RedisStore) Withdraw(ctx context.Context, activity, email string) error {
	if _, ok := s.catalog[activity]; !ok {
		return ErrNotFound
	}
	key := s.rosterKey(activity)

	return s.watch(ctx, key, func(tx *redis.Tx) error {
		roster, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return fmt.Errorf("read roster: %w", err)
		}
		current := model.Activity{Participants: roster}
		if !current.HasParticipant(email) {
			return ErrNotRegistered
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.LRem(ctx, key, 1, email)
			return nil
		})
		return err
	})
}

func (s *RedisStore) watch(ctx context.Context, key string, fn func(*redis.Tx) error) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update roster %q: too much contention", key)
}

func toArgs(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
