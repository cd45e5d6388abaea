package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/aiva/backend/internal/model/session"
)

const keyPrefix = "aiva:session:"

// RedisStore keeps contexts as JSON values with a sliding TTL. Updates run
// inside WATCH so a concurrent writer turns into ErrVersionConflict.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return keyPrefix + id
}

func (s *RedisStore) Create(ctx context.Context, sc *session.Context) error {
	now := time.Now().UTC()
	sc.CreatedAt = now
	sc.UpdatedAt = now
	sc.Version = 1

	val, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.key(sc.SessionID), val, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s already exists", ErrVersionConflict, sc.SessionID)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*session.Context, error) {
	key := s.key(id)
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sc session.Context
	if err := json.Unmarshal(val, &sc); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	// sliding expiry
	_ = s.client.Expire(ctx, key, s.ttl).Err()
	return &sc, nil
}

func (s *RedisStore) Update(ctx context.Context, sc *session.Context) error {
	key := s.key(sc.SessionID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var stored session.Context
		if err := json.Unmarshal(val, &stored); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if stored.Version != sc.Version {
			return ErrVersionConflict
		}

		next := *sc
		next.Version++
		next.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		sc.Version = next.Version
		sc.UpdatedAt = next.UpdatedAt
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	return err
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
