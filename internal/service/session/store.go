package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/aiva/backend/internal/model/session"
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrVersionConflict  = errors.New("session version conflict")
	ErrInvalidStoreType = errors.New("invalid session store type")
	ErrInvalidConfig    = errors.New("invalid session store configuration")
)

// Store persists session contexts. Update succeeds only when the stored
// version equals the caller's version, and then bumps it.
type Store interface {
	Create(ctx context.Context, sc *session.Context) error
	Get(ctx context.Context, id string) (*session.Context, error)
	Update(ctx context.Context, sc *session.Context) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// StoreType selects a Store driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

const defaultTTL = 24 * time.Hour

// StoreOption configures NewStore.
type StoreOption func(*storeConfig)

type storeConfig struct {
	redisClient *redis.Client
	ttl         time.Duration
	now         func() time.Time
}

// WithRedisClient sets the client used by the redis driver.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithTTL sets how long an idle session is kept.
func WithTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.ttl = ttl
	}
}

// WithClock sets the time source of the memory driver.
func WithClock(now func() time.Time) StoreOption {
	return func(c *storeConfig) {
		c.now = now
	}
}

// NewStore builds the driver named by storeType.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	ttl := cfg.ttl
	if ttl <= 0 {
		ttl = defaultTTL
	}

	switch storeType {
	case StoreTypeMemory, "":
		return NewMemoryStore(WithTTL(ttl)), nil
	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return NewRedisStore(cfg.redisClient, ttl), nil
	default:
		return nil, ErrInvalidStoreType
	}
}
