package store

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/coinstack/pkg/errors"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// DialTimeout bounds connection setup. Zero means 5 seconds.
	DialTimeout time.Duration
}

// RedisStore keeps each key as a Redis string.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, err, "connect redis %s", cfg.Addr)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Get reads key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := RetryWithBackoff(ctx, func() error {
		v, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			return classify(err)
		}
		data = v
		return nil
	})
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeStoreUnavailable, err, "redis get %s", key)
	}
	return data, true, nil
}

// Set writes key without expiry.
func (s *RedisStore) Set(ctx context.Context, key string, data []byte) error {
	err := RetryWithBackoff(ctx, func() error {
		return classify(s.client.Set(ctx, key, data, 0).Err())
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, err, "redis set %s", key)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	err := RetryWithBackoff(ctx, func() error {
		return classify(s.client.Del(ctx, key).Err())
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, err, "redis del %s", key)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
