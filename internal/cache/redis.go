package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"finbrief/internal/adapters/config"
	"finbrief/pkg/errors"
)

// Redis is the shared cache backed by a Redis instance. TTL enforcement is
// native; the interface semantics match the in-process implementation.
type Redis struct {
	rdb *redis.Client
}

// NewRedis connects to Redis and verifies the connection
func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(errors.ErrDependencyUnavailable, err.Error())
	}

	return &Redis{rdb: rdb}, nil
}

// Get returns the value for key; redis.Nil is a miss, anything else an error
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	return data, true, nil
}

// Put stores value under key with ttl. SET is last-write-wins.
func (r *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

// Health checks Redis connectivity
func (r *Redis) Health(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.rdb.Close()
}
