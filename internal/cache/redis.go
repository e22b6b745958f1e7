// Package cache wraps Redis for the settings snapshot cache and the
// per-branch sale lock. A nil *Cache is valid and behaves as "no Redis":
// reads miss, writes are dropped, and locks are granted immediately.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/config"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Cache struct {
	rdb    *redis.Client
	locker *redislock.Client
	logger *logrus.Logger
}

// Connect dials Redis at addr. An empty addr, or a server that does not
// answer, yields a nil Cache and the app runs without Redis.
func Connect(ctx context.Context, addr string, logger *logrus.Logger) *Cache {
	if addr == "" {
		logger.Info("REDIS_ADDRESS not set; running without cache and sale locks")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0, // use default DB
		PoolSize: 20,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		config.LogError(logger, "cache", "Connect", "redis ping failed; running without cache", addr, err)
		_ = rdb.Close()
		return nil
	}

	logger.WithField("addr", addr).Info("connected to redis")
	return New(rdb, logger)
}

func New(rdb *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{rdb: rdb, locker: redislock.New(rdb), logger: logger}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// GetObject decodes the JSON stored at key into dest. It reports false on a miss.
func (c *Cache) GetObject(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil {
		return false, nil
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) SetObject(ctx context.Context, key string, obj any, exp time.Duration) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, exp).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

const lockTTL = 30 * time.Second

// Lock takes the named lock, waiting up to ~5s for a competing holder.
// The returned release func is always safe to call.
func (c *Cache) Lock(ctx context.Context, key string) (func(), error) {
	if c == nil {
		return func() {}, nil
	}

	lock, err := c.locker.Obtain(ctx, "lock:"+key, lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		config.LogError(c.logger, "cache", "Lock", "could not obtain lock", key, err)
		return func() {}, apperr.Conflict("Another checkout is in progress for this branch, please retry")
	}
	if err != nil {
		config.LogError(c.logger, "cache", "Lock", "error obtaining lock", key, err)
		return func() {}, apperr.Internal("Failed to obtain checkout lock", err)
	}

	return func() {
		// Release on a fresh context: the request's may already be cancelled.
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			config.LogError(c.logger, "cache", "Lock", "release failed", key, err)
		}
	}, nil
}
