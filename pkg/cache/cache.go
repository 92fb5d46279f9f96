package cache

import (
	"CasinoApi/pkg/logger"
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is an advisory TTL cache on top of Redis. It is owned by whoever
// constructs it and is never the source of truth for balances or round
// state: every entry carries a TTL and writers must invalidate on mutation.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and pings it once.
func New(redisAddr string, redisPassword string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       0,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, logger.WrapError(err, "redis ping failed")
	}

	logger.Info("Connected to Redis")

	return &Cache{client: client}, nil
}

// Set stores a value with an expiration. A zero expiration is rejected so
// no entry can outlive its writer silently.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration <= 0 {
		return errors.New("cache entries require a positive TTL")
	}
	if err := c.client.Set(ctx, key, value, expiration).Err(); err != nil {
		return logger.WrapError(err, "")
	}
	return nil
}

// Get retrieves the value of a key.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", logger.WrapError(err, "")
	}
	return val, nil
}

// Invalidate removes a key. Writers call this right after mutating the
// underlying record.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return logger.WrapError(err, "")
	}
	return nil
}

// Acquire sets key only if it does not exist yet and reports whether this
// caller won. Used for per-account bet cooldowns.
func (c *Cache) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, logger.WrapError(err, "")
	}
	return ok, nil
}

const maintenanceKey = "platform:maintenance"

// SetMaintenance flags the platform as under maintenance for ttl.
func (c *Cache) SetMaintenance(ctx context.Context, on bool, ttl time.Duration) error {
	if !on {
		return c.Invalidate(ctx, maintenanceKey)
	}
	return c.Set(ctx, maintenanceKey, "1", ttl)
}

// InMaintenance reports whether the maintenance flag is set. Errors are
// reported as "not in maintenance" so a Redis outage cannot lock players out.
func (c *Cache) InMaintenance(ctx context.Context) bool {
	val, err := c.Get(ctx, maintenanceKey)
	if err != nil {
		return false
	}
	return val == "1"
}
