package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ZaguanLabs/polytlai/logger"
)

// DefaultKeyPrefix namespaces every Redis key.
const DefaultKeyPrefix = "polytlai:"

// opTimeout bounds each Redis round trip. The TranslationCache interface has
// no context, and a slow cache must never hold up a provider.
const opTimeout = 2 * time.Second

// Redis is a translation cache shared between processes.
type Redis struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// NewRedis connects to cfg.RedisURL and checks the connection.
func NewRedis(cfg Config) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisFromClient(client, cfg.TTL, cfg.KeyPrefix), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, ttl time.Duration, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{client: client, ttl: ttl, keyPrefix: keyPrefix}
}

// Get returns the cached translation. Redis errors are logged and reported
// as a miss.
func (c *Redis) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		logger.Warnf("redis cache get %s: %v", key, err)
		return "", false
	}
	return val, true
}

// Set stores a translation with the configured TTL.
func (c *Redis) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return c.client.Set(ctx, c.keyPrefix+key, value, c.ttl).Err()
}

// Ping tests the connection.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the connection.
func (c *Redis) Close() error {
	return c.client.Close()
}

var _ Cache = (*Redis)(nil)
