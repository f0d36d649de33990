// Package cache stores finished translations so that repeating a request
// against the same provider and model skips the network.
package cache

import (
	"io"
	"time"

	"github.com/ZaguanLabs/polytlai"
)

// Config selects and tunes the cache backend.
type Config struct {
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`                         // 0 = never expire
	RedisURL  string        `mapstructure:"redis_url" yaml:"redis_url,omitempty"`   // Empty selects the in-memory cache
	KeyPrefix string        `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"` // Redis only (default: "polytlai:")
}

// Cache is a polytlai.TranslationCache that owns a releasable resource.
type Cache interface {
	polytlai.TranslationCache
	io.Closer
}

// New returns a Redis cache when cfg.RedisURL is set, otherwise an in-memory
// cache.
func New(cfg Config) (Cache, error) {
	if cfg.RedisURL == "" {
		return NewMemory(cfg.TTL), nil
	}
	return NewRedis(cfg)
}
