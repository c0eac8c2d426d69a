// Package cache provides the Backend abstraction that the version
// manifest, client meta, and asset index fetchers store their raw bytes
// through. The default FileBackend is the literal on-disk layout
// (internal/versions/..., internal/assets/indexes/...) every other launcher
// consuming this cache directory expects; RedisBackend is an optional
// addition so a fleet of build machines can share one cache instead of
// each re-hitting Mojang.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
)

// Backend is a content store keyed by an opaque string (a file path for
// FileBackend, a namespaced key for RedisBackend).
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
}

// FileBackend treats keys as paths rooted at the mcvm data directory:
// every cached file lives at a documented, literal path.
type FileBackend struct{}

func (FileBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(key)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (FileBackend) Put(_ context.Context, key string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(key), 0o755); err != nil {
		return err
	}
	tmp := key + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, key)
}

// RedisBackend is an opt-in shared cache for version manifests, client
// meta, and asset indexes. It never replaces FileBackend as the
// authoritative on-disk layout — callers that want sharing wrap both
// behind a Chain.
type RedisBackend struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

// NewRedisBackend builds a RedisBackend from a connection string
// (e.g. "redis://localhost:6379/0").
func NewRedisBackend(addr, prefix string, ttl time.Duration) (*RedisBackend, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, err
	}
	return &RedisBackend{Client: redis.NewClient(opts), TTL: ttl, Prefix: prefix}, nil
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.Client.Get(ctx, r.Prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *RedisBackend) Put(ctx context.Context, key string, data []byte) error {
	return r.Client.Set(ctx, r.Prefix+key, data, r.TTL).Err()
}

// Chain reads through a fast shared backend first, falling back to and
// then populating a slower authoritative one.
type Chain struct {
	Fast Backend
	Slow Backend
}

func (c Chain) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.Fast != nil {
		if data, ok, err := c.Fast.Get(ctx, key); err == nil && ok {
			return data, true, nil
		}
	}
	data, ok, err := c.Slow.Get(ctx, key)
	if err != nil || !ok {
		return data, ok, err
	}
	if c.Fast != nil {
		_ = c.Fast.Put(ctx, key, data)
	}
	return data, true, nil
}

func (c Chain) Put(ctx context.Context, key string, data []byte) error {
	if c.Fast != nil {
		_ = c.Fast.Put(ctx, key, data)
	}
	return c.Slow.Put(ctx, key, data)
}
