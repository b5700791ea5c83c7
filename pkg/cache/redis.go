package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis for shared multi-instance
// deployments. Keys follow the same (kind, repo, id) scheme as the file
// backend, joined into a single namespaced Redis key.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr and verifies the connection.
// ttl bounds how long entries live server-side; 0 means no expiry.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func redisKey(kind, repo, id string) string {
	return strings.Join([]string{"plugdex", kind, repo, id}, ":")
}

// Get retrieves a cached value. Server-side TTL handles expiry, so maxAge
// only tightens freshness further when it is shorter than the store TTL;
// entries carry no timestamp, so maxAge below the TTL is best-effort.
func (c *RedisCache) Get(ctx context.Context, kind, repo, id string, maxAge time.Duration) ([]byte, bool, error) {
	if err := ValidateKey(kind, repo, id); err != nil {
		return nil, false, err
	}
	data, err := c.client.Get(ctx, redisKey(kind, repo, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, kind, repo, id string, data []byte) error {
	if err := ValidateKey(kind, repo, id); err != nil {
		return err
	}
	return c.client.Set(ctx, redisKey(kind, repo, id), data, c.ttl).Err()
}

// Close closes the underlying connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
