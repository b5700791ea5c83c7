package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryCache layers a bounded in-process LRU in front of another Cache.
// Hot entries (tree listings re-read by several stages in one run) are
// served without touching disk or the network. Writes go through to the
// backing store.
type MemoryCache struct {
	backing Cache
	lru     *lru.Cache[string, memoryEntry]
}

type memoryEntry struct {
	data     []byte
	storedAt time.Time
}

// NewMemoryCache wraps backing with an LRU holding up to size entries.
func NewMemoryCache(backing Cache, size int) (*MemoryCache, error) {
	if size < 1 {
		size = 1
	}
	l, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{backing: backing, lru: l}, nil
}

func memoryKey(kind, repo, id string) string {
	return kind + ":" + repo + ":" + id
}

// Get serves from the LRU when possible, falling back to the backing
// store and populating the LRU on a hit.
func (c *MemoryCache) Get(ctx context.Context, kind, repo, id string, maxAge time.Duration) ([]byte, bool, error) {
	if err := ValidateKey(kind, repo, id); err != nil {
		return nil, false, err
	}

	if e, ok := c.lru.Get(memoryKey(kind, repo, id)); ok {
		if maxAge == 0 || time.Since(e.storedAt) <= maxAge {
			return e.data, true, nil
		}
	}

	data, ok, err := c.backing.Get(ctx, kind, repo, id, maxAge)
	if err != nil || !ok {
		return nil, ok, err
	}
	c.lru.Add(memoryKey(kind, repo, id), memoryEntry{data: data, storedAt: time.Now()})
	return data, true, nil
}

// Set writes through to the backing store and updates the LRU.
func (c *MemoryCache) Set(ctx context.Context, kind, repo, id string, data []byte) error {
	if err := c.backing.Set(ctx, kind, repo, id, data); err != nil {
		return err
	}
	c.lru.Add(memoryKey(kind, repo, id), memoryEntry{data: data, storedAt: time.Now()})
	return nil
}

// Close closes the backing store.
func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return c.backing.Close()
}

var _ Cache = (*MemoryCache)(nil)
