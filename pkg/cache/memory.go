package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps entries in process. Only correct for a single API instance.
type MemoryCache struct {
	cache *gocache.Cache
}

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	// Expired items are purged every minute.
	return &MemoryCache{cache: gocache.New(defaultTTL, time.Minute)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	if x, found := c.cache.Get(key); found {
		return x.(string), true, nil
	}
	return "", false, nil
}

func (c *MemoryCache) SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.cache.Set(key, value, ttl)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}
