package timetable

import (
	"time"

	"github.com/bluele/gcache"
)

// Cache is a typed TTL cache holding at most size entries. When full, the
// least recently used entry is evicted.
type Cache[K comparable, V any] struct {
	c gcache.Cache
}

// NewCache creates a cache of the given size and TTL.
func NewCache[K comparable, V any](size int, ttl time.Duration) *Cache[K, V] {
	return newCache[K, V](size, ttl, gcache.NewRealClock())
}

func newCache[K comparable, V any](size int, ttl time.Duration, clock gcache.Clock) *Cache[K, V] {
	return &Cache[K, V]{
		c: gcache.New(size).LRU().Expiration(ttl).Clock(clock).Build(),
	}
}

// Get retrieves a cached value if it exists and hasn't expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, err := c.c.Get(key)
	if err != nil {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Set stores a value in the cache.
func (c *Cache[K, V]) Set(key K, value V) {
	// Set only fails for loader and serializer errors, which are not used.
	_ = c.c.Set(key, value)
}

// GetOrCompute returns the cached value for key, computing and storing it
// on a miss. Concurrent misses may compute more than once.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := compute()
	c.Set(key, v)
	return v
}

// Len returns the number of unexpired entries.
func (c *Cache[K, V]) Len() int {
	return c.c.Len(true)
}
