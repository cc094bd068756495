package cache

import "time"

// Cache is a key-value store whose entries expire after a TTL.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it was present and not expired.
	Get(key K) (V, bool)

	// Set stores the value for the cache's TTL.
	Set(key K, value V)

	// GetOrLoad returns the cached value or calls load, caching its result
	// on success. Errors are returned and never cached.
	GetOrLoad(key K, load func() (V, error)) (V, error)

	// Invalidate drops one key.
	Invalidate(key K)

	// Len returns the number of non-expired entries.
	Len() int
}

// now is a small indirection to allow test stubbing.
var now = time.Now
