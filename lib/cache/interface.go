package cache

import "time"

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// CacheFactory is a function type that creates a new cache.
// This is used to abstract the creation of the cache from its consumers.
type CacheFactory func() ICache

// ICache is the generic interface for a key-value cache with per-entry TTL.
// The canvas core uses it for exactly one well-known entry (the precomputed
// hotspot), but the interface is deliberately generic so the backing store
// can be swapped for a networked cache without touching consumers.
type ICache interface {
	// Set inserts or updates an entry. A zero ttl means the entry never
	// expires.
	Set(key string, value []byte, ttl time.Duration) error
	// Get returns the value for a key. The boolean return value indicates
	// whether a live (not expired) value was found.
	Get(key string) (value []byte, loaded bool, err error)
	// Delete removes an entry. Deleting a missing key is not an error.
	Delete(key string) error
	// Close releases background resources held by the cache.
	Close() error
}
