package cache

import (
	"time"
)

// CacheService represents a generic expiring key/value cache. The refresh
// worker uses it to keep per-store cooldowns across restarts so a store is
// not re-scraped on every cycle.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
