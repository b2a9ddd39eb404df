package scraper

import "sync"

// ListingCache maps a listing URL to a previously extracted record so a URL
// is fetched at most once per process lifetime. Entries never expire; an
// explicit Clear is the only way to force re-extraction. Degraded records
// are cached too, which bounds the retry cost of permanently unreachable
// URLs.
type ListingCache struct {
	mu      sync.RWMutex
	entries map[string]ListingRecord
}

// NewListingCache creates an empty cache
func NewListingCache() *ListingCache {
	return &ListingCache{
		entries: make(map[string]ListingRecord),
	}
}

// Get returns the cached record for a URL, if present
func (c *ListingCache) Get(url string) (ListingRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, ok := c.entries[url]
	return record, ok
}

// Put inserts or overwrites the record for a URL. Last write wins on
// duplicate-key races; a fetched-twice URL overwrites with an equivalent
// result.
func (c *ListingCache) Put(url string, record ListingRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = record
}

// Clear empties the cache and returns the prior entry count
func (c *ListingCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]ListingRecord)
	return n
}

// Len returns the current entry count
func (c *ListingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a read-only copy of all entries for diagnostics
func (c *ListingCache) Snapshot() map[string]ListingRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]ListingRecord, len(c.entries))
	for url, record := range c.entries {
		snapshot[url] = record
	}
	return snapshot
}
