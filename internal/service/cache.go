package service

import (
	"strings"
	"sync"
	"time"

	"adscout/internal/core/domain"
)

type cacheEntry struct {
	result     *domain.ScrapeResult
	insertedAt time.Time
}

// resultCache is an in-memory TTL cache of scrape results keyed by
// normalized brand name. Expired entries are evicted lazily on Get.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

func newResultCache(ttl time.Duration, now func() time.Time) *resultCache {
	return &resultCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(brand string) string {
	return strings.ToLower(strings.TrimSpace(brand))
}

// Get returns the stored pointer unchanged, or false when the entry is
// missing or stale.
func (c *resultCache) Get(brand string) (*domain.ScrapeResult, bool) {
	key := cacheKey(brand)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.insertedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.result, true
}

func (c *resultCache) Set(brand string, result *domain.ScrapeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(brand)] = cacheEntry{result: result, insertedAt: c.now()}
}

func (c *resultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *resultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
