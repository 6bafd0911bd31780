package geocode

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CacheStats tracks cache performance.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

type cacheEntry[V any] struct {
	value        V
	createdAt    time.Time
	lastAccessed time.Time
}

// Cache is bounded by entry count and age. When full, the least recently
// used entry is evicted.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry[V]
	maxEntries int
	ttl        time.Duration
	stats      CacheStats
	now        func() time.Time
}

// NewCache creates a cache holding at most maxEntries values for ttl.
func NewCache[V any](maxEntries int, ttl time.Duration) *Cache[V] {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Cache[V]{
		entries:    make(map[string]*cacheEntry[V]),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns the value stored under key if it has not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	now := c.now()
	if c.ttl > 0 && now.Sub(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		c.stats.Misses++
		c.stats.Evictions++
		return zero, false
	}
	entry.lastAccessed = now
	c.stats.Hits++
	return entry.value, true
}

// Set stores value under key.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictExpired(now)
		if len(c.entries) >= c.maxEntries {
			c.evictOldest()
		}
	}
	c.entries[key] = &cacheEntry[V]{value: value, createdAt: now, lastAccessed: now}
}

func (c *Cache[V]) evictExpired(now time.Time) {
	if c.ttl <= 0 {
		return
	}
	for key, entry := range c.entries {
		if now.Sub(entry.createdAt) > c.ttl {
			delete(c.entries, key)
			c.stats.Evictions++
		}
	}
}

// evictOldest removes the least recently used entry.
func (c *Cache[V]) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.lastAccessed.Before(oldest) {
			oldestKey = key
			oldest = entry.lastAccessed
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}

// Stats returns a snapshot of the counters.
func (c *Cache[V]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.entries)
	return s
}

// NormalizeQuery folds case, accents and whitespace so equivalent
// queries share a cache entry.
func NormalizeQuery(q string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(q)) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
