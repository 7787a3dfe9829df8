package categorize

import (
	"strings"
	"sync"
	"time"
)

const (
	DefaultCacheSize = 500
	DefaultCacheTTL  = 7 * 24 * time.Hour
)

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

type cacheEntry struct {
	suggestion Suggestion
	storedAt   time.Time
}

// Cache holds suggestions keyed by normalized description. Entries expire
// after the TTL and, once full, the oldest inserted entry is evicted.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	clock   Clock
	maxSize int
	ttl     time.Duration
	entries map[string]cacheEntry
	order   []string // insertion order, oldest first
}

// CacheStats describes the cache for the management endpoint
type CacheStats struct {
	Size    int    `json:"size"`
	MaxSize int    `json:"maxSize"`
	Expiry  string `json:"expiry"`
}

// NewCache creates a Cache using the system clock
func NewCache(maxSize int, ttl time.Duration) *Cache {
	return NewCacheWithClock(maxSize, ttl, systemClock{})
}

// NewCacheWithClock creates a Cache with a custom clock for testing
func NewCacheWithClock(maxSize int, ttl time.Duration, clock Clock) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		clock:   clock,
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(description string) string {
	return strings.ToLower(strings.TrimSpace(description))
}

// Get returns the cached suggestion for description. Expired entries are
// dropped.
func (c *Cache) Get(description string) (Suggestion, bool) {
	key := cacheKey(description)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Suggestion{}, false
	}
	if c.clock.Now().Sub(entry.storedAt) >= c.ttl {
		c.remove(key)
		return Suggestion{}, false
	}
	return entry.suggestion, true
}

// Set stores a suggestion. Updating an existing key keeps its position.
func (c *Cache) Set(description string, suggestion Suggestion) {
	key := cacheKey(description)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		if len(c.entries) >= c.maxSize && len(c.order) > 0 {
			c.remove(c.order[0])
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = cacheEntry{suggestion: suggestion, storedAt: c.clock.Now()}
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
	c.order = nil
}

// Stats returns the current size and limits
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Expiry:  c.ttl.String(),
	}
}

// remove must be called with mu held
func (c *Cache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
