package search

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/retrievit/core"
)

// DefaultCacheTTL is how long a cached result stays valid when no
// commit invalidates it first.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	result    *core.SearchResult
	expiresAt time.Time
}

// Cache holds query results keyed by the full query shape. Entries
// expire after a TTL and the whole cache is dropped on every commit,
// so a hit is always consistent with the current committed state. A
// generation counter advances on every invalidation; a result computed
// against an older generation is rejected at Put time.
type Cache struct {
	mu      sync.RWMutex
	entries map[core.ID]cacheEntry
	gen     uint64
	ttl     time.Duration
	hits    atomic.Uint64
	misses  atomic.Uint64
	clock   func() time.Time
}

// NewCache creates a result cache with the given TTL. A non-positive
// ttl uses DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: make(map[core.ID]cacheEntry),
		ttl:     ttl,
		clock:   time.Now,
	}
}

// cacheKey derives a deterministic key from every field of the query
// that affects the result. Filters are sorted so equal filters in any
// map order produce the same key.
func cacheKey(query core.Query) core.ID {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d|%d|%d", query.Text, query.Limit, query.Page, query.PageSize)
	if len(query.Filter) > 0 {
		keys := make([]string, 0, len(query.Filter))
		for k := range query.Filter {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "|%s=%s", k, query.Filter[k])
		}
	}
	return core.IDFromContent(b.String())
}

// Get returns the cached result for the query, or nil on a miss or an
// expired entry.
func (c *Cache) Get(query core.Query) *core.SearchResult {
	key := cacheKey(query)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.clock().After(entry.expiresAt) {
		c.misses.Add(1)
		return nil
	}
	c.hits.Add(1)
	return entry.result
}

// Generation returns the current invalidation generation. Callers read
// it before executing a query and hand it back to Put.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Put stores a result computed at the given generation. A result from
// an older generation is dropped.
func (c *Cache) Put(query core.Query, result *core.SearchResult, gen uint64) {
	key := cacheKey(query)
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.entries[key] = cacheEntry{
		result:    result,
		expiresAt: c.clock().Add(c.ttl),
	}
}

// InvalidateAll drops every entry and advances the generation. Called
// on commit and optimize.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[core.ID]cacheEntry)
	c.gen++
	c.mu.Unlock()
}

// Stats reports hit, miss and entry counts.
func (c *Cache) Stats() core.CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()
	return core.CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: entries,
	}
}
