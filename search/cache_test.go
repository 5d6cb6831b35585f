package search

import (
	"testing"
	"time"

	"github.com/poiesic/retrievit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_HitAndMiss(t *testing.T) {
	cache := NewCache(time.Minute)
	query := core.Query{Text: "fox", PageSize: 10}

	assert.Nil(t, cache.Get(query))

	result := &core.SearchResult{TotalHits: 1}
	cache.Put(query, result, cache.Generation())

	got := cache.Get(query)
	require.NotNil(t, got)
	assert.Equal(t, result, got)

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestCache_KeyCoversQueryShape(t *testing.T) {
	cache := NewCache(time.Minute)
	base := core.Query{Text: "fox", PageSize: 10}
	cache.Put(base, &core.SearchResult{TotalHits: 1}, cache.Generation())

	t.Run("different page misses", func(t *testing.T) {
		assert.Nil(t, cache.Get(core.Query{Text: "fox", PageSize: 10, Page: 1}))
	})

	t.Run("different page size misses", func(t *testing.T) {
		assert.Nil(t, cache.Get(core.Query{Text: "fox", PageSize: 20}))
	})

	t.Run("different filter misses", func(t *testing.T) {
		assert.Nil(t, cache.Get(core.Query{
			Text: "fox", PageSize: 10,
			Filter: map[string]string{"source": "docs"},
		}))
	})

	t.Run("filter order does not matter", func(t *testing.T) {
		q1 := core.Query{Text: "fox", PageSize: 10, Filter: map[string]string{"a": "1", "b": "2"}}
		q2 := core.Query{Text: "fox", PageSize: 10, Filter: map[string]string{"b": "2", "a": "1"}}
		cache.Put(q1, &core.SearchResult{TotalHits: 2}, cache.Generation())
		got := cache.Get(q2)
		require.NotNil(t, got)
		assert.Equal(t, 2, got.TotalHits)
	})
}

func TestCache_TTLExpiry(t *testing.T) {
	cache := NewCache(time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	query := core.Query{Text: "fox", PageSize: 10}
	cache.Put(query, &core.SearchResult{TotalHits: 1}, cache.Generation())
	require.NotNil(t, cache.Get(query))

	now = now.Add(time.Minute + time.Second)
	assert.Nil(t, cache.Get(query))
}

func TestCache_InvalidateAll(t *testing.T) {
	cache := NewCache(time.Minute)
	cache.Put(core.Query{Text: "a", PageSize: 10}, &core.SearchResult{}, cache.Generation())
	cache.Put(core.Query{Text: "b", PageSize: 10}, &core.SearchResult{}, cache.Generation())
	assert.Equal(t, 2, cache.Stats().Entries)

	cache.InvalidateAll()
	assert.Equal(t, 0, cache.Stats().Entries)
	assert.Nil(t, cache.Get(core.Query{Text: "a", PageSize: 10}))
}

func TestCache_StaleGenerationDropped(t *testing.T) {
	cache := NewCache(time.Minute)
	query := core.Query{Text: "fox", PageSize: 10}

	gen := cache.Generation()
	cache.InvalidateAll()

	// The result was computed before the invalidation; storing it now
	// would serve pre-invalidation state.
	cache.Put(query, &core.SearchResult{TotalHits: 1}, gen)
	assert.Equal(t, 0, cache.Stats().Entries)
	assert.Nil(t, cache.Get(query))
}

func TestCache_DefaultTTL(t *testing.T) {
	cache := NewCache(0)
	assert.Equal(t, DefaultCacheTTL, cache.ttl)
}
