package storage

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vjranagit/trendline/pkg/calendar"
	"github.com/vjranagit/trendline/pkg/types"
)

// SampleCache is an LRU cache with TTL over fetched sample slices,
// keyed by series identity and resolved range.
type SampleCache struct {
	capacity int
	ttl      time.Duration
	mu       sync.Mutex
	entries  map[string]*cacheEntry
	lru      *list.List
}

type cacheEntry struct {
	key     string
	samples []types.Sample
	at      time.Time
	element *list.Element
}

// NewSampleCache creates a cache holding up to capacity entries, each
// valid for ttl.
func NewSampleCache(capacity int, ttl time.Duration) *SampleCache {
	return &SampleCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*cacheEntry),
		lru:      list.New(),
	}
}

// Get returns the cached samples for key, if present and fresh.
func (c *SampleCache) Get(key string) ([]types.Sample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.at) > c.ttl {
		c.removeLocked(key)
		return nil, false
	}
	c.lru.MoveToFront(entry.element)
	return entry.samples, true
}

// Put stores samples under key, evicting the least recently used entry
// when over capacity.
func (c *SampleCache) Put(key string, samples []types.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.samples = samples
		entry.at = time.Now()
		c.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{key: key, samples: samples, at: time.Now()}
	entry.element = c.lru.PushFront(entry)
	c.entries[key] = entry

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.removeLocked(oldest.Value.(*cacheEntry).key)
		}
	}
}

func (c *SampleCache) removeLocked(key string) {
	if entry, ok := c.entries[key]; ok {
		c.lru.Remove(entry.element)
		delete(c.entries, key)
	}
}

// Clear drops every entry.
func (c *SampleCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.lru = list.New()
}

// Size returns the number of live entries.
func (c *SampleCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CachedProvider wraps a Store with sample caching. Writes invalidate
// the whole cache; stale trend rows are worse than a cold fetch.
type CachedProvider struct {
	store  *Store
	cache  *SampleCache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachedProvider wraps store with an LRU sample cache.
func NewCachedProvider(store *Store, capacity int, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		store: store,
		cache: NewSampleCache(capacity, ttl),
	}
}

// FetchAverages implements the trend engine's provider contract,
// consulting the cache first.
func (p *CachedProvider) FetchAverages(ctx context.Context, element, parameter string, r calendar.Range) ([]types.Sample, error) {
	key := cacheKey(element, parameter, r)

	if samples, ok := p.cache.Get(key); ok {
		p.hits.Add(1)
		return samples, nil
	}
	p.misses.Add(1)

	samples, err := p.store.FetchAverages(ctx, element, parameter, r)
	if err != nil {
		return nil, err
	}
	p.cache.Put(key, samples)
	return samples, nil
}

// Write passes through to the store after invalidating the cache.
func (p *CachedProvider) Write(ctx context.Context, req *types.WriteRequest) error {
	p.cache.Clear()
	return p.store.Write(ctx, req)
}

// ListSeries passes through to the store.
func (p *CachedProvider) ListSeries() []types.SeriesInfo {
	return p.store.ListSeries()
}

// CacheStats returns cumulative hit and miss counts.
func (p *CachedProvider) CacheStats() (hits, misses uint64) {
	return p.hits.Load(), p.misses.Load()
}

func cacheKey(element, parameter string, r calendar.Range) string {
	return fmt.Sprintf("%s\x00%s\x00%d\x00%d",
		element, parameter, r.Start.UnixMilli(), r.End.UnixMilli())
}
