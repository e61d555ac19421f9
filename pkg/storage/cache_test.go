package storage

import (
	"context"
	"testing"
	"time"

	"github.com/vjranagit/trendline/pkg/calendar"
	"github.com/vjranagit/trendline/pkg/types"
)

func TestSampleCache(t *testing.T) {
	cache := NewSampleCache(100, time.Minute)

	if _, ok := cache.Get("k"); ok {
		t.Error("Expected cache miss, got hit")
	}

	samples := []types.Sample{
		{Timestamp: time.Now(), Value: 42.0},
	}
	cache.Put("k", samples)

	got, ok := cache.Get("k")
	if !ok {
		t.Fatal("Expected cache hit, got miss")
	}
	if len(got) != 1 || got[0].Value != 42.0 {
		t.Errorf("Expected cached sample with value 42.0, got %+v", got)
	}
}

func TestSampleCacheTTL(t *testing.T) {
	cache := NewSampleCache(100, 50*time.Millisecond)

	cache.Put("k", nil)
	if _, ok := cache.Get("k"); !ok {
		t.Error("Expected cache hit before TTL")
	}

	time.Sleep(80 * time.Millisecond)
	if _, ok := cache.Get("k"); ok {
		t.Error("Expected cache miss after TTL")
	}
}

func TestSampleCacheEviction(t *testing.T) {
	cache := NewSampleCache(2, time.Minute)

	cache.Put("a", nil)
	cache.Put("b", nil)
	cache.Get("a") // refresh a
	cache.Put("c", nil)

	if _, ok := cache.Get("b"); ok {
		t.Error("Expected least recently used entry to be evicted")
	}
	if _, ok := cache.Get("a"); !ok {
		t.Error("Expected refreshed entry to survive")
	}
	if cache.Size() != 2 {
		t.Errorf("Expected size 2, got %d", cache.Size())
	}
}

func TestCachedProvider(t *testing.T) {
	store := openTestStore(t, t.TempDir())
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	provider := NewCachedProvider(store, 16, time.Minute)
	err := provider.Write(ctx, &types.WriteRequest{
		Element: "pump-1", Parameter: "flow",
		Samples: []types.Sample{{Timestamp: base, Value: 1}},
	})
	if err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	r := calendar.AllTime()

	if _, err := provider.FetchAverages(ctx, "pump-1", "flow", r); err != nil {
		t.Fatalf("Failed to fetch: %v", err)
	}
	if _, err := provider.FetchAverages(ctx, "pump-1", "flow", r); err != nil {
		t.Fatalf("Failed to fetch: %v", err)
	}

	hits, misses := provider.CacheStats()
	if hits != 1 || misses != 1 {
		t.Errorf("Expected 1 hit / 1 miss, got %d / %d", hits, misses)
	}

	// A write invalidates the cache, so the updated value is visible.
	err = provider.Write(ctx, &types.WriteRequest{
		Element: "pump-1", Parameter: "flow",
		Samples: []types.Sample{{Timestamp: base.Add(time.Hour), Value: 2}},
	})
	if err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	samples, err := provider.FetchAverages(ctx, "pump-1", "flow", r)
	if err != nil {
		t.Fatalf("Failed to fetch: %v", err)
	}
	if len(samples) != 2 {
		t.Errorf("Expected 2 samples after invalidating write, got %d", len(samples))
	}
}
