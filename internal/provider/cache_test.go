package provider

import (
	"testing"
	"time"

	"kolwatch/internal/domain"
)

const testMint = "So11111111111111111111111111111111111111112"

func TestCache_PutAndGet(t *testing.T) {
	cache := NewCache(time.Minute)

	symbol := "WIF"
	cache.Put(testMint, &domain.ProviderMetadata{Symbol: &symbol})

	meta, ok := cache.Get(testMint)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if meta == nil || meta.Symbol == nil || *meta.Symbol != "WIF" {
		t.Errorf("expected symbol WIF, got %+v", meta)
	}
}

func TestCache_MissForUnknownKey(t *testing.T) {
	cache := NewCache(time.Minute)

	if _, ok := cache.Get(testMint); ok {
		t.Error("expected a miss for a key never stored")
	}
}

func TestCache_ConfirmedMissIsAHit(t *testing.T) {
	// A nil entry means "the provider was asked and had nothing".
	// Get must report it as a hit so the caller does not re-fetch.
	cache := NewCache(time.Minute)

	cache.Put(testMint, nil)

	meta, ok := cache.Get(testMint)
	if !ok {
		t.Fatal("expected confirmed miss to count as a hit")
	}
	if meta != nil {
		t.Errorf("expected nil metadata, got %+v", meta)
	}
}

func TestCache_EntryExpiresAfterTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := NewCache(time.Minute).WithClock(func() time.Time { return now })

	symbol := "BONK"
	cache.Put(testMint, &domain.ProviderMetadata{Symbol: &symbol})

	// Exactly at the TTL boundary the entry is still fresh.
	now = now.Add(time.Minute)
	if _, ok := cache.Get(testMint); !ok {
		t.Error("expected hit at the TTL boundary")
	}

	now = now.Add(time.Nanosecond)
	if _, ok := cache.Get(testMint); ok {
		t.Error("expected miss after the TTL elapsed")
	}
}

func TestCache_SweepDropsOnlyStaleEntries(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cache := NewCache(time.Minute).WithClock(func() time.Time { return now })

	symbol := "OLD"
	cache.Put("stale", &domain.ProviderMetadata{Symbol: &symbol})

	now = now.Add(2 * time.Minute)
	cache.Put("fresh", nil)

	cache.Sweep()

	if cache.Len() != 1 {
		t.Errorf("expected 1 entry after sweep, got %d", cache.Len())
	}
	if _, ok := cache.Get("fresh"); !ok {
		t.Error("fresh entry should survive the sweep")
	}
}
