package caching

import (
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache(time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Error("empty cache returned a value")
	}
	c.Set("k", "v")
	v, ok := c.Get("k")
	if !ok || v.(string) != "v" {
		t.Errorf("Get = %v, %v", v, ok)
	}

	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("value survived Delete")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	c.SetTTL("short", 1, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("value survived its TTL")
	}
}

func TestCacheStats(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	hits, misses, entries := c.Stats()
	if hits != 2 || misses != 1 || entries != 1 {
		t.Errorf("stats = %d hits, %d misses, %d entries", hits, misses, entries)
	}
}

func TestCacheFlush(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Flush()
	if _, _, entries := c.Stats(); entries != 0 {
		t.Errorf("entries after flush = %d", entries)
	}
}
