package cache_test

import (
	"testing"
	"time"

	"github.com/grana-finance/grana-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[float64](5 * time.Minute)

	c.Set("current", 11.25)
	val, ok := c.Get("current")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != 11.25 {
		t.Errorf("expected 11.25, got %f", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[float64](5 * time.Minute)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[float64](50 * time.Millisecond)

	c.Set("current", 11.25)
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("current")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[float64](5 * time.Minute)

	c.Set("current", 11.25)
	c.Delete("current")

	_, ok := c.Get("current")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_MapValues(t *testing.T) {
	c := cache.New[map[string]float64](5 * time.Minute)

	c.Set("history:2024-01-01:2024-01-31", map[string]float64{"2024-01-02": 11.15})
	val, ok := c.Get("history:2024-01-01:2024-01-31")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val["2024-01-02"] != 11.15 {
		t.Errorf("unexpected cached history: %v", val)
	}
}
