package cache_test

import (
	"testing"
	"time"

	"github.com/minhnd/expenses-ledger-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_DeletePrefix(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("u1|2024-03", "a")
	c.Set("u1|2024-04", "b")
	c.Set("u2|2024-03", "c")

	c.DeletePrefix("u1|")

	if _, ok := c.Get("u1|2024-03"); ok {
		t.Fatal("expected u1 keys to be dropped")
	}
	if _, ok := c.Get("u1|2024-04"); ok {
		t.Fatal("expected u1 keys to be dropped")
	}
	if _, ok := c.Get("u2|2024-03"); !ok {
		t.Fatal("expected other users' keys to survive")
	}
}
