package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLRUSetGetAndExpire(t *testing.T) {
	c := NewLRU[string](2, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("a", "alpha")
	if val, ok := c.Get("a"); !ok || val != "alpha" {
		t.Fatalf("expected cached value, got %q %v", val, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected value to expire")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be removed, len=%d", c.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRU[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected oldest entry to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected recent entry to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("expected newest entry to remain")
	}
}

func TestLRUDelete(t *testing.T) {
	c := NewLRU[int](4, 0)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected deleted entry to be gone")
	}
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := NewLRU[int](64, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", (n+j)%100)
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() > 64 {
		t.Fatalf("cache exceeded bound: %d", c.Len())
	}
}
