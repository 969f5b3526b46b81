package cache

import "testing"

func TestCacheStoreGetRemove(t *testing.T) {
	c := New[int]()

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	c.Store("a", 1)
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", v, ok)
	}

	c.Remove("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected miss after remove")
	}
}

func TestCacheKeys(t *testing.T) {
	c := New[string]()
	c.Store("x", "1")
	c.Store("y", "2")

	keys := c.Keys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
}
