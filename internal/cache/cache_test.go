package cache

import (
	"sort"
	"strings"
	"testing"
	"time"
)

func TestCacheExpiry(t *testing.T) {
	tests := []struct {
		name    string
		ttl     time.Duration
		wait    time.Duration
		wantHit bool
	}{
		{name: "Live item", ttl: time.Minute, wantHit: true},
		{name: "Expired item", ttl: time.Millisecond, wait: 5 * time.Millisecond, wantHit: false},
		{name: "No expiry", ttl: 0, wait: 5 * time.Millisecond, wantHit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New[string, int]()
			c.Set("k", 42, tt.ttl)
			time.Sleep(tt.wait)

			got, ok := c.Get("k")
			if ok != tt.wantHit {
				t.Fatalf("Get() hit = %v, want %v", ok, tt.wantHit)
			}
			if ok && got != 42 {
				t.Errorf("Get() = %v, want 42", got)
			}
		})
	}
}

func TestCacheTake(t *testing.T) {
	c := New[string, string]()
	c.Set("state", "value", time.Minute)

	if got, ok := c.Take("state"); !ok || got != "value" {
		t.Fatalf("Take() = %q, %v", got, ok)
	}
	if _, ok := c.Get("state"); ok {
		t.Error("Take() should remove the item")
	}
}

func TestCacheKeysAndDeleteFunc(t *testing.T) {
	c := New[string, int]()
	c.Set("a/1", 1, 0)
	c.Set("a/2", 2, 0)
	c.Set("b/1", 3, 0)
	c.Set("gone", 4, time.Nanosecond)
	time.Sleep(time.Millisecond)

	keys := c.Keys()
	sort.Strings(keys)
	if strings.Join(keys, ",") != "a/1,a/2,b/1" {
		t.Fatalf("Keys() = %v", keys)
	}

	c.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, "a/") })
	if keys := c.Keys(); len(keys) != 1 || keys[0] != "b/1" {
		t.Errorf("Keys() after DeleteFunc = %v", keys)
	}
}
