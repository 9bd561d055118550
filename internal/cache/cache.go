package cache

import (
	"sync"
	"time"
)

type item[V any] struct {
	value      V
	expiration time.Time
}

func (i item[V]) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

type Cache[K comparable, V any] struct {
	items sync.Map
}

// New creates a new Cache instance
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{}
}

// Set adds an item to the cache with a specific TTL. A TTL of zero or less
// keeps the item until it is deleted.
func (c *Cache[K, V]) Set(key K, value V, ttl time.Duration) {
	itm := item[V]{value: value}
	if ttl > 0 {
		itm.expiration = time.Now().Add(ttl)
	}
	c.items.Store(key, itm)
}

// Get retrieves an item from the cache. Returns false if not found or expired.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	val, ok := c.items.Load(key)
	if !ok {
		var zero V
		return zero, false
	}

	itm := val.(item[V])
	if itm.expired(time.Now()) {
		c.items.Delete(key)
		var zero V
		return zero, false
	}

	return itm.value, true
}

// Take retrieves and removes an item in one step.
func (c *Cache[K, V]) Take(key K) (V, bool) {
	val, ok := c.items.LoadAndDelete(key)
	if !ok {
		var zero V
		return zero, false
	}

	itm := val.(item[V])
	if itm.expired(time.Now()) {
		var zero V
		return zero, false
	}
	return itm.value, true
}

// Delete removes an item from the cache
func (c *Cache[K, V]) Delete(key K) {
	c.items.Delete(key)
}

// DeleteFunc removes every live item whose key matches.
func (c *Cache[K, V]) DeleteFunc(match func(K) bool) {
	c.items.Range(func(key, _ any) bool {
		if k := key.(K); match(k) {
			c.items.Delete(k)
		}
		return true
	})
}

// Keys returns the keys of all live items in no particular order.
func (c *Cache[K, V]) Keys() []K {
	now := time.Now()
	var keys []K
	c.items.Range(func(key, value any) bool {
		if !value.(item[V]).expired(now) {
			keys = append(keys, key.(K))
		}
		return true
	})
	return keys
}

// Cleanup removes expired items
func (c *Cache[K, V]) Cleanup() {
	now := time.Now()
	c.items.Range(func(key, value any) bool {
		itm := value.(item[V])
		if itm.expired(now) {
			c.items.Delete(key)
		}
		return true
	})
}

// StartJanitor runs Cleanup on the given interval until stop is closed.
func (c *Cache[K, V]) StartJanitor(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}
