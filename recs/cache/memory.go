// Package cache implements the two-tier recommendation cache: a
// bounded in-process fast tier in front of a durable shared store.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Memory is the fast tier: a mutex-guarded map with TTL support and
// capacity eviction. Eviction is strictly by insertion recency, not
// access recency: Get never promotes an entry, so the entry evicted at
// capacity is always the oldest-inserted one. The tier's TTL is short
// relative to request bursts, which keeps this simplification honest.
//
// Expiry is checked lazily at read time; there is no background sweep.
// The capacity bound is therefore load-bearing for memory use and must
// not be removed.
type Memory[K comparable, V any] struct {
	entries  map[K]*memoryEntry[K, V]
	order    *list.List
	capacity int
	mu       sync.Mutex

	// OnEvict, when set, is called for every capacity eviction. The
	// callback runs with the cache lock held and must not re-enter the
	// cache.
	OnEvict func(key K)
}

type memoryEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
	element   *list.Element
}

// DefaultCapacity bounds the fast tier when no capacity is configured.
const DefaultCapacity = 100

// NewMemory creates a fast-tier cache holding at most capacity items.
func NewMemory[K comparable, V any](capacity int) *Memory[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory[K, V]{
		entries:  make(map[K]*memoryEntry[K, V]),
		order:    list.New(),
		capacity: capacity,
	}
}

// Get returns the value for key when present and unexpired. An expired
// entry is purged on the spot.
func (c *Memory[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		c.remove(e)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl writes an
// entry that is already expired, so the next Get purges it. Writing an
// existing key refreshes its insertion position.
func (c *Memory[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(ttl)

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	e := &memoryEntry[K, V]{key: key, value: value, expiresAt: expiresAt}
	e.element = c.order.PushFront(e)
	c.entries[key] = e
}

// Remove deletes key. Returns whether the key was present.
func (c *Memory[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.remove(e)
		return true
	}
	return false
}

// Size returns the number of stored entries, expired or not.
func (c *Memory[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the maximum entry count.
func (c *Memory[K, V]) Capacity() int {
	return c.capacity
}

// evictOldest removes the oldest-inserted entry. Lock must be held.
func (c *Memory[K, V]) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	e := oldest.Value.(*memoryEntry[K, V])
	c.remove(e)
	if c.OnEvict != nil {
		c.OnEvict(e.key)
	}
}

// remove unlinks an entry. Lock must be held.
func (c *Memory[K, V]) remove(e *memoryEntry[K, V]) {
	c.order.Remove(e.element)
	delete(c.entries, e.key)
}
