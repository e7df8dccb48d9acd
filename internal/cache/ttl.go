// Package cache implements a small thread-safe LRU cache whose entries expire.
package cache

import (
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key     K
	val     V
	expires time.Time
	prev    *entry[K, V]
	next    *entry[K, V]
}

// TTL is an LRU cache bounded by size and entry age.
type TTL[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	items    map[K]*entry[K, V]
	head     *entry[K, V] // most recently used (sentinel)
	tail     *entry[K, V] // least recently used (sentinel)
}

// NewTTL creates a cache holding at most capacity entries, each for ttl.
// Panics if capacity < 1.
func NewTTL[K comparable, V any](capacity int, ttl time.Duration) *TTL[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be >= 1")
	}
	head, tail := &entry[K, V]{}, &entry[K, V]{}
	head.next, tail.prev = tail, head
	return &TTL[K, V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[K]*entry[K, V], capacity),
		head:     head,
		tail:     tail,
	}
}

// Get returns a live value. Expired entries are dropped on access.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expires) {
		c.unlink(e)
		delete(c.items, key)
		return zero, false
	}
	c.unlink(e)
	c.pushFront(e)
	return e.val, true
}

// Put stores val, evicting the least recently used entry when full.
func (c *TTL[K, V]) Put(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if e, ok := c.items[key]; ok {
		e.val, e.expires = val, expires
		c.unlink(e)
		c.pushFront(e)
		return
	}
	if len(c.items) >= c.capacity {
		victim := c.tail.prev
		c.unlink(victim)
		delete(c.items, victim.key)
	}
	e := &entry[K, V]{key: key, val: val, expires: expires}
	c.items[key] = e
	c.pushFront(e)
}

// Delete drops key. It reports whether the key was present.
func (c *TTL[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if ok {
		c.unlink(e)
		delete(c.items, key)
	}
	return ok
}

// Len counts stored entries, including expired ones not yet evicted.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// caller must hold mu
func (c *TTL[K, V]) unlink(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
}

func (c *TTL[K, V]) pushFront(e *entry[K, V]) {
	e.next = c.head.next
	e.prev = c.head
	c.head.next.prev = e
	c.head.next = e
}
