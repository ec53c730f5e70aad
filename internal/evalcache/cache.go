// Package evalcache holds a bounded, position-keyed cache of evaluation
// results shared by every match in the process.
package evalcache

import "sync"

// Cache is a fixed-capacity LRU keyed by canonical FEN. Eviction scans
// for the stalest last-access timestamp; capacities stay small enough
// that the linear scan is cheaper than maintaining a heap.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*entry[V]
	clock    int64
}

type entry[V any] struct {
	value    V
	lastUsed int64
}

func New[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache[V]{
		capacity: capacity,
		entries:  make(map[string]*entry[V], capacity),
	}
}

// Get returns the cached value and marks it recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.clock++
	e.lastUsed = c.clock
	return e.value, true
}

// Put stores a value, evicting the least-recently-used entry when full.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock++
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.lastUsed = c.clock
		return
	}
	if len(c.entries) >= c.capacity {
		var victim string
		oldest := int64(1<<63 - 1)
		for k, e := range c.entries {
			if e.lastUsed < oldest {
				oldest = e.lastUsed
				victim = k
			}
		}
		delete(c.entries, victim)
	}
	c.entries[key] = &entry[V]{value: value, lastUsed: c.clock}
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Contains reports membership without refreshing recency.
func (c *Cache[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}
