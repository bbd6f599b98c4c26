// Package cache provides a size-bounded LRU cache for values derived from
// file content.
package cache

import (
	"sync"
	"sync/atomic"
)

// DefaultSize is the default maximum accounted size of an LRU (64 MB).
const DefaultSize = 64 * 1024 * 1024

// bytesPerKB is the number of bytes in a kilobyte.
const bytesPerKB = 1024.0

// LRU maps keys to values with a caller-accounted size per entry. When the
// accounted size exceeds the limit, large and rarely used entries near the
// least recently used end are evicted first. An LRU is safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu          sync.Mutex
	entries     map[K]*entry[K, V]
	head        *entry[K, V] // Most recently used.
	tail        *entry[K, V] // Least recently used.
	maxSize     int64
	currentSize int64

	hits   atomic.Int64
	misses atomic.Int64
}

type entry[K comparable, V any] struct {
	key         K
	value       V
	size        int64
	accessCount int64
	prev        *entry[K, V]
	next        *entry[K, V]
}

// evictionCost is higher for entries that are cheaper to keep: small and
// frequently accessed.
func (e *entry[K, V]) evictionCost() float64 {
	sizeKB := float64(e.size) / bytesPerKB
	if sizeKB < 1 {
		sizeKB = 1
	}

	return float64(e.accessCount) / sizeKB
}

// New creates an LRU holding at most maxSize accounted bytes. A non-positive
// maxSize selects DefaultSize.
func New[K comparable, V any](maxSize int64) *LRU[K, V] {
	if maxSize <= 0 {
		maxSize = DefaultSize
	}

	return &LRU[K, V]{
		entries: make(map[K]*entry[K, V]),
		maxSize: maxSize,
	}
}

// Get returns the value cached under key.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		var zero V

		return zero, false
	}

	c.hits.Add(1)

	e.accessCount++
	c.moveToFront(e)

	return e.value, true
}

// Put caches value under key, accounting size bytes for it. Values larger
// than the whole cache are not stored. An existing key keeps its value.
func (c *LRU[K, V]) Put(key K, value V, size int64) {
	if size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.accessCount++
		c.moveToFront(e)

		return
	}

	for c.currentSize+size > c.maxSize && c.tail != nil {
		c.evictLowestCost()
	}

	e := &entry[K, V]{key: key, value: value, size: size, accessCount: 1}

	c.entries[key] = e
	c.currentSize += size
	c.addToFront(e)
}

// Stats returns cache statistics.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxSize,
	}
}

// Stats holds cache performance metrics.
type Stats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}

	return float64(s.Hits) / float64(total)
}

func (c *LRU[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}

	c.removeFromList(e)
	c.addToFront(e)
}

func (c *LRU[K, V]) addToFront(e *entry[K, V]) {
	e.prev = nil
	e.next = c.head

	if c.head != nil {
		c.head.prev = e
	}

	c.head = e

	if c.tail == nil {
		c.tail = e
	}
}

func (c *LRU[K, V]) removeFromList(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}

	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

// evictionSampleSize is the number of tail entries compared on eviction.
const evictionSampleSize = 5

// evictLowestCost evicts the cheapest of the evictionSampleSize least
// recently used entries.
func (c *LRU[K, V]) evictLowestCost() {
	victim := c.tail
	if victim == nil {
		return
	}

	lowest := victim.evictionCost()

	for e, n := victim.prev, 1; e != nil && n < evictionSampleSize; e, n = e.prev, n+1 {
		if cost := e.evictionCost(); cost < lowest {
			lowest = cost
			victim = e
		}
	}

	c.removeFromList(victim)
	delete(c.entries, victim.key)
	c.currentSize -= victim.size
}
