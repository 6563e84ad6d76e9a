package popregistry

import (
	"context"
	"sync"

	"github.com/couchcryptid/epi-signal-etl/internal/domain"
	"github.com/couchcryptid/epi-signal-etl/internal/observability"
)

// CachedLookup wraps a PopulationLookup with an in-memory LRU cache.
// Population figures change on census timescales, so entries never expire;
// the LRU bound only caps memory for high-cardinality location sets.
type CachedLookup struct {
	inner   domain.PopulationLookup
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedLookup creates a cache decorator around a population lookup.
func NewCachedLookup(inner domain.PopulationLookup, maxEntries int, metrics *observability.Metrics) *CachedLookup {
	return &CachedLookup{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedLookup) Population(ctx context.Context, location string) (float64, bool, error) {
	if pop, ok := c.cache.get(location); ok {
		c.metrics.PopulationCache.WithLabelValues("hit").Inc()
		return pop, true, nil
	}
	c.metrics.PopulationCache.WithLabelValues("miss").Inc()

	pop, found, err := c.inner.Population(ctx, location)
	if err != nil {
		return 0, false, err
	}
	// Only cache found results so transient misses can be retried.
	if found {
		c.cache.put(location, pop)
	}
	return pop, found, nil
}

// lruCache is a simple thread-safe LRU cache for population figures.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value float64
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
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

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
