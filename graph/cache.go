// Package graph memoizes the topological sort of a facet dependency
// DAG (spec §4.4), keyed by a signature of the hook set that produced
// it, and performs the sort itself when asked to (spec §4.5 step 5).
package graph

import (
	"container/list"
	"fmt"
	"sort"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// HookSignature is one entry contributing to a cache key: a facet
// kind, its overwrite flag, and its required dependency set.
type HookSignature struct {
	Kind      string
	Overwrite bool
	Required  []string
}

// Signature computes an order-independent key over a set of hook
// signatures, per spec §4.4 ("order-independent over kind + overwrite
// flag + required set").
func Signature(sigs []HookSignature) string {
	parts := make([]string, len(sigs))
	for i, s := range sigs {
		required := append([]string(nil), s.Required...)
		sort.Strings(required)
		parts[i] = fmt.Sprintf("%s|%v|%v", s.Kind, s.Overwrite, required)
	}
	sort.Strings(parts)
	return fmt.Sprintf("%v", parts)
}

type entry struct {
	key   string
	order []string
}

// Cache is an LRU mapping signature -> ordered kinds, bounded in
// capacity and guarded by a Bloom filter so repeated misses on a
// signature the cache has never seen skip the LRU lookup entirely.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
	seen     *bloom.BloomFilter

	hits, misses, evictions uint64
}

// NewCache builds a Cache bounded to capacity entries; a capacity of
// 0 or less falls back to 64.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 64
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
		seen:     bloom.NewWithEstimates(uint(capacity*4), 0.01),
	}
}

// Get returns the cached order for key, verbatim, and whether it was
// present.
func (c *Cache) Get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.seen.TestString(key) {
		c.misses++
		return nil, false
	}
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	out := make([]string, len(el.Value.(*entry).order))
	copy(out, el.Value.(*entry).order)
	return out, true
}

// Put stores order under key, evicting the least recently used entry
// if the cache is at capacity. Only valid (non-empty) plans should
// ever reach Put — the builder must never cache a failed plan.
func (c *Cache) Put(key string, order []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen.AddString(key)
	stored := make([]string, len(order))
	copy(stored, order)

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).order = stored
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&entry{key: key, order: stored})
	c.items[key] = el
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
			c.evictions++
		}
	}
}

// Invalidate drops a single cached signature.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Stats reports cache effectiveness for the ambient logger/CLI.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// Stats returns a snapshot of cache hit/miss/eviction counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Evictions: c.evictions, Size: c.ll.Len()}
}
