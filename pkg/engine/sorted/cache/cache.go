// Package cache implements a bounded, volatile least-recently-used cache
// of decoded B+-tree nodes keyed by pool offset (SPEC_FULL.md §5.3 "Addition
// — node cache"). It is a pure read-side latency optimization — nothing
// here is durable, and losing its contents changes nothing about
// correctness, only how many times a node's bytes get re-decoded.
//
// Ordering is kept in a github.com/google/btree.BTree, the same structure
// the teacher's pkg/core/memory.MemTable builds its in-memory table on
// (there ordered by key; here ordered by recency sequence number), paired
// with a map for O(1) offset lookup the tree alone can't give.
package cache

import (
	"sync"

	"github.com/google/btree"
)

// entry is one cached node. Value is opaque to the cache — it is always a
// *sorted.leaf or *sorted.inner in practice, but this package has no
// reason to know that.
type entry struct {
	offset uint64
	seq    uint64
	value  interface{}
}

// Less orders entries by recency sequence number, oldest first, so the
// btree's minimum is always the next eviction candidate.
func (e *entry) Less(than btree.Item) bool {
	return e.seq < than.(*entry).seq
}

// Cache is a bounded LRU keyed by pool-relative node offset. The zero
// value is not usable; construct with New.
type Cache struct {
	mu       sync.Mutex
	capacity int
	byOffset map[uint64]*entry
	byRecency *btree.BTree
	nextSeq  uint64
}

// New returns a cache holding at most capacity nodes. capacity <= 0
// disables caching: Get always misses and Put is a no-op, letting callers
// wire a Cache unconditionally and control its size via config.
func New(capacity int) *Cache {
	return &Cache{
		capacity:  capacity,
		byOffset:  make(map[uint64]*entry),
		byRecency: btree.New(32),
	}
}

// Get returns the cached value for offset, bumping its recency, or
// ok=false on a miss.
func (c *Cache) Get(offset uint64) (value interface{}, ok bool) {
	if c.capacity <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.byOffset[offset]
	if !found {
		return nil, false
	}
	c.touch(e)
	return e.value, true
}

// Put inserts or refreshes the cached value for offset, evicting the
// least-recently-used entry if the cache is over capacity.
func (c *Cache) Put(offset uint64, value interface{}) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, found := c.byOffset[offset]; found {
		e.value = value
		c.touch(e)
		return
	}

	e := &entry{offset: offset, value: value}
	c.bump(e)
	c.byOffset[offset] = e
	c.byRecency.ReplaceOrInsert(e)

	for len(c.byOffset) > c.capacity {
		oldest := c.byRecency.DeleteMin()
		if oldest == nil {
			break
		}
		delete(c.byOffset, oldest.(*entry).offset)
	}
}

// Clear drops every cached entry, used when the engine closes to release
// the cache's memory. Committed writes go through Invalidate instead.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byOffset = make(map[uint64]*entry)
	c.byRecency = btree.New(32)
}

// Invalidate drops offset from the cache, used when a write-back (split,
// merge, in-place update) makes its decoded form stale.
func (c *Cache) Invalidate(offset uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.byOffset[offset]
	if !found {
		return
	}
	c.byRecency.Delete(e)
	delete(c.byOffset, offset)
}

func (c *Cache) touch(e *entry) {
	c.byRecency.Delete(e)
	c.bump(e)
	c.byRecency.ReplaceOrInsert(e)
}

func (c *Cache) bump(e *entry) {
	c.nextSeq++
	e.seq = c.nextSeq
}
