package controller

import (
	"container/list"
	"time"
)

// entryState tracks where a cache entry is in its life.
type entryState int

const (
	statePending entryState = iota
	stateReady
)

// cacheEntry is the per-fingerprint record owned exclusively by the
// controller. While pending it carries the broadcast channel coalesced
// waiters block on; once resolved it carries the shared result or the
// executor's error. All fields are guarded by the controller mutex
// except reads of result/err after done is closed, which are safe
// because both are written exactly once before the close.
type cacheEntry struct {
	fingerprint string
	state       entryState
	result      *Result
	err         error
	done        chan struct{} // closed exactly once when the entry resolves
	waiters     int
	lastAccess  time.Time
	invalidate  bool          // remove once the last waiter drains
	elem        *list.Element // position in LRU order while ready
}

// resultCache is the bounded least-recently-used structure holding ready
// entries. It is not self-locking: every method must be called with the
// controller mutex held. Eviction never removes an entry that has active
// waiters; when every entry over capacity is pinned by waiters the cache
// temporarily exceeds its bound until they drain.
type resultCache struct {
	maxSize int
	items   map[string]*cacheEntry
	order   *list.List // front = most recently used
}

// newResultCache creates an empty bounded cache.
func newResultCache(maxSize int) *resultCache {
	return &resultCache{
		maxSize: maxSize,
		items:   make(map[string]*cacheEntry),
		order:   list.New(),
	}
}

// touch marks an entry as most recently used.
func (c *resultCache) touch(e *cacheEntry) {
	if e.elem != nil {
		c.order.MoveToFront(e.elem)
	}
}

// insert adds a ready entry and returns the entries evicted to restore
// the bound, least-recently-accessed eligible first.
func (c *resultCache) insert(e *cacheEntry) []*cacheEntry {
	e.elem = c.order.PushFront(e)
	c.items[e.fingerprint] = e

	var evicted []*cacheEntry
	for len(c.items) > c.maxSize {
		victim := c.evictLRU()
		if victim == nil {
			break // every candidate pinned by waiters
		}
		evicted = append(evicted, victim)
	}
	return evicted
}

// remove drops an entry from the cache. Returns false if it was not held.
func (c *resultCache) remove(e *cacheEntry) bool {
	if _, ok := c.items[e.fingerprint]; !ok {
		return false
	}
	delete(c.items, e.fingerprint)
	if e.elem != nil {
		c.order.Remove(e.elem)
		e.elem = nil
	}
	return true
}

// len returns the number of ready entries held.
func (c *resultCache) len() int {
	return len(c.items)
}

// entries returns every held entry in LRU order, most recently used first.
func (c *resultCache) entries() []*cacheEntry {
	out := make([]*cacheEntry, 0, len(c.items))
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(*cacheEntry))
	}
	return out
}

// evictLRU removes and returns the least recently used entry with zero
// active waiters, or nil when none is eligible.
func (c *resultCache) evictLRU() *cacheEntry {
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		entry := elem.Value.(*cacheEntry)
		if entry.waiters > 0 {
			continue
		}
		delete(c.items, entry.fingerprint)
		c.order.Remove(elem)
		entry.elem = nil
		return entry
	}
	return nil
}
