package blobstore

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/e57go/resource"
)

// BlockKey identifies one fixed-size block of a blob.
type BlockKey struct {
	Blob  string
	Block int64
}

// BlockCache caches immutable blob blocks. Returned slices are read-only.
type BlockCache interface {
	Get(key BlockKey) ([]byte, bool)
	Set(key BlockKey, b []byte)
	// Invalidate drops every block of blob.
	Invalidate(blob string)
}

// LRUCache is a BlockCache bounded by total bytes, evicting least recently
// used blocks first.
type LRUCache struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	items    map[BlockKey]*list.Element
	order    *list.List
	rc       *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	key  BlockKey
	data []byte
}

// NewLRUCache creates a cache holding up to capacity bytes. When rc is not
// nil, cached bytes also count against its memory budget; a block that does
// not fit the budget is not cached.
func NewLRUCache(capacity int64, rc *resource.Controller) *LRUCache {
	return &LRUCache{
		capacity: capacity,
		items:    make(map[BlockKey]*list.Element),
		order:    list.New(),
		rc:       rc,
	}
}

// Get implements BlockCache.
func (c *LRUCache) Get(key BlockKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.order.MoveToFront(e)
		return e.Value.(*cacheEntry).data, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set implements BlockCache.
func (c *LRUCache) Set(key BlockKey, b []byte) {
	n := int64(len(b))
	if n == 0 || n > c.capacity {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.remove(e)
	}
	for c.size+n > c.capacity {
		c.remove(c.order.Back())
	}
	if !c.rc.TryAcquireMemory(n) {
		return
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, data: b})
	c.size += n
}

// Invalidate implements BlockCache.
func (c *LRUCache) Invalidate(blob string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.items {
		if key.Blob == blob {
			c.remove(e)
		}
	}
}

func (c *LRUCache) remove(e *list.Element) {
	ent := c.order.Remove(e).(*cacheEntry)
	delete(c.items, ent.key)
	n := int64(len(ent.data))
	c.size -= n
	c.rc.ReleaseMemory(n)
}

// Size returns the cached bytes.
func (c *LRUCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns the hit and miss counts.
func (c *LRUCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
