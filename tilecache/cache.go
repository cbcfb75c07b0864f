// Package tilecache keeps decoded tile images in memory and fetches the
// missing ones.
package tilecache

import (
	"image"
	"sync"

	"github.com/pdok/gridmap/metrics"
	"github.com/pdok/gridmap/tile"
)

const DefaultCapacity = 240

type entry struct {
	img   image.Image
	stamp uint64
}

// Cache holds at most Capacity images. Every Get or Put stamps the entry with a
// logical clock, a Put beyond capacity evicts the entry with the oldest stamp.
type Cache struct {
	mu       sync.Mutex
	capacity int
	clock    uint64
	entries  map[tile.Block]*entry
}

// New returns a cache of capacity entries, DefaultCapacity when capacity <= 0.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{capacity: capacity, entries: make(map[tile.Block]*entry, capacity+1)}
}

func (c *Cache) Get(b tile.Block) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[b]
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	c.clock++
	e.stamp = c.clock
	metrics.CacheHitsTotal.Inc()
	return e.img, true
}

func (c *Cache) Put(b tile.Block, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock++
	if e, ok := c.entries[b]; ok {
		e.img, e.stamp = img, c.clock
		return
	}
	c.entries[b] = &entry{img: img, stamp: c.clock}
	for len(c.entries) > c.capacity {
		c.evict(b)
	}
}

// evict drops the least recently used entry other than keep.
func (c *Cache) evict(keep tile.Block) {
	var (
		oldest tile.Block
		stamp  uint64
		found  bool
	)
	for b, e := range c.entries {
		if b == keep {
			continue
		}
		if !found || e.stamp < stamp {
			oldest, stamp, found = b, e.stamp, true
		}
	}
	if !found {
		return
	}
	delete(c.entries, oldest)
	metrics.CacheEvictionsTotal.Inc()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Capacity() int {
	return c.capacity
}
