package assets

import (
	"container/list"
	"image"
	"sync"
)

// RasterCache is a bounded, mutex-guarded LRU of decoded asset rasters keyed
// by asset ID. It is owned by whoever constructs it and passed into the
// library explicitly; there is no process-wide instance.
type RasterCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type rasterEntry struct {
	assetID string
	img     image.Image
}

func NewRasterCache(capacity int) *RasterCache {
	if capacity < 1 {
		capacity = 1
	}
	return &RasterCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get returns the cached raster for an asset and whether it was present.
func (c *RasterCache) Get(assetID string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[assetID]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*rasterEntry).img, true
}

// Put stores a raster for an asset, evicting the least recently used entry
// when the cache is full.
func (c *RasterCache) Put(assetID string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[assetID]; ok {
		el.Value.(*rasterEntry).img = img
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*rasterEntry).assetID)
		}
	}

	c.entries[assetID] = c.order.PushFront(&rasterEntry{assetID: assetID, img: img})
}

// Len returns the number of cached entries.
func (c *RasterCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
