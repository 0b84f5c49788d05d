package meshindex

import (
	"sync"

	"github.com/jonit-dev/vibe-coder-3d-sub004/geom"
	"github.com/jonit-dev/vibe-coder-3d-sub004/types"
)

type cacheEntry struct {
	index *Index
	refs  int
}

// A Cache shares indices between all instances of the same geometry. Indices
// are built on first use and dropped when their last reference is released.
type Cache struct {
	sync.Mutex

	opts    Options
	entries map[string]*cacheEntry
}

// Create a new cache that builds indices using opts.
func NewCache(opts Options) *Cache {
	return &Cache{
		opts:    opts,
		entries: make(map[string]*cacheEntry),
	}
}

// Acquire returns the index for the named geometry, building it from the
// supplied buffers if it is not cached yet, and increments its reference
// count.
func (c *Cache) Acquire(name string, positions []types.Vec3, indices []uint32) *Index {
	return c.acquire(name, func() *Index {
		return BuildIndexed(name, positions, indices, c.opts)
	})
}

// AcquireTriangles is Acquire for geometry supplied as a triangle list.
func (c *Cache) AcquireTriangles(name string, tris []geom.Triangle) *Index {
	return c.acquire(name, func() *Index {
		return Build(name, tris, c.opts)
	})
}

func (c *Cache) acquire(name string, build func() *Index) *Index {
	c.Lock()
	defer c.Unlock()

	entry, exists := c.entries[name]
	if !exists {
		entry = &cacheEntry{index: build()}
		c.entries[name] = entry
	}
	entry.refs++
	return entry.index
}

// Lookup returns the cached index for the named geometry without changing
// its reference count.
func (c *Cache) Lookup(name string) (*Index, bool) {
	c.Lock()
	defer c.Unlock()

	entry, exists := c.entries[name]
	if !exists {
		return nil, false
	}
	return entry.index, true
}

// Release drops a reference to the named geometry. The index is evicted when
// no references remain. It returns false if the geometry is not cached.
func (c *Cache) Release(name string) bool {
	c.Lock()
	defer c.Unlock()

	entry, exists := c.entries[name]
	if !exists {
		return false
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(c.entries, name)
	}
	return true
}

// Get the reference count for the named geometry.
func (c *Cache) RefCount(name string) int {
	c.Lock()
	defer c.Unlock()

	if entry, exists := c.entries[name]; exists {
		return entry.refs
	}
	return 0
}

// Get the number of cached indices.
func (c *Cache) Len() int {
	c.Lock()
	defer c.Unlock()
	return len(c.entries)
}
