package nfp

import (
	"sync"

	"github.com/piwi3910/polynest/internal/geometry"
)

// Key identifies one memoized fit computation. NFP(A, B) and NFP(B, A)
// differ in general, so the stationary/orbiting roles are part of the key.
// Inner distinguishes inner-fit entries (part against container) from
// no-fit entries (part against obstacle).
type Key struct {
	StationaryID  string
	StationaryRot float64
	OrbitingID    string
	OrbitingRot   float64
	Inner         bool
}

// Cache memoizes fit polygons for the lifetime of one nesting run. Geometry
// never changes during a run, so entries are reusable across generations
// and across individuals.
//
// Lookups are safe for concurrent use. Misses are single-flight: the first
// caller computes while concurrent callers for the same key block until the
// result is ready, so each key is computed at most once.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*cacheEntry
}

type cacheEntry struct {
	ready chan struct{}
	poly  geometry.Polygon
	err   error
}

// NewCache returns an empty cache, scoped to a single solve invocation.
func NewCache() *Cache {
	return &Cache{entries: make(map[Key]*cacheEntry)}
}

// Get returns the cached polygon for key, invoking compute on the first
// lookup. The stored polygon is returned by reference and must be treated
// as immutable by callers.
func (c *Cache) Get(key Key, compute func() (geometry.Polygon, error)) (geometry.Polygon, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		c.mu.Unlock()
		<-e.ready
		return e.poly, e.err
	}
	e = &cacheEntry{ready: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	e.poly, e.err = compute()
	close(e.ready)
	return e.poly, e.err
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
