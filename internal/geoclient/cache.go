package geoclient

import (
	"sync"
	"time"

	"github.com/example/graborgan/internal/models"
)

// geocodeCache is a tiny in-memory TTL cache for address lookups. Hospital
// addresses are stable, and the tracker view geocodes the same pickup and
// destination on every poll.
type geocodeCache struct {
	mu    sync.RWMutex
	store map[string]geocodeEntry
	ttl   time.Duration
}

type geocodeEntry struct {
	wp models.Waypoint
	ts time.Time
}

func newGeocodeCache(ttl time.Duration) *geocodeCache {
	return &geocodeCache{store: make(map[string]geocodeEntry), ttl: ttl}
}

func (c *geocodeCache) get(address string) (models.Waypoint, bool) {
	c.mu.RLock()
	e, ok := c.store[address]
	c.mu.RUnlock()
	if !ok {
		return models.Waypoint{}, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, address)
		c.mu.Unlock()
		return models.Waypoint{}, false
	}
	return e.wp, true
}

func (c *geocodeCache) set(address string, wp models.Waypoint) {
	c.mu.Lock()
	c.store[address] = geocodeEntry{wp: wp, ts: time.Now()}
	c.mu.Unlock()
}
