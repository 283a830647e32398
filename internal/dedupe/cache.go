package dedupe

import (
	"sync"
	"time"
)

type entry struct {
	key string
	ts  time.Time
}

// SeenCache keeps a fixed-size set of recently delivered notification keys
// so a (listener, article) pair is not announced twice inside the ttl window.
type SeenCache struct {
	mu       sync.Mutex
	items    map[string]time.Time
	order    []entry
	capacity int
	ttl      time.Duration
}

// NewSeenCache creates a cache with the provided capacity and ttl.
func NewSeenCache(capacity int, ttl time.Duration) *SeenCache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SeenCache{
		items:    make(map[string]time.Time, capacity),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Seen reports whether the key was observed inside the ttl window. It
// does not record the key; call Mark once the notification is delivered,
// so a failed delivery stays eligible for the next run.
func (c *SeenCache) Seen(key string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if ts, ok := c.items[key]; ok {
		if now.Sub(ts) <= c.ttl {
			return true
		}
	}
	return false
}

// Mark records that a key has been delivered.
func (c *SeenCache) Mark(key string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = now
	c.order = append(c.order, entry{key: key, ts: now})
	c.compact(now)
}

func (c *SeenCache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if ts, ok := c.items[oldest.key]; ok {
			if ts == oldest.ts {
				delete(c.items, oldest.key)
			}
		}
	}
}
