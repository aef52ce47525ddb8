// Package debounce suppresses repeats of the same event inside a short TTL.
package debounce

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Cache remembers when each key was last claimed.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   Clock
	entries map[string]time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		clock:   realClock{},
		entries: make(map[string]time.Time),
	}
}

func (c *Cache) WithClock(clock Clock) {
	c.clock = clock
}

// Claim reports true for the first caller of key within the TTL. A
// non-positive TTL disables suppression.
func (c *Cache) Claim(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if last, ok := c.entries[key]; ok && !c.isExpired(last, now) {
		return false
	}
	c.entries[key] = now
	return true
}

// Forget releases key so the next Claim succeeds.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Sweep drops expired keys and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for key, last := range c.entries {
		if c.isExpired(last, now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) isExpired(last, now time.Time) bool {
	if c.ttl <= 0 {
		return true
	}
	return now.Sub(last) >= c.ttl
}
