package ai

import (
	"sync"
	"time"

	"github.com/buemura/safeurl/pkg/types"
	"github.com/zeebo/xxh3"
)

const defaultCacheSize = 4096

type cacheEntry struct {
	assessment types.AIAssessment
	expires    time.Time
}

// cache keeps recent assessments keyed by the xxh3 hash of the URL.
// A nil cache stores nothing.
type cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	entries map[uint64]cacheEntry
	now     func() time.Time
}

func newCache(ttl time.Duration, max int) *cache {
	return &cache{
		ttl:     ttl,
		max:     max,
		entries: make(map[uint64]cacheEntry),
		now:     time.Now,
	}
}

func (c *cache) get(url string) (types.AIAssessment, bool) {
	if c == nil {
		return types.AIAssessment{}, false
	}

	key := xxh3.HashString(url)
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return types.AIAssessment{}, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return types.AIAssessment{}, false
	}
	return e.assessment, true
}

func (c *cache) put(url string, a types.AIAssessment) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) >= c.max {
		for k, e := range c.entries {
			if !now.Before(e.expires) {
				delete(c.entries, k)
			}
		}
	}
	if len(c.entries) >= c.max {
		// Still full: drop an arbitrary entry.
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[xxh3.HashString(url)] = cacheEntry{assessment: a, expires: now.Add(c.ttl)}
}

func (c *cache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
