package profile

import (
	"log"
	"sync"
	"time"

	"JackpotWheel/internal/model"
)

// Cache is a TTL-bounded account→profile cache. Display identity changes
// rarely, so the TTL is measured in days. Independently of the TTL, each
// account has a minimum inter-fetch interval: a round with 50 new accounts
// must not translate into 50 fetch bursts every render.
//
// A fetch that yields "no profile" is cached as a negative result under the
// same TTL/throttle rules.
type Cache struct {
	mu       sync.Mutex
	service  Service
	ttl      time.Duration
	throttle time.Duration
	now      func() time.Time
	entries  map[string]*cacheEntry
}

type cacheEntry struct {
	profile     *model.Profile // nil = negative result
	fetchedAt   time.Time      // zero until a fetch succeeds (incl. negative)
	lastAttempt time.Time
}

// NewCache creates a profile cache around the given service. A nil service
// is allowed; the cache then serves misses for every account.
func NewCache(service Service, ttl, throttle time.Duration) *Cache {
	return &Cache{
		service:  service,
		ttl:      ttl,
		throttle: throttle,
		now:      time.Now,
		entries:  make(map[string]*cacheEntry),
	}
}

// Get returns the cached profile for an account, fetching if the cached
// value is missing or expired and the per-account throttle allows it. Fetch
// failures fall back to the last known value.
//
// The service call runs without the lock; lookups for other accounts keep
// working while a fetch is in flight. lastAttempt is stamped before
// unlocking, so concurrent misses for the same account collapse into one
// fetch under the throttle.
func (c *Cache) Get(account string) *model.Profile {
	c.mu.Lock()
	now := c.now()
	e, ok := c.entries[account]
	if ok && !e.fetchedAt.IsZero() && now.Sub(e.fetchedAt) < c.ttl {
		p := e.profile
		c.mu.Unlock()
		return p
	}
	if c.service == nil {
		c.mu.Unlock()
		return nil
	}
	if ok && now.Sub(e.lastAttempt) < c.throttle {
		// Stale but throttled: serve whatever we have.
		p := e.profile
		c.mu.Unlock()
		return p
	}
	if !ok {
		e = &cacheEntry{}
		c.entries[account] = e
	}
	e.lastAttempt = now
	last := e.profile
	c.mu.Unlock()

	p, err := c.service.GetProfile(account)
	if err != nil {
		log.Printf("[WARN] profile fetch for %s failed: %v", account, err)
		return last
	}

	c.mu.Lock()
	e.profile = p
	e.fetchedAt = now
	c.mu.Unlock()
	return p
}

// Len returns the number of cached accounts.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
