package entries

import (
	"log"
	"sync"

	"JackpotWheel/internal/ledger"
	"JackpotWheel/internal/model"
)

// defaultPageSize is the entry-list page size for ledger fetches.
const defaultPageSize = 100

// Cache holds per-round entry lists. Entries are append-only, so a cached
// list is valid exactly when its length equals the authoritative
// entries_count; any mismatch proves staleness and forces a refetch. Settled
// rounds keep their final list until purged.
type Cache struct {
	mu       sync.Mutex
	client   ledger.Client
	pageSize int
	rounds   map[int64][]model.Entry
}

// NewCache creates an entry cache backed by the given ledger client.
func NewCache(client ledger.Client) *Cache {
	return &Cache{
		client:   client,
		pageSize: defaultPageSize,
		rounds:   make(map[int64][]model.Entry),
	}
}

// Get returns the entry list for a round. On fetch failure the last cached
// value is returned if present, else an empty list; errors never propagate
// to the presentation layer.
//
// The network fetch runs without the lock, so a slow ledger never blocks
// lookups or purges for other rounds. Concurrent misses for the same round
// may fetch twice; the install is last-fetch-wins, which is safe because
// entries are append-only.
func (c *Cache) Get(roundID int64, expectedCount int) []model.Entry {
	c.mu.Lock()
	cached := c.rounds[roundID]
	if len(cached) == expectedCount && cached != nil {
		out := copyEntries(cached)
		c.mu.Unlock()
		return out
	}
	fallback := copyEntries(cached)
	c.mu.Unlock()

	fetched, err := c.fetchAll(roundID, expectedCount)
	if err != nil {
		log.Printf("[WARN] entry fetch for round %d failed: %v, serving cached (%d entries)",
			roundID, err, len(fallback))
		return fallback
	}

	c.mu.Lock()
	c.rounds[roundID] = fetched
	c.mu.Unlock()
	return copyEntries(fetched)
}

// Invalidate drops the cached list for a round, forcing the next Get to
// refetch. Called when a local submission is confirmed.
func (c *Cache) Invalidate(roundID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rounds, roundID)
}

// Purge removes a finished round's list. Identical to Invalidate today, but
// named for its lifecycle role: the round is over and must not leak.
func (c *Cache) Purge(roundID int64) {
	c.Invalidate(roundID)
}

// fetchAll pages through the ledger until expectedCount entries are read or
// the ledger returns a short page. The page fetches go to the network with
// the client's own timeout/retry; never called with the cache lock held.
// Always returns a non-nil slice on success so an empty round still counts
// as cached.
func (c *Cache) fetchAll(roundID int64, expectedCount int) ([]model.Entry, error) {
	all := []model.Entry{}
	for offset := 0; expectedCount <= 0 || offset < expectedCount; offset += c.pageSize {
		page, err := c.client.Entries(roundID, offset, c.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < c.pageSize {
			break
		}
	}
	return all, nil
}

func copyEntries(in []model.Entry) []model.Entry {
	out := make([]model.Entry, len(in))
	copy(out, in)
	return out
}
