// Package feed implements the read-path reconciliation core: it turns the
// flat, mutable, ID-indexed ledger into ordered, filtered, incrementally
// loaded views kept fresh by polling.
package feed

import (
	"context"
	"sync"

	"github.com/bitbuzz-project/web3social-sub000/internal/model"
	"github.com/bitbuzz-project/web3social-sub000/internal/source"
)

// Cache memoizes ItemSource reads for the duration of one refresh cycle.
// A fresh Cache is built per cycle, so staleness handling is simply "new
// cycle, new cache". Misses are memoized too: a failed or absent ID stays a
// miss for the rest of the cycle and is retried next cycle.
//
// A Cache is private to one pipeline consumer. Views never share caches.
type Cache struct {
	src source.ItemSource

	mu      sync.Mutex
	entries map[int64]*cacheEntry
}

type cacheEntry struct {
	once sync.Once
	rec  model.Record
	ok   bool
}

// NewCache returns an empty per-cycle cache over src.
func NewCache(src source.ItemSource) *Cache {
	return &Cache{src: src, entries: make(map[int64]*cacheEntry)}
}

// Resolve returns the record for id, fetching it at most once per cycle.
// ok is false when the record does not exist yet or the source failed for
// this ID; both cases mean "skip it this cycle".
func (c *Cache) Resolve(ctx context.Context, id int64) (model.Record, bool) {
	c.mu.Lock()
	e, found := c.entries[id]
	if !found {
		e = &cacheEntry{}
		c.entries[id] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		rec, err := c.src.GetByID(ctx, id)
		if err != nil {
			return
		}
		e.rec, e.ok = rec, true
	})
	return e.rec, e.ok
}

// Seed pre-populates the cache with a record obtained out of band (an
// aggregate query, for instance). A record already resolved for the same ID
// wins; seeding never overwrites.
func (c *Cache) Seed(rec model.Record) {
	c.mu.Lock()
	e, found := c.entries[rec.ID]
	if !found {
		e = &cacheEntry{}
		c.entries[rec.ID] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.rec, e.ok = rec, true
	})
}

// Len reports how many IDs have been looked at this cycle, hits and misses
// alike. Used for diagnostics only.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
