// Package ledger keeps a signed-in user's entries in memory, gates every
// mutation through the Gateway, and exposes the command contract consumed
// by the HTTP layer.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/core"
	"finanzas/internal/store"
)

// Source is what the cache reads on load.
type Source interface {
	store.LedgerStore
	store.ProfileStore
}

// LoadError reports a failed load. The cache state is unchanged.
type LoadError struct {
	UserID string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load ledger for %s: %v", e.UserID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Cache mirrors the three collections and the profile of one user.
type Cache struct {
	mu      sync.RWMutex
	cols    map[core.Category]*collection
	profile *core.Profile
}

func NewCache() *Cache {
	c := &Cache{}
	c.reset()
	return c
}

func (c *Cache) reset() {
	c.cols = make(map[core.Category]*collection, len(core.Categories))
	for _, cat := range core.Categories {
		c.cols[cat] = newCollection(nil)
	}
	c.profile = nil
}

// Load fetches the profile and the three collections concurrently and
// replaces the cache contents only when every fetch succeeded. A user
// without a profile document fails with a LoadError wrapping
// core.ErrProfileNotFound.
func (c *Cache) Load(ctx context.Context, src Source, userID string) error {
	var (
		lists   = make([][]core.Entry, len(core.Categories))
		profile *core.Profile
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, cat := range core.Categories {
		g.Go(func() error {
			items, err := src.List(gctx, userID, cat)
			if err != nil {
				return core.StoreError("list "+cat.Collection(), err)
			}
			lists[i] = items
			return nil
		})
	}
	g.Go(func() error {
		p, err := src.GetProfile(gctx, userID)
		if err != nil {
			return core.StoreError("get profile", err)
		}
		profile = &p
		return nil
	})
	if err := g.Wait(); err != nil {
		return &LoadError{UserID: userID, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cat := range core.Categories {
		c.cols[cat] = newCollection(lists[i])
	}
	c.profile = profile
	return nil
}

// Clear empties every collection and forgets the profile.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Entries returns a copy of one collection in display order.
func (c *Cache) Entries(cat core.Category) []core.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	col, ok := c.cols[cat]
	if !ok {
		return nil
	}
	return col.entries()
}

// Find returns the entry with id and its position.
func (c *Cache) Find(cat core.Category, id string) (core.Entry, int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	col, ok := c.cols[cat]
	if !ok {
		return core.Entry{}, -1, false
	}
	i := col.index(id)
	if i < 0 {
		return core.Entry{}, -1, false
	}
	return col.items[i], i, true
}

func (c *Cache) Profile() (core.Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile == nil {
		return core.Profile{}, false
	}
	return *c.profile, true
}

// Summary aggregates the current contents.
func (c *Cache) Summary() core.Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return core.Summarize(c.cols[core.Income].items, c.cols[core.Expense].items, c.cols[core.Saving].items)
}

// Snapshot copies every collection.
func (c *Cache) Snapshot() map[core.Category][]core.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[core.Category][]core.Entry, len(c.cols))
	for cat, col := range c.cols {
		out[cat] = col.entries()
	}
	return out
}

// Len counts cached entries across categories.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, col := range c.cols {
		n += col.len()
	}
	return n
}

func (c *Cache) prepend(e core.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cols[e.Category].prepend(e)
}

// replace swaps the entry with the same id in place.
func (c *Cache) replace(e core.Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	col := c.cols[e.Category]
	i := col.index(e.ID)
	if i < 0 {
		return false
	}
	col.replace(i, e)
	return true
}

func (c *Cache) remove(cat core.Category, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cols[cat].remove(id)
}
