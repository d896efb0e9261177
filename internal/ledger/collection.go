package ledger

import "finanzas/internal/core"

// collection is one category's entries in display order (head first).
type collection struct {
	items []core.Entry
}

func newCollection(items []core.Entry) *collection {
	return &collection{items: append([]core.Entry(nil), items...)}
}

func (c *collection) prepend(e core.Entry) {
	c.items = append([]core.Entry{e}, c.items...)
}

func (c *collection) index(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *collection) replace(i int, e core.Entry) {
	c.items[i] = e
}

func (c *collection) remove(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	return true
}

func (c *collection) entries() []core.Entry {
	return append([]core.Entry(nil), c.items...)
}

func (c *collection) len() int { return len(c.items) }
