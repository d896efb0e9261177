package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
	"finanzas/internal/store/memory"
)

// newStore returns a memory store where every user id the ledger tests sign
// in with already has a profile document.
func newStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	for _, id := range []string{"u", "u1", "u2", "user-u", "user-v"} {
		require.NoError(t, st.CreateProfile(context.Background(), core.Profile{UserID: id, Name: "Usuario " + id}))
	}
	return st
}

func seed(t *testing.T, st *memory.Store, userID string, c core.Category, desc string, cents int64, day int) core.Entry {
	t.Helper()
	e, err := st.Create(context.Background(), userID, core.Entry{
		Category: c, Description: desc, Amount: core.Money{Cents: cents}, Date: core.NewDate(2026, 10, day),
	})
	require.NoError(t, err)
	return e
}

func TestCacheLoad(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	seed(t, st, "u", core.Income, "old", 100, 1)
	seed(t, st, "u", core.Income, "new", 200, 9)
	seed(t, st, "u", core.Expense, "rent", 50, 3)
	seed(t, st, "other", core.Saving, "x", 999, 3)
	require.NoError(t, st.CreateProfile(ctx, core.Profile{UserID: "u", Name: "Ana"}))

	c := NewCache()
	require.NoError(t, c.Load(ctx, st, "u"))

	income := c.Entries(core.Income)
	require.Len(t, income, 2)
	assert.Equal(t, "new", income[0].Description, "date descending")
	assert.Empty(t, c.Entries(core.Saving))
	p, ok := c.Profile()
	assert.True(t, ok)
	assert.Equal(t, "Ana", p.Name)

	s := c.Summary()
	assert.Equal(t, int64(300), s.TotalIncome.Cents)
	assert.Equal(t, int64(250), s.RemainingBalance.Cents)
}

func TestCacheLoadWithoutProfile(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	seed(t, st, "u", core.Income, "salary", 100, 1)
	c := NewCache()
	require.NoError(t, c.Load(ctx, st, "u"))

	seed(t, st, "ghost", core.Income, "orphan", 500, 2)
	err := c.Load(ctx, st, "ghost")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "ghost", le.UserID)
	assert.ErrorIs(t, err, core.ErrProfileNotFound)
	assert.NotErrorIs(t, err, core.ErrStoreUnavailable)

	p, ok := c.Profile()
	require.True(t, ok)
	assert.Equal(t, "u", p.UserID)
	entries := c.Entries(core.Income)
	require.Len(t, entries, 1)
	assert.Equal(t, "salary", entries[0].Description)
}

func TestCacheLoadFailureKeepsState(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	seed(t, st, "u", core.Income, "salary", 100, 1)
	c := NewCache()
	require.NoError(t, c.Load(ctx, st, "u"))

	st.FailOn("profile", errors.New("permission denied"))
	err := c.Load(ctx, st, "u")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "u", le.UserID)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.Len(t, c.Entries(core.Income), 1)
}

func TestCacheClear(t *testing.T) {
	st := newStore(t)
	seed(t, st, "u", core.Saving, "fund", 100, 1)
	c := NewCache()
	require.NoError(t, c.Load(context.Background(), st, "u"))
	c.Clear()
	assert.Zero(t, c.Len())
	assert.Equal(t, core.Summary{}, c.Summary())
}

func TestCacheEntriesAreCopies(t *testing.T) {
	c := NewCache()
	c.prepend(core.Entry{ID: "a", Category: core.Income, Description: "x", Amount: core.Money{Cents: 1}})
	got := c.Entries(core.Income)
	got[0].Description = "mutated"
	e, i, ok := c.Find(core.Income, "a")
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, "x", e.Description)
	assert.Nil(t, c.Entries(core.Category("bogus")))
}

func TestCollectionOps(t *testing.T) {
	col := newCollection([]core.Entry{{ID: "b"}, {ID: "c"}})
	col.prepend(core.Entry{ID: "a"})
	assert.Equal(t, 0, col.index("a"))
	assert.Equal(t, 2, col.index("c"))
	assert.Equal(t, -1, col.index("z"))

	col.replace(1, core.Entry{ID: "b", Description: "changed"})
	assert.Equal(t, "changed", col.items[1].Description)

	assert.True(t, col.remove("b"))
	assert.False(t, col.remove("b"))
	assert.Equal(t, []string{"a", "c"}, []string{col.items[0].ID, col.items[1].ID})
}
