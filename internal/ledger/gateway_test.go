package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
	"finanzas/internal/store/memory"
)

var fixedNow = time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC)

func pesos(p int64) core.Money { return core.Money{Cents: p * 100} }

func openGateway(t *testing.T, st *memory.Store, opts ...Option) *Gateway {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	gw := NewGateway(st, opts...)
	require.NoError(t, gw.Open(context.Background(), "user-u"))
	return gw
}

func TestOperationsRequireSession(t *testing.T) {
	gw := NewGateway(newStore(t))
	ctx := context.Background()

	_, err := gw.Create(ctx, core.Income, "Salary", pesos(1))
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
	_, err = gw.Update(ctx, core.Income, "x", core.EntryPatch{})
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
	assert.ErrorIs(t, gw.Delete(ctx, core.Income, "x", true), core.ErrUnauthenticated)
	_, err = gw.ResetAll(ctx, true)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
	_, err = gw.Summary()
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
	assert.ErrorIs(t, gw.Open(ctx, " "), core.ErrUnauthenticated)
}

func TestBalanceScenario(t *testing.T) {
	gw := openGateway(t, newStore(t))
	ctx := context.Background()

	_, err := gw.Create(ctx, core.Income, "Salary", pesos(1000))
	require.NoError(t, err)
	s, _ := gw.Summary()
	assert.Equal(t, pesos(1000), s.TotalIncome)
	assert.Equal(t, pesos(1000), s.RemainingBalance)

	_, err = gw.Create(ctx, core.Expense, "Rent", pesos(1200))
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)

	_, err = gw.Create(ctx, core.Expense, "Rent", pesos(400))
	require.NoError(t, err)
	s, _ = gw.Summary()
	assert.Equal(t, pesos(400), s.TotalExpenses)
	assert.Equal(t, pesos(600), s.RemainingBalance)

	_, err = gw.Create(ctx, core.Saving, "Emergency", pesos(700))
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)

	_, err = gw.Create(ctx, core.Saving, "Emergency", pesos(500))
	require.NoError(t, err)
	s, _ = gw.Summary()
	assert.Equal(t, pesos(500), s.TotalSavings)
	assert.Equal(t, pesos(600), s.RemainingBalance, "savings never reduce the balance")
	assert.Equal(t, s.TotalIncome, s.AvailableMoney)

	// the saving bound ignores prior savings
	_, err = gw.Create(ctx, core.Saving, "More", pesos(600))
	require.NoError(t, err)
}

func TestTotalsFollowCreateSequences(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(seed, 2026))
			gw := openGateway(t, newStore(t))
			ctx := context.Background()
			var income, expenses, savings int64

			for step := 0; step < 150; step++ {
				cat := core.Categories[rng.IntN(len(core.Categories))]
				amount := core.Money{Cents: 1 + rng.Int64N(200_000)}
				_, err := gw.Create(ctx, cat, fmt.Sprintf("step %d", step), amount)

				free := income - expenses
				switch {
				case cat != core.Income && amount.Cents > free:
					require.ErrorIs(t, err, core.ErrInsufficientFunds, "step %d", step)
				default:
					require.NoError(t, err, "step %d", step)
					switch cat {
					case core.Income:
						income += amount.Cents
					case core.Expense:
						expenses += amount.Cents
					case core.Saving:
						savings += amount.Cents
					}
				}

				s, err := gw.Summary()
				require.NoError(t, err)
				assert.Equal(t, income, s.TotalIncome.Cents, "step %d", step)
				assert.Equal(t, expenses, s.TotalExpenses.Cents, "step %d", step)
				assert.Equal(t, savings, s.TotalSavings.Cents, "step %d", step)
				assert.Equal(t, s.TotalIncome.Cents-s.TotalExpenses.Cents, s.RemainingBalance.Cents, "step %d", step)
				assert.Equal(t, s.TotalIncome, s.AvailableMoney, "step %d", step)
				assert.GreaterOrEqual(t, s.RemainingBalance.Cents, int64(0), "creates never overdraw")

				for _, c := range core.Categories {
					items, err := gw.Entries(c)
					require.NoError(t, err)
					want := map[core.Category]int64{core.Income: income, core.Expense: expenses, core.Saving: savings}[c]
					assert.Equal(t, want, core.Total(items).Cents, "step %d %s", step, c)
				}
			}
		})
	}
}

func TestCreateValidation(t *testing.T) {
	st := newStore(t)
	gw := openGateway(t, st)
	ctx := context.Background()

	_, err := gw.Create(ctx, core.Income, "   ", pesos(1))
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ErrorIs(t, err, core.ErrEmptyDescription)

	_, err = gw.Create(ctx, core.Income, "Salary", core.Money{})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = gw.Create(ctx, core.Category("loans"), "x", pesos(1))
	assert.ErrorIs(t, err, core.ErrUnknownCategory)

	items, _ := st.List(ctx, "user-u", core.Income)
	assert.Empty(t, items, "no write on validation failure")
}

func TestCreatePrependsAndStampsDate(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	now := time.Date(2026, 10, 18, 2, 0, 0, 0, time.UTC)
	gw := NewGateway(newStore(t), WithClock(func() time.Time { return now }), WithLocation(loc))
	ctx := context.Background()
	require.NoError(t, gw.Open(ctx, "user-u"))

	first, err := gw.Create(ctx, core.Income, " Salary ", pesos(10))
	require.NoError(t, err)
	second, err := gw.Create(ctx, core.Income, "Bonus", pesos(5))
	require.NoError(t, err)

	assert.Equal(t, "Salary", first.Description)
	assert.Equal(t, core.NewDate(2026, 10, 17), first.Date)
	assert.NotEmpty(t, first.ID)

	items, _ := gw.Entries(core.Income)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)
}

func TestCreateStoreFailureLeavesCache(t *testing.T) {
	st := newStore(t)
	gw := openGateway(t, st)
	st.FailOn("create", errors.New("unreachable"))

	_, err := gw.Create(context.Background(), core.Income, "Salary", pesos(1))
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	s, _ := gw.Summary()
	assert.Zero(t, s.TotalIncome.Cents)
}

func TestUpdateKeepsPosition(t *testing.T) {
	gw := openGateway(t, newStore(t))
	ctx := context.Background()
	var ids []string
	for _, d := range []string{"a", "b", "c"} {
		e, err := gw.Create(ctx, core.Income, d, pesos(1))
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	x := pesos(42)
	updated, err := gw.Update(ctx, core.Income, ids[1], core.EntryPatch{Amount: &x})
	require.NoError(t, err)
	assert.Equal(t, x, updated.Amount)
	assert.Equal(t, "b", updated.Description)

	items, _ := gw.Entries(core.Income)
	require.Len(t, items, 3)
	assert.Equal(t, ids[1], items[1].ID)
	assert.Equal(t, x, items[1].Amount)
}

func TestUpdateHasNoFundsCheck(t *testing.T) {
	gw := openGateway(t, newStore(t))
	ctx := context.Background()
	_, err := gw.Create(ctx, core.Income, "Salary", pesos(100))
	require.NoError(t, err)
	e, err := gw.Create(ctx, core.Expense, "Rent", pesos(50))
	require.NoError(t, err)

	big := pesos(5000)
	_, err = gw.Update(ctx, core.Expense, e.ID, core.EntryPatch{Amount: &big})
	require.NoError(t, err)
	s, _ := gw.Summary()
	assert.True(t, s.Overdrawn())
}

func TestUpdateErrors(t *testing.T) {
	st := newStore(t)
	gw := openGateway(t, st)
	ctx := context.Background()
	e, err := gw.Create(ctx, core.Income, "Salary", pesos(1))
	require.NoError(t, err)

	_, err = gw.Update(ctx, core.Income, e.ID, core.EntryPatch{})
	assert.ErrorIs(t, err, core.ErrEmptyPatch)

	blank := ""
	_, err = gw.Update(ctx, core.Income, e.ID, core.EntryPatch{Description: &blank})
	assert.ErrorIs(t, err, core.ErrEmptyDescription)

	d := "x"
	_, err = gw.Update(ctx, core.Expense, e.ID, core.EntryPatch{Description: &d})
	assert.ErrorIs(t, err, core.ErrNotFound, "id must be present in the same category")

	st.FailOn("update", errors.New("timeout"))
	_, err = gw.Update(ctx, core.Income, e.ID, core.EntryPatch{Description: &d})
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	items, _ := gw.Entries(core.Income)
	assert.Equal(t, "Salary", items[0].Description)
}

func TestDelete(t *testing.T) {
	gw := openGateway(t, newStore(t))
	ctx := context.Background()
	_, err := gw.Create(ctx, core.Income, "Salary", pesos(100))
	require.NoError(t, err)
	e, err := gw.Create(ctx, core.Expense, "Rent", pesos(30))
	require.NoError(t, err)

	assert.ErrorIs(t, gw.Delete(ctx, core.Expense, e.ID, false), core.ErrConfirmationRequired)
	assert.ErrorIs(t, gw.Delete(ctx, core.Expense, "nope", true), core.ErrNotFound)

	require.NoError(t, gw.Delete(ctx, core.Expense, e.ID, true))
	items, _ := gw.Entries(core.Expense)
	assert.Empty(t, items)
	s, _ := gw.Summary()
	assert.Zero(t, s.TotalExpenses.Cents)
	assert.Equal(t, pesos(100), s.RemainingBalance)
}

func TestResetAll(t *testing.T) {
	st := newStore(t)
	gw := openGateway(t, st)
	ctx := context.Background()
	_, err := gw.Create(ctx, core.Income, "Salary", pesos(100))
	require.NoError(t, err)
	_, err = gw.Create(ctx, core.Expense, "Rent", pesos(30))
	require.NoError(t, err)
	_, err = gw.Create(ctx, core.Saving, "Fund", pesos(30))
	require.NoError(t, err)

	_, err = gw.ResetAll(ctx, false)
	assert.ErrorIs(t, err, core.ErrConfirmationRequired)

	report, err := gw.ResetAll(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Deleted)
	assert.Empty(t, report.Failed)
	for _, c := range core.Categories {
		items, _ := gw.Entries(c)
		assert.Empty(t, items)
		stored, _ := st.List(ctx, "user-u", c)
		assert.Empty(t, stored)
	}
}

func TestResetAllPartialFailureKeepsFailedEntries(t *testing.T) {
	st := newStore(t)
	gw := openGateway(t, st)
	ctx := context.Background()
	keep, err := gw.Create(ctx, core.Income, "Salary", pesos(100))
	require.NoError(t, err)
	_, err = gw.Create(ctx, core.Income, "Bonus", pesos(10))
	require.NoError(t, err)
	_, err = gw.Create(ctx, core.Expense, "Rent", pesos(30))
	require.NoError(t, err)
	st.FailOn("delete:"+keep.ID, errors.New("write quota"))

	report, err := gw.ResetAll(ctx, true)
	assert.ErrorIs(t, err, core.ErrPartialReset)
	assert.Equal(t, 2, report.Deleted)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, keep.ID, report.Failed[0].ID)
	assert.ErrorIs(t, report.Failed[0].Err, core.ErrStoreUnavailable)

	items, _ := gw.Entries(core.Income)
	require.Len(t, items, 1)
	assert.Equal(t, keep.ID, items[0].ID)
	expenses, _ := gw.Entries(core.Expense)
	assert.Empty(t, expenses)
}

func TestResetAllListFailureKeepsCategory(t *testing.T) {
	st := newStore(t)
	gw := openGateway(t, st)
	ctx := context.Background()
	_, err := gw.Create(ctx, core.Income, "Salary", pesos(100))
	require.NoError(t, err)
	st.FailOn("list", errors.New("offline"))

	report, err := gw.ResetAll(ctx, true)
	assert.ErrorIs(t, err, core.ErrPartialReset)
	assert.Len(t, report.Failed, len(core.Categories))
	items, _ := gw.Entries(core.Income)
	assert.Len(t, items, 1)
}

type snapshotMock struct{ mock.Mock }

func (m *snapshotMock) Snapshot(ctx context.Context, userID string, entries map[core.Category][]core.Entry) (string, error) {
	args := m.Called(ctx, userID, entries)
	return args.String(0), args.Error(1)
}

func TestResetAllSnapshotsFirst(t *testing.T) {
	st := newStore(t)
	snap := &snapshotMock{}
	gw := openGateway(t, st, WithSnapshotter(snap))
	ctx := context.Background()
	_, err := gw.Create(ctx, core.Income, "Salary", pesos(100))
	require.NoError(t, err)

	snap.On("Snapshot", mock.Anything, "user-u", mock.MatchedBy(func(m map[core.Category][]core.Entry) bool {
		return len(m[core.Income]) == 1
	})).Return("", errors.New("bucket gone")).Once()

	_, err = gw.ResetAll(ctx, true)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	items, _ := st.List(ctx, "user-u", core.Income)
	assert.Len(t, items, 1, "nothing deleted when the snapshot fails")

	snap.On("Snapshot", mock.Anything, "user-u", mock.Anything).Return("snapshots/user-u/1.json", nil).Once()
	report, err := gw.ResetAll(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/user-u/1.json", report.SnapshotKey)
	snap.AssertExpectations(t)
}

func TestOpenFailureKeepsPreviousSession(t *testing.T) {
	st := newStore(t)
	gw := openGateway(t, st)
	ctx := context.Background()
	_, err := gw.Create(ctx, core.Income, "Salary", pesos(100))
	require.NoError(t, err)

	st.FailOn("list", errors.New("offline"))
	err = gw.Open(ctx, "user-v")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.Equal(t, "user-u", gw.UserID())
	s, _ := gw.Summary()
	assert.Equal(t, pesos(100), s.TotalIncome)
}

func TestRoundTripThroughLoad(t *testing.T) {
	st := newStore(t)
	gw := openGateway(t, st)
	ctx := context.Background()
	created, err := gw.Create(ctx, core.Income, "Salary", pesos(1000))
	require.NoError(t, err)

	require.NoError(t, gw.Reload(ctx))
	items, _ := gw.Entries(core.Income)
	require.Len(t, items, 1)
	assert.Equal(t, created.Description, items[0].Description)
	assert.Equal(t, created.Amount, items[0].Amount)
	assert.Equal(t, created.Date, items[0].Date)
	assert.Equal(t, created.ID, items[0].ID)
}

func TestCloseClearsSession(t *testing.T) {
	gw := openGateway(t, newStore(t))
	ctx := context.Background()
	_, err := gw.Create(ctx, core.Income, "Salary", pesos(1))
	require.NoError(t, err)
	sess, ok := gw.Session()
	require.True(t, ok)
	assert.Equal(t, fixedNow, sess.OpenedAt())

	gw.Close()
	assert.Zero(t, sess.Cache().Len())
	_, ok = gw.Session()
	assert.False(t, ok)
	gw.Close()
}

type slowStore struct{ *memory.Store }

func (s slowStore) Create(ctx context.Context, userID string, e core.Entry) (core.Entry, error) {
	<-ctx.Done()
	return core.Entry{}, ctx.Err()
}

func TestTimeoutSurfacesAsStoreUnavailable(t *testing.T) {
	gw := NewGateway(slowStore{newStore(t)}, WithTimeout(10*time.Millisecond))
	ctx := context.Background()
	require.NoError(t, gw.Open(ctx, "user-u"))

	_, err := gw.Create(ctx, core.Income, "Salary", pesos(1))
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
