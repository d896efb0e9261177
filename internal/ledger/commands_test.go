package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
	"finanzas/internal/store/memory"
)

func newCommands(t *testing.T, st *memory.Store) *Commands {
	t.Helper()
	return NewCommands(openGateway(t, st), "es-MX")
}

func strPtr(s string) *string { return &s }

func TestAddEntryMessages(t *testing.T) {
	cmd := newCommands(t, newStore(t))
	ctx := context.Background()

	o := cmd.AddEntry(ctx, core.Income, "Salario", "15000")
	require.True(t, o.OK)
	assert.Equal(t, "Ingreso agregado: Salario - $15,000.00", o.Message)
	require.NotNil(t, o.Entry)
	assert.Equal(t, "17/10/2026", o.Entry.Date)

	cases := []struct {
		cat    core.Category
		desc   string
		amount string
		want   string
	}{
		{core.Expense, "", "10", "Por favor ingresa una descripción"},
		{core.Expense, "", "abc", "Por favor ingresa una descripción"},
		{core.Expense, "Renta", "abc", "Por favor ingresa una cantidad válida"},
		{core.Expense, "Renta", "-5", "Por favor ingresa una cantidad válida"},
		{core.Expense, "Renta", "20000", "No tienes suficiente dinero disponible para este gasto"},
		{core.Saving, "Fondo", "20000", "No tienes suficiente dinero disponible para este ahorro"},
	}
	for _, tc := range cases {
		o := cmd.AddEntry(ctx, tc.cat, tc.desc, tc.amount)
		assert.False(t, o.OK, tc.want)
		assert.Equal(t, tc.want, o.Message)
		assert.Error(t, o.Err)
	}

	o = cmd.AddEntry(ctx, core.Saving, "Fondo", "1,500.5")
	assert.Equal(t, "Ahorro agregado: Fondo - $1,500.50", o.Message)
}

func TestAddEntryStoreFailure(t *testing.T) {
	st := newStore(t)
	cmd := newCommands(t, st)
	st.FailOn("create", errors.New("boom"))
	o := cmd.AddEntry(context.Background(), core.Income, "Salario", "1")
	assert.False(t, o.OK)
	assert.Equal(t, "Error al agregar ingreso", o.Message)
	assert.ErrorIs(t, o.Err, core.ErrStoreUnavailable)
}

func TestCommandsWithoutSession(t *testing.T) {
	cmd := NewCommands(NewGateway(newStore(t)), "es-MX")
	ctx := context.Background()
	assert.Equal(t, "Debes iniciar sesión", cmd.AddEntry(ctx, core.Income, "x", "1").Message)
	assert.Equal(t, "Debes iniciar sesión", cmd.EditEntry(ctx, core.Income, "id", nil, strPtr("x")).Message)
	assert.Equal(t, "Debes iniciar sesión", cmd.DeleteEntry(ctx, core.Income, "id", true).Message)
	assert.Equal(t, "Debes iniciar sesión", cmd.ResetAll(ctx, true).Message)
	_, err := cmd.View()
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestEditEntryMessages(t *testing.T) {
	cmd := newCommands(t, newStore(t))
	ctx := context.Background()
	o := cmd.AddEntry(ctx, core.Income, "Salario", "100")
	require.True(t, o.OK)
	id := o.Entry.ID

	assert.Equal(t, "Descripción actualizada", cmd.EditEntry(ctx, core.Income, id, strPtr("Sueldo"), nil).Message)
	assert.Equal(t, "Cantidad actualizada", cmd.EditEntry(ctx, core.Income, id, nil, strPtr("200")).Message)
	o = cmd.EditEntry(ctx, core.Income, id, strPtr("Sueldo mayo"), strPtr("300"))
	assert.Equal(t, "Ingreso actualizado", o.Message)
	assert.Equal(t, "$300.00", o.Entry.Amount)

	assert.Equal(t, "Por favor ingresa una cantidad válida", cmd.EditEntry(ctx, core.Income, id, nil, strPtr("0")).Message)
	assert.Equal(t, "No hay cambios para guardar", cmd.EditEntry(ctx, core.Income, id, nil, nil).Message)
	assert.Equal(t, msgNotFound, cmd.EditEntry(ctx, core.Income, "missing", strPtr("x"), nil).Message)
}

func TestDeleteEntryMessages(t *testing.T) {
	cmd := newCommands(t, newStore(t))
	ctx := context.Background()
	o := cmd.AddEntry(ctx, core.Income, "Salario", "100")
	require.True(t, o.OK)

	o2 := cmd.DeleteEntry(ctx, core.Income, o.Entry.ID, false)
	assert.False(t, o2.OK)
	assert.Equal(t, "¿Estás seguro de que quieres eliminar este ingreso?", o2.Message)

	assert.Equal(t, "Ingreso eliminado", cmd.DeleteEntry(ctx, core.Income, o.Entry.ID, true).Message)
}

func TestResetAllMessages(t *testing.T) {
	st := newStore(t)
	cmd := newCommands(t, st)
	ctx := context.Background()
	o := cmd.AddEntry(ctx, core.Income, "Salario", "100")
	require.True(t, o.OK)

	assert.Equal(t, ResetConfirmation(), cmd.ResetAll(ctx, false).Message)

	st.FailOn("delete:"+o.Entry.ID, errors.New("boom"))
	partial := cmd.ResetAll(ctx, true)
	assert.False(t, partial.OK)
	assert.Equal(t, "Error al eliminar datos: no se pudieron eliminar 1 registros", partial.Message)
	require.NotNil(t, partial.Report)

	st.FailOn("delete:"+o.Entry.ID, nil)
	done := cmd.ResetAll(ctx, true)
	assert.True(t, done.OK)
	assert.Equal(t, "Todos los datos han sido eliminados", done.Message)
}

func TestView(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.CreateProfile(context.Background(), core.Profile{UserID: "user-u", Name: "Ana", CreatedAt: time.Now()}))
	cmd := newCommands(t, st)
	ctx := context.Background()
	cmd.AddEntry(ctx, core.Income, "Salario", "1000")
	cmd.AddEntry(ctx, core.Expense, "Renta", "400")
	cmd.AddEntry(ctx, core.Saving, "Fondo", "500")

	v, err := cmd.View()
	require.NoError(t, err)
	assert.Equal(t, "Ana", v.UserName)
	assert.Equal(t, "$1,000.00", v.Totals.TotalIncome)
	assert.Equal(t, "$1,000.00", v.Totals.AvailableMoney)
	assert.Equal(t, "$600.00", v.Totals.RemainingBalance)
	assert.Equal(t, "$500.00", v.Totals.TotalSavings)
	assert.False(t, v.Totals.Overdrawn)
	assert.Len(t, v.Income, 1)
	assert.Len(t, v.Expenses, 1)
	assert.Len(t, v.Savings, 1)
	assert.Equal(t, "expenses", v.Expenses[0].Category)
}

func TestReload(t *testing.T) {
	st := newStore(t)
	cmd := newCommands(t, st)
	st.FailOn("list", errors.New("down"))
	o := cmd.Reload(context.Background())
	assert.Equal(t, "Error al cargar los datos", o.Message)
}
