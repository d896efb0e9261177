package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

func TestWriteXLSX(t *testing.T) {
	income := []core.Entry{{ID: "i1", Category: core.Income, Description: "Salario",
		Amount: core.Money{Cents: 1500000}, Date: core.NewDate(2026, 10, 1)}}
	expenses := []core.Entry{{ID: "e1", Category: core.Expense, Description: "Renta",
		Amount: core.Money{Cents: 600050}, Date: core.NewDate(2026, 10, 2)}}
	v := ledger.View{
		UserName: "Ana",
		Summary:  core.Summarize(income, expenses, nil),
		Income: []ledger.EntryView{{ID: "i1", Category: "income", Description: "Salario",
			AmountCents: 1500000, Date: "1/10/2026"}},
		Expenses: []ledger.EntryView{{ID: "e1", Category: "expenses", Description: "Renta",
			AmountCents: 600050, Date: "2/10/2026"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, v))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Resumen", "Ingresos", "Gastos", "Ahorros"}, f.GetSheetList())

	name, err := f.GetCellValue("Resumen", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", name)

	rows, err := f.GetRows("Gastos", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Fecha", "Descripción", "Cantidad"}, rows[0])
	assert.Equal(t, "Renta", rows[1][1])
	assert.Equal(t, "6000.5", rows[1][2])

	remaining, err := f.GetCellValue("Resumen", "B6", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "8999.5", remaining)

	savings, err := f.GetRows("Ahorros")
	require.NoError(t, err)
	assert.Len(t, savings, 1)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "finanzas_2026-10-17.xlsx", Filename(core.NewDate(2026, 10, 17)))
}
