// Package export renders a ledger view as an xlsx workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

const (
	ContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	summarySheet    = "Resumen"
	currencyFormat  = `"$"#,##0.00`
	defaultSheetOne = "Sheet1"
)

var entryHeaders = []any{"Fecha", "Descripción", "Cantidad"}

// Filename returns the attachment name for an export taken on d.
func Filename(d core.Date) string {
	return fmt.Sprintf("finanzas_%s.xlsx", d.ISO())
}

// WriteXLSX writes a workbook with a summary sheet followed by one sheet per
// category, entries in display order.
func WriteXLSX(w io.Writer, v ledger.View) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheetOne, summarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: ptr(currencyFormat)})
	if err != nil {
		return fmt.Errorf("create currency style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeSummary(f, v, money, bold); err != nil {
		return err
	}
	sections := []struct {
		sheet   string
		entries []ledger.EntryView
	}{
		{"Ingresos", v.Income},
		{"Gastos", v.Expenses},
		{"Ahorros", v.Savings},
	}
	for _, s := range sections {
		if err := writeEntries(f, s.sheet, s.entries, money, bold); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, v ledger.View, money, bold int) error {
	s := v.Summary
	rows := [][]any{
		{"Usuario", v.UserName},
		{"Ingresos totales", s.TotalIncome.Pesos()},
		{"Gastos totales", s.TotalExpenses.Pesos()},
		{"Ahorros totales", s.TotalSavings.Pesos()},
		{"Dinero disponible", s.AvailableMoney.Pesos()},
		{"Saldo restante", s.RemainingBalance.Pesos()},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "B2", fmt.Sprintf("B%d", len(rows)), money); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "A", 20)
}

func writeEntries(f *excelize.File, sheet string, entries []ledger.EntryView, money, bold int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	if err := f.SetSheetRow(sheet, "A1", &entryHeaders); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, "A1", "C1", bold); err != nil {
		return err
	}

	for i, e := range entries {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{e.Date, e.Description, core.Money{Cents: e.AmountCents}.Pesos()}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	if len(entries) > 0 {
		if err := f.SetCellStyle(sheet, "C2", fmt.Sprintf("C%d", len(entries)+1), money); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 12); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "B", 30)
}

func ptr[T any](v T) *T { return &v }
