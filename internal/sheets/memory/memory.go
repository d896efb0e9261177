// Package memory is an in-process Mirror used by tests and by the worker
// when no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"finanzas/internal/core"
	"finanzas/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows map[core.Category][]sheets.Row
}

var (
	_ sheets.Mirror    = (*Mirror)(nil)
	_ sheets.RowLister = (*Mirror)(nil)
)

func New() *Mirror {
	return &Mirror{rows: make(map[core.Category][]sheets.Row)}
}

func (m *Mirror) index(c core.Category, id string) int {
	for i, r := range m.rows[c] {
		if r.Entry.ID == id {
			return i
		}
	}
	return -1
}

func (m *Mirror) ApplyCreated(_ context.Context, userID string, e core.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := sheets.Row{UserID: userID, Entry: e}
	if i := m.index(e.Category, e.ID); i >= 0 {
		m.rows[e.Category][i] = row
		return nil
	}
	m.rows[e.Category] = append(m.rows[e.Category], row)
	return nil
}

func (m *Mirror) ApplyUpdated(_ context.Context, _ string, c core.Category, id string, p core.EntryPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(c, id)
	if i < 0 {
		return sheets.ErrRowNotFound
	}
	m.rows[c][i].Entry = m.rows[c][i].Entry.Apply(p)
	return nil
}

func (m *Mirror) ApplyDeleted(_ context.Context, _ string, c core.Category, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(c, id); i >= 0 {
		m.rows[c] = append(m.rows[c][:i], m.rows[c][i+1:]...)
	}
	return nil
}

// Rows returns a copy of the mirrored rows in insertion order.
func (m *Mirror) Rows(_ context.Context, c core.Category) ([]sheets.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sheets.Row(nil), m.rows[c]...), nil
}
