package memory

import (
	"context"
	"sync"

	"finboard/internal/sheets"
)

// Mirror keeps rendered tabs in memory. The worker uses it when no
// spreadsheet is configured, and tests use it to inspect output.
type Mirror struct {
	mu      sync.Mutex
	tabs    map[string][][]any
	mirrors int
}

var _ sheets.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{tabs: make(map[string][][]any)}
}

// Mirror renders snap into its two tabs, replacing earlier content.
func (m *Mirror) Mirror(ctx context.Context, snap sheets.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txTab, alertTab := sheets.TabNames(snap.Scope)
	txRows := sheets.TransactionRows(snap)
	alertRows := sheets.AlertRows(snap)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[txTab] = txRows
	m.tabs[alertTab] = alertRows
	m.mirrors++
	return nil
}

// Tab returns a copy of the rows last written to the named tab.
func (m *Mirror) Tab(name string) ([][]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tabs[name]
	if !ok {
		return nil, false
	}
	return append([][]any(nil), rows...), true
}

// Count returns how many snapshots have been mirrored.
func (m *Mirror) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mirrors
}
