package client

import (
	"sync"

	"finboard/internal/core"
)

// AlertBoard holds the alert ids dismissed during one session. Dismissal is
// display-only and never changes what DeriveAlerts returns.
type AlertBoard struct {
	mu        sync.RWMutex
	dismissed map[string]struct{}
}

func NewAlertBoard() *AlertBoard {
	return &AlertBoard{dismissed: make(map[string]struct{})}
}

func (b *AlertBoard) Dismiss(id string) {
	b.mu.Lock()
	b.dismissed[id] = struct{}{}
	b.mu.Unlock()
}

// Visible filters out dismissed alerts, keeping order. A dismissed category
// comes back once its whole-number percentage changes, since that is part of
// the id.
func (b *AlertBoard) Visible(alerts []core.BudgetAlert) []core.BudgetAlert {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.BudgetAlert, 0, len(alerts))
	for _, a := range alerts {
		if _, ok := b.dismissed[a.ID]; !ok {
			out = append(out, a)
		}
	}
	return out
}

// Reset forgets every dismissal, as a new session would.
func (b *AlertBoard) Reset() {
	b.mu.Lock()
	clear(b.dismissed)
	b.mu.Unlock()
}

// Severity classifies an alert for display.
func Severity(a core.BudgetAlert) core.Severity {
	return core.SeverityOf(a)
}
