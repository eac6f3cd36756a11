package sheets

import (
	"context"
	"time"

	"finboard/internal/core"
)

// Snapshot is one user's records and derived views at mirror time.
type Snapshot struct {
	Scope        core.UserScope
	Transactions []core.Transaction
	Budgets      []core.CategoryBudget
	Summary      core.Summary
	Alerts       []core.BudgetAlert
	GeneratedAt  time.Time
}

// Mirror writes a snapshot to an external spreadsheet, replacing what was
// there for that scope.
type Mirror interface {
	Mirror(ctx context.Context, snap Snapshot) error
}
