package sheets

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
	"unicode/utf8"

	"finboard/internal/core"
)

// Sheet titles are capped at 100 characters.
const (
	maxScopeInTitle = 80
	truncatedPrefix = 70
)

// TabNames returns the transaction and alert tab titles for scope. Scopes
// longer than maxScopeInTitle characters keep their first truncatedPrefix
// characters plus a hash of the full scope, so distinct scopes never share
// tabs.
func TabNames(scope core.UserScope) (transactions, alerts string) {
	s := tabScope(string(scope))
	return s + " Transactions", s + " Alerts"
}

func tabScope(s string) string {
	if utf8.RuneCountInString(s) <= maxScopeInTitle {
		return s
	}
	sum := sha256.Sum256([]byte(s))
	return string([]rune(s)[:truncatedPrefix]) + "~" + hex.EncodeToString(sum[:4])
}

// TransactionRows renders the transactions tab: a header, one row per
// transaction in the given order, then the totals.
func TransactionRows(snap Snapshot) [][]any {
	rows := make([][]any, 0, len(snap.Transactions)+6)
	rows = append(rows, []any{"ID", "Date", "Type", "Category", "Description", "Amount"})
	for _, t := range snap.Transactions {
		rows = append(rows, []any{t.ID, t.Date.String(), string(t.Type), t.Category, t.Description, t.Amount})
	}
	rows = append(rows,
		[]any{},
		[]any{"Total income", snap.Summary.TotalIncome},
		[]any{"Total expenses", snap.Summary.TotalExpenses},
		[]any{"Balance", snap.Summary.Balance},
		[]any{"Updated", snap.GeneratedAt.UTC().Format(time.RFC3339)},
	)
	return rows
}

// AlertRows renders the alerts tab: active alerts, then the per-category
// budget comparison.
func AlertRows(snap Snapshot) [][]any {
	rows := make([][]any, 0, len(snap.Alerts)+len(snap.Summary.BudgetComparison)+5)
	rows = append(rows, []any{"Alert", "Category", "Budget limit", "Spent", "Percentage", "Severity"})
	for _, a := range snap.Alerts {
		rows = append(rows, []any{a.ID, a.Category, a.BudgetLimit, a.CurrentSpent, a.Percentage, string(core.SeverityOf(a))})
	}
	rows = append(rows, []any{}, []any{"Category", "Spent", "Limit"})
	for _, b := range snap.Summary.BudgetComparison {
		rows = append(rows, []any{b.Category, b.Spent, b.Limit})
	}
	rows = append(rows, []any{}, []any{"Updated", snap.GeneratedAt.UTC().Format(time.RFC3339)})
	return rows
}
