package core

import (
	"math"
	"sort"
	"strconv"
)

// AlertThreshold is the inclusive percentage of a budget at which an alert is raised.
const AlertThreshold = 80.0

// CategoryTotals holds expense sums per category together with the order in
// which categories first appeared in the input.
type CategoryTotals struct {
	Sums  map[string]float64
	Order []string
}

// Get returns the sum for a category, 0 when nothing was spent.
func (c CategoryTotals) Get(category string) float64 {
	return c.Sums[category]
}

// SumExpensesByCategory adds up expense amounts per category in input order.
// Income transactions are ignored.
func SumExpensesByCategory(transactions []Transaction) CategoryTotals {
	totals := CategoryTotals{Sums: make(map[string]float64)}
	for _, t := range transactions {
		if t.Type != Expense {
			continue
		}
		if _, seen := totals.Sums[t.Category]; !seen {
			totals.Order = append(totals.Order, t.Category)
		}
		totals.Sums[t.Category] += t.Amount
	}
	return totals
}

// BudgetPercentage returns spent as a percentage of limit. A non-positive
// limit yields 0 so that unset budgets never alert.
func BudgetPercentage(spent, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return spent / limit * 100
}

// AlertID builds the display identifier of an alert from its category and
// truncated percentage. Two alerts with the same category and integer
// percentage share an id.
func AlertID(category string, percentage float64) string {
	return category + "-" + formatWhole(math.Floor(percentage))
}

// formatWhole prints an integral float the way a JavaScript number prints:
// plain digits below 1e21, exponent notation from there on.
func formatWhole(v float64) string {
	if math.Abs(v) < 1e21 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// DeriveAlerts compares expense totals against budgets and returns one alert
// per budget whose usage reached AlertThreshold, highest percentage first.
// Budgets with equal percentages keep their input order. The result is never
// nil.
func DeriveAlerts(transactions []Transaction, budgets []CategoryBudget) []BudgetAlert {
	totals := SumExpensesByCategory(transactions)

	alerts := make([]BudgetAlert, 0, len(budgets))
	for _, b := range budgets {
		spent := totals.Get(b.Category)
		pct := BudgetPercentage(spent, b.Limit)
		if pct < AlertThreshold {
			continue
		}
		alerts = append(alerts, BudgetAlert{
			ID:           AlertID(b.Category, pct),
			Category:     b.Category,
			BudgetLimit:  b.Limit,
			CurrentSpent: spent,
			Percentage:   pct,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Percentage > alerts[j].Percentage
	})
	return alerts
}
