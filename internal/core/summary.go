package core

import "sort"

// CategoryAmount is an expense total for one category.
type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// BudgetUsage pairs a category's spending with its budget limit, 0 when the
// category has no budget.
type BudgetUsage struct {
	Category string  `json:"category"`
	Spent    float64 `json:"spent"`
	Limit    float64 `json:"limit"`
}

// Summary is the dashboard view over a user's full record set.
type Summary struct {
	TotalIncome      float64          `json:"totalIncome"`
	TotalExpenses    float64          `json:"totalExpenses"`
	Balance          float64          `json:"balance"`
	TransactionCount int              `json:"transactionCount"`
	ByCategory       []CategoryAmount `json:"byCategory"`
	BudgetComparison []BudgetUsage    `json:"budgetComparison"`
}

// Summarize computes totals and chart data. ByCategory is sorted by amount,
// largest first; BudgetComparison follows the order in which categories first
// appear among expenses.
func Summarize(transactions []Transaction, budgets []CategoryBudget) Summary {
	s := Summary{
		TransactionCount: len(transactions),
		ByCategory:       []CategoryAmount{},
		BudgetComparison: []BudgetUsage{},
	}
	for _, t := range transactions {
		switch t.Type {
		case Income:
			s.TotalIncome += t.Amount
		case Expense:
			s.TotalExpenses += t.Amount
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpenses

	totals := SumExpensesByCategory(transactions)
	for _, cat := range totals.Order {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Category: cat, Amount: totals.Sums[cat]})
		s.BudgetComparison = append(s.BudgetComparison, BudgetUsage{
			Category: cat,
			Spent:    totals.Sums[cat],
			Limit:    firstLimit(budgets, cat),
		})
	}
	sort.SliceStable(s.ByCategory, func(i, j int) bool {
		return s.ByCategory[i].Amount > s.ByCategory[j].Amount
	})
	return s
}

func firstLimit(budgets []CategoryBudget, category string) float64 {
	for _, b := range budgets {
		if b.Category == category {
			return b.Limit
		}
	}
	return 0
}
