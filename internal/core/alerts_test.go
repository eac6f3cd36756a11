package core

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

func expense(cat string, amount float64) Transaction {
	return Transaction{Type: Expense, Category: cat, Amount: amount, Date: NewDate(2025, 3, 1)}
}

func income(cat string, amount float64) Transaction {
	return Transaction{Type: Income, Category: cat, Amount: amount, Date: NewDate(2025, 3, 1)}
}

func TestDeriveAlertsScenarios(t *testing.T) {
	tests := []struct {
		name    string
		txns    []Transaction
		budgets []CategoryBudget
		want    []BudgetAlert
	}{
		{
			name:    "at threshold",
			txns:    []Transaction{expense("Food", 80)},
			budgets: []CategoryBudget{{Category: "Food", Limit: 100}},
			want:    []BudgetAlert{{ID: "Food-80", Category: "Food", BudgetLimit: 100, CurrentSpent: 80, Percentage: 80}},
		},
		{
			name:    "over budget is not clamped",
			txns:    []Transaction{expense("Food", 150)},
			budgets: []CategoryBudget{{Category: "Food", Limit: 100}},
			want:    []BudgetAlert{{ID: "Food-150", Category: "Food", BudgetLimit: 100, CurrentSpent: 150, Percentage: 150}},
		},
		{
			name:    "no transactions",
			txns:    nil,
			budgets: []CategoryBudget{{Category: "Food", Limit: 100}},
			want:    []BudgetAlert{},
		},
		{
			name:    "zero limit never alerts",
			txns:    []Transaction{expense("Food", 500)},
			budgets: []CategoryBudget{{Category: "Food", Limit: 0}},
			want:    []BudgetAlert{},
		},
		{
			name:    "income does not count as spending",
			txns:    []Transaction{income("Food", 1000), expense("Food", 10)},
			budgets: []CategoryBudget{{Category: "Food", Limit: 100}},
			want:    []BudgetAlert{},
		},
		{
			name:    "just below threshold",
			txns:    []Transaction{expense("Food", 79.99)},
			budgets: []CategoryBudget{{Category: "Food", Limit: 100}},
			want:    []BudgetAlert{},
		},
		{
			name:    "unmatched budget",
			txns:    []Transaction{expense("Transport", 500)},
			budgets: []CategoryBudget{{Category: "Food", Limit: 100}},
			want:    []BudgetAlert{},
		},
		{
			name:    "no budgets",
			txns:    []Transaction{expense("Food", 500)},
			budgets: nil,
			want:    []BudgetAlert{},
		},
		{
			name: "sums several expenses",
			txns: []Transaction{expense("Food", 40), expense("Food", 47.5), expense("Health", 5)},
			budgets: []CategoryBudget{
				{Category: "Food", Limit: 100},
			},
			want: []BudgetAlert{{ID: "Food-87", Category: "Food", BudgetLimit: 100, CurrentSpent: 87.5, Percentage: 87.5}},
		},
		{
			name: "sorted by percentage descending",
			txns: []Transaction{expense("Food", 90), expense("Housing", 1200), expense("Leisure", 50)},
			budgets: []CategoryBudget{
				{Category: "Food", Limit: 100},
				{Category: "Housing", Limit: 1000},
				{Category: "Leisure", Limit: 200},
			},
			want: []BudgetAlert{
				{ID: "Housing-120", Category: "Housing", BudgetLimit: 1000, CurrentSpent: 1200, Percentage: 120},
				{ID: "Food-90", Category: "Food", BudgetLimit: 100, CurrentSpent: 90, Percentage: 90},
			},
		},
		{
			name: "duplicate budgets each alert",
			txns: []Transaction{expense("Food", 90)},
			budgets: []CategoryBudget{
				{Category: "Food", Limit: 100},
				{Category: "Food", Limit: 90},
			},
			want: []BudgetAlert{
				{ID: "Food-100", Category: "Food", BudgetLimit: 90, CurrentSpent: 90, Percentage: 100},
				{ID: "Food-90", Category: "Food", BudgetLimit: 100, CurrentSpent: 90, Percentage: 90},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveAlerts(tt.txns, tt.budgets)
			if got == nil {
				t.Fatalf("DeriveAlerts returned nil, want empty slice")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("DeriveAlerts() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDeriveAlertsTiesKeepBudgetOrder(t *testing.T) {
	txns := []Transaction{expense("Food", 90), expense("Transport", 45), expense("Health", 9)}
	budgets := []CategoryBudget{
		{Category: "Transport", Limit: 50},
		{Category: "Health", Limit: 10},
		{Category: "Food", Limit: 100},
	}
	got := DeriveAlerts(txns, budgets)
	want := []string{"Transport", "Health", "Food"}
	if len(got) != len(want) {
		t.Fatalf("expected %d alerts, got %d", len(want), len(got))
	}
	for i, cat := range want {
		if got[i].Category != cat {
			t.Fatalf("position %d: got %s, want %s", i, got[i].Category, cat)
		}
	}
}

func TestDeriveAlertsProperties(t *testing.T) {
	txns := []Transaction{
		expense("Food", 420), expense("Transport", 95), income("Salary", 3000),
		expense("Leisure", 10), expense("Housing", 800), expense("Health", 60),
		expense("Food", 33.3), expense("Other", 1),
	}
	budgets := []CategoryBudget{
		{Category: "Food", Limit: 500},
		{Category: "Transport", Limit: 100},
		{Category: "Leisure", Limit: 0},
		{Category: "Housing", Limit: 800},
		{Category: "Health", Limit: 50},
		{Category: "Other", Limit: 0},
		{Category: "Education", Limit: 10},
	}

	got := DeriveAlerts(txns, budgets)
	for i, a := range got {
		if a.Percentage < AlertThreshold {
			t.Fatalf("alert %s below threshold: %v", a.ID, a.Percentage)
		}
		if a.BudgetLimit == 0 {
			t.Fatalf("alert %s raised for zero limit", a.ID)
		}
		if i > 0 && got[i-1].Percentage < a.Percentage {
			t.Fatalf("alerts not sorted at %d: %v then %v", i, got[i-1].Percentage, a.Percentage)
		}
	}

	again := DeriveAlerts(txns, budgets)
	if !reflect.DeepEqual(got, again) {
		t.Fatalf("derivation is not idempotent: %+v vs %+v", got, again)
	}
}

func TestDeriveAlertsDoesNotMutateInputs(t *testing.T) {
	txns := []Transaction{expense("Food", 90), expense("Housing", 990)}
	budgets := []CategoryBudget{{Category: "Food", Limit: 100}, {Category: "Housing", Limit: 1000}}
	txnsCopy := append([]Transaction(nil), txns...)
	budgetsCopy := append([]CategoryBudget(nil), budgets...)

	_ = DeriveAlerts(txns, budgets)

	if !reflect.DeepEqual(txns, txnsCopy) || !reflect.DeepEqual(budgets, budgetsCopy) {
		t.Fatalf("inputs were modified")
	}
}

func TestAlertID(t *testing.T) {
	cases := []struct {
		cat  string
		pct  float64
		want string
	}{
		{"Food", 80, "Food-80"},
		{"Food", 99.999, "Food-99"},
		{"Housing", 150.5, "Housing-150"},
		{"Car Loan", 100, "Car Loan-100"},
		{"Food", 1e20 + 0.5, "Food-100000000000000000000"},
		{"Food", 1e23, "Food-1e+23"},
		{"Food", 1.5e22, "Food-1.5e+22"},
	}
	for _, tc := range cases {
		if got := AlertID(tc.cat, tc.pct); got != tc.want {
			t.Errorf("AlertID(%q, %v) = %q, want %q", tc.cat, tc.pct, got, tc.want)
		}
	}
}

func TestDeriveAlertsExtremeInputsStayFinite(t *testing.T) {
	txns := []Transaction{expense("Food", MaxAmount), expense("Food", MaxAmount)}
	budgets := []CategoryBudget{{Category: "Food", Limit: MinBudgetLimit}}
	for _, tx := range txns {
		if err := tx.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	}
	if err := ValidateBudgets(budgets); err != nil {
		t.Fatalf("ValidateBudgets: %v", err)
	}

	got := DeriveAlerts(txns, budgets)
	if len(got) != 1 {
		t.Fatalf("alerts = %+v", got)
	}
	if math.IsInf(got[0].Percentage, 0) || got[0].ID != "Food-20000000000000000" {
		t.Fatalf("alert = %+v", got[0])
	}
	if _, err := json.Marshal(got); err != nil {
		t.Fatalf("alerts must encode as JSON: %v", err)
	}
}

func TestBudgetPercentage(t *testing.T) {
	if got := BudgetPercentage(50, 0); got != 0 {
		t.Fatalf("zero limit: got %v", got)
	}
	if got := BudgetPercentage(50, -10); got != 0 {
		t.Fatalf("negative limit: got %v", got)
	}
	if got := BudgetPercentage(25, 50); got != 50 {
		t.Fatalf("got %v, want 50", got)
	}
}

func TestSumExpensesByCategoryOrder(t *testing.T) {
	totals := SumExpensesByCategory([]Transaction{
		income("Salary", 10), expense("Transport", 5), expense("Food", 3), expense("Transport", 2),
	})
	if !reflect.DeepEqual(totals.Order, []string{"Transport", "Food"}) {
		t.Fatalf("unexpected order: %v", totals.Order)
	}
	if totals.Get("Transport") != 7 || totals.Get("Food") != 3 || totals.Get("Salary") != 0 {
		t.Fatalf("unexpected sums: %v", totals.Sums)
	}
}
