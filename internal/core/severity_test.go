package core

import "testing"

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		pct  float64
		want Severity
	}{
		{80, SeverityAtRisk},
		{99.99, SeverityAtRisk},
		{100, SeverityOverBudget},
		{250, SeverityOverBudget},
	}
	for _, tt := range tests {
		if got := SeverityOf(BudgetAlert{Percentage: tt.pct}); got != tt.want {
			t.Errorf("SeverityOf(%v) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}
