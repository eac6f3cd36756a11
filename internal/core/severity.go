package core

// Severity classifies an alert for display.
type Severity string

const (
	SeverityAtRisk     Severity = "at_risk"
	SeverityOverBudget Severity = "over_budget"
)

// SeverityOf reports over_budget once spending reaches the limit and at_risk
// below it.
func SeverityOf(a BudgetAlert) Severity {
	if a.Percentage >= 100 {
		return SeverityOverBudget
	}
	return SeverityAtRisk
}
