package cli

import (
	"bytes"
	"strings"
	"testing"

	"finboard/internal/client"
	"finboard/internal/core"
)

func TestRenderSummary(t *testing.T) {
	txns := []core.Transaction{
		{Type: core.Income, Amount: 500, Category: "Other"},
		{Type: core.Expense, Amount: 120, Category: "Food"},
		{Type: core.Expense, Amount: 30, Category: "Transport"},
	}
	budgets := []core.CategoryBudget{{Category: "Food", Limit: 100}}
	dash := client.Dashboard{Summary: core.Summarize(txns, budgets)}

	var buf bytes.Buffer
	RenderSummary(&buf, dash)
	out := buf.String()

	for _, want := range []string{"Balance", "350.00", "3 transactions", "Food", "120.00 / 100.00", "no budget"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRenderAlerts(t *testing.T) {
	alerts := []core.BudgetAlert{
		{ID: "Food-120", Category: "Food", BudgetLimit: 100, CurrentSpent: 120, Percentage: 120},
		{ID: "Health-85", Category: "Health", BudgetLimit: 40, CurrentSpent: 34, Percentage: 85},
	}

	var buf bytes.Buffer
	RenderAlerts(&buf, alerts, nil)
	out := buf.String()
	if !strings.Contains(out, "OVER_BUDGET") || !strings.Contains(out, "AT_RISK") {
		t.Fatalf("severities missing:\n%s", out)
	}

	board := client.NewAlertBoard()
	board.Dismiss("Food-120")
	buf.Reset()
	RenderAlerts(&buf, alerts, board)
	if strings.Contains(buf.String(), "Food-120") {
		t.Fatalf("dismissed alert rendered:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "1 dismissed") {
		t.Fatalf("dismissed count missing:\n%s", buf.String())
	}

	buf.Reset()
	RenderAlerts(&buf, alerts[:1], board)
	if strings.Contains(buf.String(), "within budget") || !strings.Contains(buf.String(), "1 dismissed") {
		t.Fatalf("all-dismissed output:\n%s", buf.String())
	}

	buf.Reset()
	RenderAlerts(&buf, nil, nil)
	if !strings.Contains(buf.String(), "within budget") {
		t.Fatalf("empty output = %q", buf.String())
	}
}

func TestRenderVerification(t *testing.T) {
	a := []core.BudgetAlert{{ID: "Food-90", Percentage: 90}}

	var buf bytes.Buffer
	RenderVerification(&buf, client.Verification{Local: a, Server: a, Match: true})
	if !strings.Contains(buf.String(), "match (1 alerts)") {
		t.Fatalf("match output = %q", buf.String())
	}

	buf.Reset()
	RenderVerification(&buf, client.Verification{Local: a, Server: nil})
	if !strings.Contains(buf.String(), "differ") || !strings.Contains(buf.String(), "Food-90 90.0000") {
		t.Fatalf("mismatch output = %q", buf.String())
	}
}
