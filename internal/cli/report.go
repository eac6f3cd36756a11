package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"finboard/internal/client"
	"finboard/internal/core"
)

var (
	titleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true)
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	atRiskStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#fab387"))
	overBudgetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true)
	okStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
)

func severityStyle(s core.Severity) lipgloss.Style {
	if s == core.SeverityOverBudget {
		return overBudgetStyle
	}
	return atRiskStyle
}

// RenderSummary prints totals, spending by category and the budget comparison.
func RenderSummary(w io.Writer, dash client.Dashboard) {
	s := dash.Summary
	fmt.Fprintln(w, titleStyle.Render("Summary"))
	fmt.Fprintf(w, "  Income    %10.2f\n", s.TotalIncome)
	fmt.Fprintf(w, "  Expenses  %10.2f\n", s.TotalExpenses)
	fmt.Fprintf(w, "  Balance   %10.2f\n", s.Balance)
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  %d transactions", s.TransactionCount)))

	if len(s.ByCategory) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("By category"))
		for _, c := range s.ByCategory {
			fmt.Fprintf(w, "  %-20s %10.2f\n", c.Category, c.Amount)
		}
	}

	if len(s.BudgetComparison) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Budget vs spent"))
		for _, b := range s.BudgetComparison {
			limit := mutedStyle.Render("no budget")
			if b.Limit > 0 {
				limit = fmt.Sprintf("%.2f", b.Limit)
			}
			fmt.Fprintf(w, "  %-20s %10.2f / %s\n", b.Category, b.Spent, limit)
		}
	}
}

// RenderAlerts prints the alerts the board does not hide.
func RenderAlerts(w io.Writer, alerts []core.BudgetAlert, board *client.AlertBoard) {
	hidden := 0
	if board != nil {
		visible := board.Visible(alerts)
		hidden = len(alerts) - len(visible)
		alerts = visible
	}
	fmt.Fprintln(w, titleStyle.Render("Budget alerts"))
	if len(alerts) == 0 && hidden == 0 {
		fmt.Fprintln(w, okStyle.Render("  All categories within budget"))
		return
	}
	for _, a := range alerts {
		sev := client.Severity(a)
		fmt.Fprintf(w, "  %s %-20s %6.1f%%  %.2f of %.2f  %s\n",
			severityStyle(sev).Render(strings.ToUpper(string(sev))),
			a.Category, a.Percentage, a.CurrentSpent, a.BudgetLimit,
			mutedStyle.Render(a.ID))
	}
	if hidden > 0 {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  %d dismissed", hidden)))
	}
}

// RenderVerification prints both alert lists when they differ.
func RenderVerification(w io.Writer, v client.Verification) {
	if v.Match {
		fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("Local and server alerts match (%d alerts)", len(v.Local))))
		return
	}
	fmt.Fprintln(w, overBudgetStyle.Render("Local and server alerts differ"))
	fmt.Fprintln(w, "local:")
	for _, a := range v.Local {
		fmt.Fprintf(w, "  %s %.4f\n", a.ID, a.Percentage)
	}
	fmt.Fprintln(w, "server:")
	for _, a := range v.Server {
		fmt.Fprintf(w, "  %s %.4f\n", a.ID, a.Percentage)
	}
}
