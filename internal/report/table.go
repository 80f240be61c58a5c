package report

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"

	"bajeti/internal/core"
)

var (
	boldRed   = color.New(color.FgRed, color.Bold).SprintFunc()
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	cyan      = color.New(color.FgCyan).SprintFunc()
)

// signed highlights negative amounts, which mean overspend.
func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return boldRed(amount(d))
	}
	return amount(d)
}

func renderTable(data pterm.TableData) (string, error) {
	return pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(data).
		Srender()
}

func (r *Renderer) overviewTable(ov core.BudgetOverview) error {
	s := ov.Summary
	fmt.Fprintf(r.out, "%s %s  budget %s\n\n", cyan(ov.Budget.Name), ov.Budget.Month, amount(ov.Budget.Amount))

	summary, err := renderTable(pterm.TableData{
		{"Allocated", "Unallocated", "Spent", "Utilization"},
		{amount(s.TotalAllocated), signed(s.Unallocated), amount(s.TotalSpent), pct(s.UtilizationPercent)},
	})
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	fmt.Fprintln(r.out, summary)

	if len(ov.Allocations) == 0 {
		fmt.Fprintln(r.out, "No allocations.")
		return nil
	}
	data := pterm.TableData{{"Category", "Allocated", "Used", "Remaining", "Used %"}}
	for _, a := range ov.Allocations {
		data = append(data, []string{
			a.CategoryName,
			amount(a.AllocatedAmount),
			amount(a.UsedAmount),
			signed(a.RemainingAmount),
			pct(a.PercentUsed),
		})
	}
	table, err := renderTable(data)
	if err != nil {
		return fmt.Errorf("render allocations: %w", err)
	}
	fmt.Fprintln(r.out, table)
	return nil
}

func (r *Renderer) statsTable(stats []core.CategoryStats, month string) error {
	fmt.Fprintf(r.out, "Categories %s\n\n", cyan(month))
	if len(stats) == 0 {
		fmt.Fprintln(r.out, "No expense categories.")
		return nil
	}

	data := pterm.TableData{{"Category", "Allocated", "Used", "Expenses", "Transfers In", "Transfers Out", "Balance"}}
	for _, s := range stats {
		balance := signed(s.Balance)
		if s.Balance.IsPositive() {
			balance = boldGreen(amount(s.Balance))
		}
		data = append(data, []string{
			s.Name,
			amount(s.AllocatedAmount),
			amount(s.Used),
			fmt.Sprint(s.ExpenseCount),
			amount(s.TotalTransfersIn),
			amount(s.TotalTransfersOut),
			balance,
		})
	}
	table, err := renderTable(data)
	if err != nil {
		return fmt.Errorf("render stats: %w", err)
	}
	fmt.Fprintln(r.out, table)
	return nil
}
