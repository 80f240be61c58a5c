package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"bajeti/internal/api"
	"bajeti/internal/core"
)

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("error encoding JSON data: %w", err)
	}
	return nil
}

// JSON output uses the API representation so scripts can consume either.
func writeOverviewJSON(w io.Writer, ov core.BudgetOverview) error {
	return writeJSON(w, api.FromOverview(ov))
}

func writeStatsJSON(w io.Writer, stats []core.CategoryStats) error {
	return writeJSON(w, api.Map(stats, api.FromCategoryStats))
}

func writeCSV(w io.Writer, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("error writing CSV: %w", err)
	}
	return nil
}

func writeOverviewCSV(w io.Writer, ov core.BudgetOverview) error {
	rows := [][]string{{"Category ID", "Category", "Allocated", "Used", "Remaining", "Percent Used"}}
	for _, a := range ov.Allocations {
		rows = append(rows, []string{
			fmt.Sprint(a.CategoryID),
			a.CategoryName,
			amount(a.AllocatedAmount),
			amount(a.UsedAmount),
			amount(a.RemainingAmount),
			a.PercentUsed.StringFixed(2),
		})
	}
	return writeCSV(w, rows)
}

func writeStatsCSV(w io.Writer, stats []core.CategoryStats) error {
	rows := [][]string{{"Category ID", "Category", "Allocated", "Used", "Expense Count", "Transfers In", "Transfers Out", "Balance"}}
	for _, s := range stats {
		rows = append(rows, []string{
			fmt.Sprint(s.ID),
			s.Name,
			amount(s.AllocatedAmount),
			amount(s.Used),
			fmt.Sprint(s.ExpenseCount),
			amount(s.TotalTransfersIn),
			amount(s.TotalTransfersOut),
			amount(s.Balance),
		})
	}
	return writeCSV(w, rows)
}
