package report

import (
	"fmt"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"bajeti/internal/core"
)

// workbook writes one sheet per call to sheet, with a bold header row and
// two-decimal number cells.
type workbook struct {
	f      *excelize.File
	first  bool
	header int
	money  int
}

func newWorkbook() (*workbook, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("create number style: %w", err)
	}
	return &workbook{f: f, first: true, header: header, money: money}, nil
}

// sheet adds a sheet named name. Cells holding a decimal.Decimal are written
// as numbers.
func (w *workbook) sheet(name string, headers []string, rows [][]any) error {
	if w.first {
		if err := w.f.SetSheetName("Sheet1", name); err != nil {
			return err
		}
		w.first = false
	} else if _, err := w.f.NewSheet(name); err != nil {
		return err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := w.f.SetCellValue(name, cell, h); err != nil {
			return err
		}
		if err := w.f.SetCellStyle(name, cell, cell, w.header); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if d, ok := v.(decimal.Decimal); ok {
				if err := w.f.SetCellFloat(name, cell, d.InexactFloat64(), -1, 64); err != nil {
					return err
				}
				if err := w.f.SetCellStyle(name, cell, cell, w.money); err != nil {
					return err
				}
				continue
			}
			if err := w.f.SetCellValue(name, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Renderer) writeXLSX(base string, w *workbook) (string, error) {
	defer w.f.Close()
	path, err := r.filename(base, "xlsx")
	if err != nil {
		return "", err
	}
	if err := w.f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error writing XLSX file: %w", err)
	}
	return filepath.Abs(path)
}

func (r *Renderer) overviewXLSX(base string, ov core.BudgetOverview) (string, error) {
	w, err := newWorkbook()
	if err != nil {
		return "", err
	}
	s := ov.Summary
	err = w.sheet("Summary",
		[]string{"Budget", "Month", "Amount", "Allocated", "Unallocated", "Spent", "Utilization %"},
		[][]any{{ov.Budget.Name, ov.Budget.Month, ov.Budget.Amount, s.TotalAllocated, s.Unallocated, s.TotalSpent, s.UtilizationPercent}},
	)
	if err != nil {
		return "", fmt.Errorf("write summary sheet: %w", err)
	}

	rows := make([][]any, 0, len(ov.Allocations))
	for _, a := range ov.Allocations {
		rows = append(rows, []any{a.CategoryID, a.CategoryName, a.AllocatedAmount, a.UsedAmount, a.RemainingAmount, a.PercentUsed})
	}
	err = w.sheet("Allocations", []string{"Category ID", "Category", "Allocated", "Used", "Remaining", "Percent Used"}, rows)
	if err != nil {
		return "", fmt.Errorf("write allocations sheet: %w", err)
	}
	return r.writeXLSX(base, w)
}

func (r *Renderer) statsXLSX(base string, stats []core.CategoryStats, month string) (string, error) {
	w, err := newWorkbook()
	if err != nil {
		return "", err
	}
	rows := make([][]any, 0, len(stats))
	var expenses [][]any
	for _, s := range stats {
		rows = append(rows, []any{s.ID, s.Name, s.AllocatedAmount, s.Used, s.ExpenseCount, s.TotalTransfersIn, s.TotalTransfersOut, s.Balance})
		for _, e := range s.Expenses {
			expenses = append(expenses, []any{e.ID, s.Name, e.Description, e.Amount})
		}
	}
	err = w.sheet("Stats "+month,
		[]string{"Category ID", "Category", "Allocated", "Used", "Expense Count", "Transfers In", "Transfers Out", "Balance"},
		rows,
	)
	if err != nil {
		return "", fmt.Errorf("write stats sheet: %w", err)
	}
	if err := w.sheet("Expenses", []string{"Expense ID", "Category", "Description", "Amount"}, expenses); err != nil {
		return "", fmt.Errorf("write expenses sheet: %w", err)
	}
	return r.writeXLSX(base, w)
}
