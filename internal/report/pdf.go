package report

import (
	"fmt"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"bajeti/internal/core"
)

var (
	headerColor     = [3]int{40, 40, 40}
	headerTextColor = [3]int{255, 255, 255}
	bodyTextColor   = [3]int{50, 50, 50}
	lineColor       = [3]int{200, 200, 200}
	negativeColor   = [3]int{192, 0, 0}
)

type pdfDoc struct {
	*gofpdf.Fpdf
	tr func(string) string
}

func newPDF() *pdfDoc {
	pdf := gofpdf.New("P", "mm", "A4", "")
	return &pdfDoc{Fpdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (p *pdfDoc) header(title, subtitle string) {
	p.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
	p.SetTextColor(headerTextColor[0], headerTextColor[1], headerTextColor[2])
	p.SetFont("Arial", "B", 14)
	p.CellFormat(0, 12, p.tr("  "+title), "", 1, "L", true, 0, "")

	p.SetFont("Arial", "", 10)
	p.SetFillColor(240, 240, 240)
	p.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	p.CellFormat(0, 8, p.tr("  "+subtitle), "", 1, "L", true, 0, "")
	p.Ln(8)
}

func (p *pdfDoc) section(title string) {
	p.SetFont("Arial", "B", 12)
	p.SetTextColor(0, 0, 0)
	p.Cell(0, 8, p.tr(title))
	p.Ln(7)
	p.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
	p.Line(p.GetX(), p.GetY(), p.GetX()+190, p.GetY())
	p.Ln(3)
}

// table draws a header row and body rows. negative, when set, parallels rows
// and marks the cells printed in red.
func (p *pdfDoc) table(widths []float64, head []string, rows [][]string, negative [][]bool) {
	p.SetFont("Arial", "B", 9)
	p.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	for i, h := range head {
		p.CellFormat(widths[i], 7, p.tr(h), "B", 0, align(i), false, 0, "")
	}
	p.Ln(-1)

	p.SetFont("Arial", "", 9)
	for r, row := range rows {
		for i, cell := range row {
			if negative != nil && negative[r][i] {
				p.SetTextColor(negativeColor[0], negativeColor[1], negativeColor[2])
			}
			p.CellFormat(widths[i], 6, p.tr(cell), "", 0, align(i), false, 0, "")
			p.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		}
		p.Ln(-1)
	}
	p.Ln(6)
}

func (p *pdfDoc) footer(generated string) {
	p.SetY(-15)
	p.SetFont("Arial", "I", 8)
	p.SetTextColor(128, 128, 128)
	p.CellFormat(0, 10, p.tr("Generated by bajeti | "+generated), "", 0, "L", false, 0, "")
	p.CellFormat(0, 10, fmt.Sprintf("Page %d", p.PageNo()), "", 0, "R", false, 0, "")
}

// first column is a label, the rest are numbers
func align(col int) string {
	if col == 0 {
		return "L"
	}
	return "R"
}

func neg(ds ...decimal.Decimal) []bool {
	out := make([]bool, len(ds))
	for i, d := range ds {
		out[i] = d.IsNegative()
	}
	return out
}

func (r *Renderer) writePDF(base string, p *pdfDoc) (string, error) {
	path, err := r.filename(base, "pdf")
	if err != nil {
		return "", err
	}
	if err := p.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("error writing PDF file: %w", err)
	}
	return filepath.Abs(path)
}

func (r *Renderer) overviewPDF(base string, ov core.BudgetOverview) (string, error) {
	p := newPDF()
	p.AddPage()
	p.header(fmt.Sprintf("Budget: %s", ov.Budget.Name), fmt.Sprintf("Month %s | Amount %s", ov.Budget.Month, amount(ov.Budget.Amount)))

	s := ov.Summary
	p.section("Summary")
	p.table(
		[]float64{50, 45, 45, 50},
		[]string{"Allocated", "Unallocated", "Spent", "Utilization"},
		[][]string{{amount(s.TotalAllocated), amount(s.Unallocated), amount(s.TotalSpent), pct(s.UtilizationPercent)}},
		[][]bool{neg(s.TotalAllocated, s.Unallocated, s.TotalSpent, s.UtilizationPercent)},
	)

	p.section("Allocations")
	rows := make([][]string, 0, len(ov.Allocations))
	negative := make([][]bool, 0, len(ov.Allocations))
	for _, a := range ov.Allocations {
		rows = append(rows, []string{a.CategoryName, amount(a.AllocatedAmount), amount(a.UsedAmount), amount(a.RemainingAmount), pct(a.PercentUsed)})
		negative = append(negative, []bool{false, false, false, a.RemainingAmount.IsNegative(), false})
	}
	p.table([]float64{60, 32, 32, 32, 34}, []string{"Category", "Allocated", "Used", "Remaining", "Used %"}, rows, negative)

	p.footer(r.now().Format("2006-01-02"))
	return r.writePDF(base, p)
}

func (r *Renderer) statsPDF(base string, stats []core.CategoryStats, month string) (string, error) {
	p := newPDF()
	p.AddPage()
	p.header("Category stats", "Month "+month)

	p.section("Categories")
	rows := make([][]string, 0, len(stats))
	negative := make([][]bool, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Name,
			amount(s.AllocatedAmount),
			amount(s.Used),
			fmt.Sprint(s.ExpenseCount),
			amount(s.TotalTransfersIn),
			amount(s.TotalTransfersOut),
			amount(s.Balance),
		})
		negative = append(negative, []bool{false, false, false, false, false, false, s.Balance.IsNegative()})
	}
	p.table([]float64{46, 24, 24, 20, 26, 26, 24}, []string{"Category", "Allocated", "Used", "Count", "In", "Out", "Balance"}, rows, negative)

	for _, s := range stats {
		if len(s.Expenses) == 0 {
			continue
		}
		p.section(s.Name + " expenses")
		expRows := make([][]string, 0, len(s.Expenses))
		for _, e := range s.Expenses {
			expRows = append(expRows, []string{e.Description, e.Month, amount(e.Amount)})
		}
		p.table([]float64{110, 40, 40}, []string{"Description", "Month", "Amount"}, expRows, nil)
	}

	p.footer(r.now().Format("2006-01-02"))
	return r.writePDF(base, p)
}
