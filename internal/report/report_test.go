package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"bajeti/internal/api"
	"bajeti/internal/core"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleOverview() core.BudgetOverview {
	return core.BudgetOverview{
		Budget: core.OverviewBudget{ID: 1, Name: "Monthly", Amount: d("1000"), Month: "2025-03"},
		Summary: core.OverviewSummary{
			TotalAllocated:     d("1100"),
			Unallocated:        d("-100"),
			TotalSpent:         d("250"),
			UtilizationPercent: d("25"),
		},
		Allocations: []core.AllocationUsage{
			{AllocationID: 1, CategoryID: 3, CategoryName: "Food", AllocatedAmount: d("600"), UsedAmount: d("250"), RemainingAmount: d("350"), PercentUsed: d("41.666666")},
			{AllocationID: 2, CategoryID: 4, CategoryName: "Fun", AllocatedAmount: d("500"), UsedAmount: d("0"), RemainingAmount: d("500"), PercentUsed: d("0")},
		},
	}
}

func sampleStats() []core.CategoryStats {
	return []core.CategoryStats{
		{
			ID: 3, Name: "Food", Type: core.CategoryExpense,
			AllocatedAmount: d("600"), Used: d("250"), ExpenseCount: 1, Balance: d("350"),
			Expenses:         []core.Expense{{ID: 9, CategoryID: 3, Amount: d("250"), Description: "groceries", Month: "2025-03"}},
			TotalTransfersIn: d("0"), TotalTransfersOut: d("0"),
		},
		{
			ID: 4, Name: "Fun", Type: core.CategoryExpense,
			AllocatedAmount: d("0"), Used: d("30"), ExpenseCount: 1, Balance: d("-30"),
			TotalTransfersIn: d("0"), TotalTransfersOut: d("0"),
		},
	}
}

func fixedRenderer(out *bytes.Buffer, dir string) *Renderer {
	r := NewRenderer(out, dir)
	r.now = func() time.Time { return time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC) }
	return r
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" csv ", FormatCSV, false},
		{"pdf", FormatPDF, false},
		{"XLSX", FormatXLSX, false},
		{"html", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestOverviewTable(t *testing.T) {
	var out bytes.Buffer
	if _, err := fixedRenderer(&out, "").Overview(sampleOverview(), FormatTable); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{"Monthly", "2025-03", "Food", "350.00", "41.67%", "-100.00"} {
		if !strings.Contains(text, want) {
			t.Errorf("table output missing %q:\n%s", want, text)
		}
	}
}

func TestStatsTableEmpty(t *testing.T) {
	var out bytes.Buffer
	if _, err := fixedRenderer(&out, "").Stats(nil, "2025-03", FormatTable); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No expense categories.") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestOverviewJSONToWriter(t *testing.T) {
	var out bytes.Buffer
	path, err := fixedRenderer(&out, "").Overview(sampleOverview(), FormatJSON)
	if err != nil || path != "" {
		t.Fatalf("path=%q err=%v", path, err)
	}
	var got api.BudgetOverview
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Allocations[0].PercentUsed.String() != "41.67" {
		t.Errorf("percent = %s, want 41.67", got.Allocations[0].PercentUsed)
	}
	if got.Summary.Unallocated.String() != "-100" {
		t.Errorf("unallocated = %s", got.Summary.Unallocated)
	}
}

func TestStatsCSVToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	var out bytes.Buffer
	path, err := fixedRenderer(&out, dir).Stats(sampleStats(), "2025-03", FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "stats_2025-03_20250315_100000.csv" {
		t.Errorf("unexpected file name %s", path)
	}
	if out.Len() != 0 {
		t.Error("nothing should be written to out")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[2][1] != "Fun" || rows[2][7] != "-30.00" {
		t.Errorf("unexpected row: %v", rows[2])
	}
}

func TestPDFOutputs(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	r := fixedRenderer(&out, dir)

	paths := map[string]func() (string, error){
		"overview": func() (string, error) { return r.Overview(sampleOverview(), FormatPDF) },
		"stats":    func() (string, error) { return r.Stats(sampleStats(), "2025-03", FormatPDF) },
	}
	for name, render := range paths {
		t.Run(name, func(t *testing.T) {
			path, err := render()
			if err != nil {
				t.Fatal(err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.HasPrefix(data, []byte("%PDF")) {
				t.Errorf("%s is not a PDF", path)
			}
		})
	}
}

func TestXLSXOutputs(t *testing.T) {
	dir := t.TempDir()
	r := fixedRenderer(&bytes.Buffer{}, dir)

	path, err := r.Overview(sampleOverview(), FormatXLSX)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(path) != ".xlsx" {
		t.Errorf("path = %s", path)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 2 || got[0] != "Summary" || got[1] != "Allocations" {
		t.Fatalf("sheets = %v", got)
	}
	raw := excelize.Options{RawCellValue: true}
	cells := []struct {
		sheet, cell, want string
	}{
		{"Summary", "A2", "Monthly"},
		{"Summary", "E2", "-100"},
		{"Allocations", "B1", "Category"},
		{"Allocations", "B2", "Food"},
		{"Allocations", "C3", "500"},
	}
	for _, c := range cells {
		got, err := f.GetCellValue(c.sheet, c.cell, raw)
		if err != nil {
			t.Fatal(err)
		}
		if got != c.want {
			t.Errorf("%s!%s = %q, want %q", c.sheet, c.cell, got, c.want)
		}
	}

	path, err = r.Stats(sampleStats(), "2025-03", FormatXLSX)
	if err != nil {
		t.Fatal(err)
	}
	s, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if got, _ := s.GetCellValue("Expenses", "C2"); got != "groceries" {
		t.Errorf("Expenses!C2 = %q", got)
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Monthly":        "monthly",
		"  Holiday 2025": "holiday-2025",
		"Casa & Cibo!":   "casa-cibo",
		"***":            "budget",
	}
	for in, want := range tests {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
