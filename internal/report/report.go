// Package report renders budget overviews and category stats for the CLI.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bajeti/internal/core"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatPDF   Format = "pdf"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat accepts table, json, csv, pdf and xlsx in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatCSV, FormatPDF, FormatXLSX:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q: use table, json, csv, pdf or xlsx", s)
	}
}

// Renderer writes reports to out, or to files under outputDir. Tables always
// go to out while PDF and XLSX always go to a file. JSON and CSV go to a file
// only when outputDir is set.
type Renderer struct {
	out       io.Writer
	outputDir string
	now       func() time.Time
}

func NewRenderer(out io.Writer, outputDir string) *Renderer {
	return &Renderer{out: out, outputDir: outputDir, now: time.Now}
}

// Overview renders ov and returns the path written, if any.
func (r *Renderer) Overview(ov core.BudgetOverview, f Format) (string, error) {
	base := "overview_" + slug(ov.Budget.Name) + "_" + ov.Budget.Month
	switch f {
	case FormatTable:
		return "", r.overviewTable(ov)
	case FormatJSON:
		return r.emit(base, "json", func(w io.Writer) error { return writeOverviewJSON(w, ov) })
	case FormatCSV:
		return r.emit(base, "csv", func(w io.Writer) error { return writeOverviewCSV(w, ov) })
	case FormatPDF:
		return r.overviewPDF(base, ov)
	case FormatXLSX:
		return r.overviewXLSX(base, ov)
	default:
		return "", fmt.Errorf("unknown format %q", f)
	}
}

// Stats renders the category stats of month.
func (r *Renderer) Stats(stats []core.CategoryStats, month string, f Format) (string, error) {
	base := "stats_" + month
	switch f {
	case FormatTable:
		return "", r.statsTable(stats, month)
	case FormatJSON:
		return r.emit(base, "json", func(w io.Writer) error { return writeStatsJSON(w, stats) })
	case FormatCSV:
		return r.emit(base, "csv", func(w io.Writer) error { return writeStatsCSV(w, stats) })
	case FormatPDF:
		return r.statsPDF(base, stats, month)
	case FormatXLSX:
		return r.statsXLSX(base, stats, month)
	default:
		return "", fmt.Errorf("unknown format %q", f)
	}
}

func (r *Renderer) emit(base, ext string, write func(io.Writer) error) (string, error) {
	if r.outputDir == "" {
		return "", write(r.out)
	}
	path, err := r.filename(base, ext)
	if err != nil {
		return "", err
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating %s file: %w", strings.ToUpper(ext), err)
	}
	defer file.Close()
	if err := write(file); err != nil {
		return "", err
	}
	return filepath.Abs(path)
}

// filename creates the output directory and returns a timestamped path in it.
func (r *Renderer) filename(base, ext string) (string, error) {
	dir := r.outputDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = cwd
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory '%s': %w", dir, err)
	}
	name := fmt.Sprintf("%s_%s.%s", base, r.now().Format("20060102_150405"), ext)
	return filepath.Join(dir, name), nil
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	dash := false
	for _, c := range s {
		if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(c)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "budget"
	}
	return b.String()
}

func amount(d decimal.Decimal) string {
	return core.FormatAmount(d)
}

func pct(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}
