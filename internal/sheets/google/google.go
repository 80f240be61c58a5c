// Package google exports ledger events to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"bajeti/internal/core"
	ports "bajeti/internal/sheets"
)

// Config selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// base name without year (e.g. "Ledger"); the event's year is prefixed.
	sheetBase string
}

// Ensure interface conformance
var (
	_ ports.LedgerWriter = (*Client)(nil)
	_ ports.LedgerReader = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Ledger"
	}

	credentials, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created",
		"component", "sheets",
		"spreadsheet_id", spreadsheetID,
		"sheet", base)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: base}, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// AppendEvent appends e to the ledger sheet of the event's year. The event id
// column is scanned first so redelivered events are not written twice.
func (c *Client) AppendEvent(ctx context.Context, e core.LedgerEvent) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(e.ID) == "" {
		return "", errors.New("event id is required")
	}

	sheet := yearPrefixedName(c.sheetBase, eventYear(e))
	ids, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read event ids in %s: %w", sheet, err)
	}
	if row := rowOf(ids.Values, e.ID); row > 0 {
		slog.DebugContext(ctx, "Event already exported",
			"component", "sheets", "event_id", e.ID, "row", row)
		return fmt.Sprintf("%s!A%d:I%d", sheet, row, row), nil
	}

	values := [][]any{ledgerRow(e)}
	if len(ids.Values) == 0 {
		values = append([][]any{ledgerHeader}, values...)
	}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:I", &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return sheet, nil
}

// ListEvents reads back every parsable row of the year's ledger sheet.
func (c *Client) ListEvents(ctx context.Context, year int) ([]core.LedgerEvent, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := yearPrefixedName(c.sheetBase, year) + "!A:I"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseLedger(resp.Values), nil
}

// parseLedger skips the header and rows edited into an unreadable shape.
func parseLedger(values [][]any) []core.LedgerEvent {
	out := make([]core.LedgerEvent, 0, len(values))
	for i, row := range values {
		if i == 0 && len(row) > 0 && fmt.Sprint(row[0]) == ledgerHeader[0] {
			continue
		}
		e, err := parseLedgerRow(row)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}

func eventYear(e core.LedgerEvent) int {
	if len(e.Month) >= 4 {
		if y, err := strconv.Atoi(e.Month[:4]); err == nil {
			return y
		}
	}
	return e.OccurredAt.Year()
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
