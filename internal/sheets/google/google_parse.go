package google

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bajeti/internal/core"
)

// Ledger sheet columns, A through I.
var ledgerHeader = []any{"Event", "Occurred", "Month", "Kind", "Category", "Description", "Amount", "User", "Entity"}

const (
	colEventID = iota
	colOccurred
	colMonth
	colKind
	colCategory
	colDescription
	colAmount
	colUser
	colEntity
	numColumns
)

const occurredLayout = "2006-01-02 15:04:05"

func ledgerRow(e core.LedgerEvent) []any {
	return []any{
		e.ID,
		e.OccurredAt.UTC().Format(occurredLayout),
		e.Month,
		e.Kind,
		e.Category,
		e.Description,
		e.Amount,
		e.UserID,
		e.EntityID,
	}
}

// parseLedgerRow is the inverse of ledgerRow. USER_ENTERED input means
// numbers may come back formatted, so amounts are normalised through decimal.
func parseLedgerRow(row []any) (core.LedgerEvent, error) {
	cols := toStrings(row)
	if len(cols) < numColumns {
		return core.LedgerEvent{}, fmt.Errorf("short row: %d columns", len(cols))
	}
	if cols[colEventID] == "" {
		return core.LedgerEvent{}, errors.New("missing event id")
	}

	occurred, err := time.Parse(occurredLayout, cols[colOccurred])
	if err != nil {
		return core.LedgerEvent{}, fmt.Errorf("occurred: %w", err)
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(cols[colAmount], ",", ""))
	if err != nil {
		return core.LedgerEvent{}, fmt.Errorf("amount: %w", err)
	}
	userID, err := strconv.ParseInt(cols[colUser], 10, 64)
	if err != nil {
		return core.LedgerEvent{}, fmt.Errorf("user: %w", err)
	}
	entityID, err := strconv.ParseInt(cols[colEntity], 10, 64)
	if err != nil {
		return core.LedgerEvent{}, fmt.Errorf("entity: %w", err)
	}

	return core.LedgerEvent{
		ID:          cols[colEventID],
		Kind:        cols[colKind],
		UserID:      userID,
		EntityID:    entityID,
		Category:    cols[colCategory],
		Amount:      core.FormatAmount(amount),
		Description: cols[colDescription],
		Month:       cols[colMonth],
		OccurredAt:  occurred,
	}, nil
}

// rowOf returns the 1-based row holding id in a column A read, or 0.
func rowOf(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
