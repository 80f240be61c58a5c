package google

import (
	"testing"
	"time"

	"bajeti/internal/core"
)

func sampleEvent() core.LedgerEvent {
	return core.LedgerEvent{
		ID:          "evt-1",
		Kind:        core.EventExpenseCreated,
		UserID:      7,
		EntityID:    42,
		Category:    "Food",
		Amount:      "12.50",
		Description: "groceries",
		Month:       "2025-03",
		OccurredAt:  time.Date(2025, 3, 15, 12, 30, 0, 0, time.UTC),
	}
}

func TestLedgerRowRoundTrip(t *testing.T) {
	e := sampleEvent()
	row := ledgerRow(e)
	if len(row) != numColumns || len(ledgerHeader) != numColumns {
		t.Fatalf("row has %d columns, header %d, want %d", len(row), len(ledgerHeader), numColumns)
	}

	got, err := parseLedgerRow(row)
	if err != nil {
		t.Fatalf("parseLedgerRow: %v", err)
	}
	if got != e {
		t.Errorf("round trip = %+v, want %+v", got, e)
	}
}

func TestParseLedgerRow_SheetFormatting(t *testing.T) {
	// USER_ENTERED turns amounts and ids into formatted numbers.
	row := []any{"evt-9", "2025-03-01 08:00:00", "2025-03", "transfer.created", "Fun", "", "1,234.5", "7", "3"}
	got, err := parseLedgerRow(row)
	if err != nil {
		t.Fatalf("parseLedgerRow: %v", err)
	}
	if got.Amount != "1234.50" {
		t.Errorf("amount = %q, want 1234.50", got.Amount)
	}
	if got.UserID != 7 || got.EntityID != 3 {
		t.Errorf("ids = %d/%d", got.UserID, got.EntityID)
	}
}

func TestParseLedgerRow_Errors(t *testing.T) {
	tests := []struct {
		name string
		row  []any
	}{
		{"short", []any{"evt-1", "2025-03-01 08:00:00"}},
		{"no id", []any{"", "2025-03-01 08:00:00", "2025-03", "expense.created", "Food", "", "1", "1", "1"}},
		{"bad time", []any{"e", "yesterday", "2025-03", "expense.created", "Food", "", "1", "1", "1"}},
		{"bad amount", []any{"e", "2025-03-01 08:00:00", "2025-03", "expense.created", "Food", "", "lots", "1", "1"}},
		{"bad user", []any{"e", "2025-03-01 08:00:00", "2025-03", "expense.created", "Food", "", "1", "me", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseLedgerRow(tt.row); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseLedgerSkipsHeaderAndJunk(t *testing.T) {
	values := [][]any{
		ledgerHeader,
		ledgerRow(sampleEvent()),
		{"notes typed by hand"},
		{},
	}
	events := parseLedger(values)
	if len(events) != 1 || events[0].ID != "evt-1" {
		t.Fatalf("events = %+v", events)
	}
}

func TestRowOf(t *testing.T) {
	values := [][]any{{"Event"}, {"evt-1"}, {}, {" evt-2 "}}
	tests := []struct {
		id   string
		want int
	}{
		{"evt-1", 2},
		{"evt-2", 4},
		{"evt-3", 0},
	}
	for _, tt := range tests {
		if got := rowOf(values, tt.id); got != tt.want {
			t.Errorf("rowOf(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}
