package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"bajeti/internal/amqp"
	"bajeti/internal/core"
	"bajeti/internal/log"
	"bajeti/internal/sheets/memory"
)

type failingWriter struct{ err error }

func (f failingWriter) AppendEvent(context.Context, core.LedgerEvent) (string, error) {
	return "", f.err
}

func message(id, amount, month string) *amqp.LedgerMessage {
	return amqp.NewLedgerMessage(core.LedgerEvent{
		ID:         id,
		Kind:       core.EventExpenseCreated,
		UserID:     1,
		EntityID:   10,
		Category:   "Food",
		Amount:     amount,
		Month:      month,
		OccurredAt: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	})
}

func TestHandleLedgerMessage_Exports(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	w := NewLedgerWorker(ledger)

	if err := w.HandleLedgerMessage(ctx, message("a", "12.50", "2025-03")); err != nil {
		t.Fatalf("HandleLedgerMessage: %v", err)
	}
	// redelivery is harmless
	if err := w.HandleLedgerMessage(ctx, message("a", "12.50", "2025-03")); err != nil {
		t.Fatalf("HandleLedgerMessage redelivery: %v", err)
	}

	if ledger.Len() != 1 {
		t.Errorf("ledger has %d rows, want 1", ledger.Len())
	}
	events, _ := ledger.ListEvents(ctx, 2025)
	if len(events) != 1 || events[0].Category != "Food" {
		t.Errorf("events = %+v", events)
	}
	if got := w.Stats(); got.Exported != 2 || got.Dropped != 0 || got.Failed != 0 {
		t.Errorf("stats = %+v", got)
	}
}

func TestHandleLedgerMessage_PermanentFailures(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		month  string
	}{
		{"bad amount", "twelve", "2025-03"},
		{"bad month", "1.00", "March"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := memory.New()
			w := NewLedgerWorker(ledger)
			err := w.HandleLedgerMessage(context.Background(), message("x", tt.amount, tt.month))
			if !errors.Is(err, amqp.ErrPermanent) {
				t.Fatalf("err = %v, want permanent", err)
			}
			if ledger.Len() != 0 {
				t.Error("nothing should be exported")
			}
			if w.Stats().Dropped != 1 {
				t.Errorf("stats = %+v", w.Stats())
			}
		})
	}
}

func TestHandleLedgerMessage_TransientFailure(t *testing.T) {
	cause := errors.New("quota exceeded")
	w := NewLedgerWorker(failingWriter{err: cause})

	err := w.HandleLedgerMessage(context.Background(), message("y", "5", "2025-03"))
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want %v", err, cause)
	}
	if errors.Is(err, amqp.ErrPermanent) {
		t.Fatal("writer errors must be retried")
	}
	if w.Stats().Failed != 1 {
		t.Errorf("stats = %+v", w.Stats())
	}
}

func TestHandleLedgerMessage_LogsEventFields(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Component: log.ComponentWorker, Output: &buf})
	w := NewLedgerWorker(memory.New()).WithLogger(logger)
	ctx := context.Background()

	if err := w.HandleLedgerMessage(ctx, message("a", "12.50", "2025-03")); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleLedgerMessage(ctx, message("b", "12.50", "March")); err == nil {
		t.Fatal("expected bad month to fail")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two log lines, got %q", buf.String())
	}
	var exported, dropped map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &exported); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &dropped); err != nil {
		t.Fatal(err)
	}

	checks := []struct {
		entry map[string]any
		key   string
		want  any
	}{
		{exported, "msg", "Exported ledger event"},
		{exported, log.FieldComponent, log.ComponentWorker},
		{exported, log.FieldEventID, "a"},
		{exported, log.FieldUserID, float64(1)},
		{exported, log.FieldMonth, "2025-03"},
		{exported, log.FieldOperation, log.OpExport},
		{exported, "sheets_ref", "mem:1"},
		{dropped, "msg", "Dropping ledger event"},
		{dropped, log.FieldEventID, "b"},
		{dropped, log.FieldOperation, log.OpValidate},
		{dropped, "level", "ERROR"},
	}
	for _, c := range checks {
		if c.entry[c.key] != c.want {
			t.Errorf("%s = %v, want %v", c.key, c.entry[c.key], c.want)
		}
	}
}
