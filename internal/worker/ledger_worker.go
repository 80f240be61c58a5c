// Package worker exports consumed ledger events to the ledger sheet.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"bajeti/internal/amqp"
	"bajeti/internal/core"
	"bajeti/internal/log"
	"bajeti/internal/sheets"
)

// LedgerWorker appends every consumed event to a sheets.LedgerWriter.
type LedgerWorker struct {
	writer sheets.LedgerWriter
	log    *log.StructuredLogger

	exported atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64
}

func NewLedgerWorker(writer sheets.LedgerWriter) *LedgerWorker {
	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	return &LedgerWorker{writer: writer, log: log.NewStructuredLogger(logger)}
}

// WithLogger replaces the worker's logger.
func (w *LedgerWorker) WithLogger(logger *log.Logger) *LedgerWorker {
	w.log = log.NewStructuredLogger(logger)
	return w
}

// Stats counts handled messages by outcome.
type Stats struct {
	Exported int64
	Dropped  int64
	Failed   int64
}

func (w *LedgerWorker) Stats() Stats {
	return Stats{
		Exported: w.exported.Load(),
		Dropped:  w.dropped.Load(),
		Failed:   w.failed.Load(),
	}
}

// HandleLedgerMessage has the amqp.Handler signature. Events whose amount or
// month cannot be exported are reported as permanent failures; writer errors
// are returned as-is so the message is redelivered.
func (w *LedgerWorker) HandleLedgerMessage(ctx context.Context, msg *amqp.LedgerMessage) error {
	if err := exportable(msg.LedgerEvent); err != nil {
		w.dropped.Add(1)
		w.log.LogError(ctx, "Dropping ledger event", err, log.ComponentWorker, log.OpValidate, eventFields(msg.LedgerEvent))
		return amqp.Permanent(err)
	}

	ref, err := w.writer.AppendEvent(ctx, msg.LedgerEvent)
	if err != nil {
		w.failed.Add(1)
		w.log.LogError(ctx, "Failed to export ledger event", err, log.ComponentWorker, log.OpExport, eventFields(msg.LedgerEvent))
		return fmt.Errorf("append event %s: %w", msg.ID, err)
	}

	w.exported.Add(1)
	w.log.LogLedgerEvent(ctx, "Exported ledger event", log.OpExport, msg.LedgerEvent, "sheets_ref", ref)
	return nil
}

func exportable(e core.LedgerEvent) error {
	if _, err := decimal.NewFromString(e.Amount); err != nil {
		return fmt.Errorf("event %s amount %q: %w", e.ID, e.Amount, err)
	}
	if !core.ValidMonth(e.Month) {
		return fmt.Errorf("event %s month %q: %w", e.ID, e.Month, core.ErrInvalidMonth)
	}
	return nil
}

func eventFields(e core.LedgerEvent) log.LogFields {
	return log.NewFields().WithUser(e.UserID).WithLedgerEvent(e.ID, e.Kind, e.EntityID, e.Amount)
}
