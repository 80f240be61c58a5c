package sheets

import (
	"context"

	"bajeti/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter appends one row per ledger event. Appending an event id
	// that is already present returns the existing row reference.
	LedgerWriter interface {
		AppendEvent(ctx context.Context, e core.LedgerEvent) (rowRef string, err error)
	}

	// LedgerReader lists the events exported for a year.
	LedgerReader interface {
		ListEvents(ctx context.Context, year int) ([]core.LedgerEvent, error)
	}
)
