// Package memory keeps exported ledger events in process, for tests and
// local runs without a spreadsheet.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bajeti/internal/core"
	ports "bajeti/internal/sheets"
)

var (
	_ ports.LedgerWriter = (*Ledger)(nil)
	_ ports.LedgerReader = (*Ledger)(nil)
)

type Ledger struct {
	mu    sync.Mutex
	rows  []core.LedgerEvent
	index map[string]int
}

func New() *Ledger {
	return &Ledger{index: map[string]int{}}
}

// AppendEvent stores e once per id and returns a synthetic row reference.
func (l *Ledger) AppendEvent(_ context.Context, e core.LedgerEvent) (string, error) {
	if strings.TrimSpace(e.ID) == "" {
		return "", errors.New("event id is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if i, ok := l.index[e.ID]; ok {
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	l.rows = append(l.rows, e)
	l.index[e.ID] = len(l.rows) - 1
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

// ListEvents returns the events of year in append order.
func (l *Ledger) ListEvents(_ context.Context, year int) ([]core.LedgerEvent, error) {
	prefix := fmt.Sprintf("%04d-", year)
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.LedgerEvent, 0, len(l.rows))
	for _, e := range l.rows {
		if strings.HasPrefix(e.Month, prefix) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len reports the number of distinct events stored.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}
