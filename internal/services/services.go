// Package services implements the budgeting use cases on top of a
// storage.Store: the overview and category stats aggregators and the CRUD
// operations on budgets, categories, allocations, expenses and transfers.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"bajeti/internal/core"
	"bajeti/internal/log"
	"bajeti/internal/storage"
)

// Publisher delivers ledger events to downstream consumers.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, e core.LedgerEvent) error
}

// Invalidator drops every cached read model of a user.
type Invalidator interface {
	InvalidateUser(userID int64)
}

// Deps are the collaborators shared by all services. Publisher and Cache are
// optional.
type Deps struct {
	Store     storage.Store
	Publisher Publisher
	Cache     Invalidator
	Now       func() time.Time
}

// Services groups every use case of the application.
type Services struct {
	Reports     *Reports
	Budgets     *BudgetService
	Categories  *CategoryService
	Allocations *AllocationService
	Expenses    *ExpenseService
	Transfers   *TransferService
}

// New wires all services around d. When d.Cache is a *cache.Overviews the
// caller should also pass it to Reports.WithOverviewCache.
func New(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	w := &writer{store: d.Store, publisher: d.Publisher, cache: d.Cache, now: d.Now}
	return &Services{
		Reports:     NewReports(d.Store).WithClock(d.Now),
		Budgets:     &BudgetService{w},
		Categories:  &CategoryService{w},
		Allocations: &AllocationService{w},
		Expenses:    &ExpenseService{w},
		Transfers:   &TransferService{w},
	}
}

// writer carries what every mutating service needs after a successful write.
type writer struct {
	store     storage.Store
	publisher Publisher
	cache     Invalidator
	now       func() time.Time
}

func (w *writer) currentMonth() string {
	return core.CurrentMonth(w.now())
}

// changed invalidates the user's cached overviews and publishes ev when it is
// not nil. Publishing failures are logged, the write already succeeded.
func (w *writer) changed(ctx context.Context, userID int64, ev *core.LedgerEvent) {
	if w.cache != nil {
		w.cache.InvalidateUser(userID)
	}
	if ev == nil {
		return
	}
	logger := log.FromContext(ctx).WithComponent(log.ComponentAMQP)
	if w.publisher == nil {
		logger.DebugContext(ctx, "No ledger publisher configured, skipping event", log.FieldEventKind, ev.Kind)
		return
	}

	ev.ID = uuid.NewString()
	ev.UserID = userID
	ev.OccurredAt = w.now().UTC()
	sl := log.NewStructuredLogger(logger)
	if err := w.publisher.PublishLedgerEvent(ctx, *ev); err != nil {
		fields := log.NewFields().WithUser(userID).WithLedgerEvent(ev.ID, ev.Kind, ev.EntityID, ev.Amount)
		sl.LogError(ctx, "Failed to publish ledger event", err, log.ComponentAMQP, log.OpPublish, fields)
		return
	}
	sl.LogLedgerEvent(ctx, "Published ledger event", log.OpPublish, *ev)
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
