package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bajeti/internal/core"
	"bajeti/internal/storage"
)

// ExpenseService records spending and withdrawals. Every change is published
// as a ledger event after it is stored.
type ExpenseService struct{ *writer }

// ExpenseQuery filters List. Zero values mean "any".
type ExpenseQuery struct {
	Month      string
	CategoryID int64
	Type       core.ExpenseType
}

// NewExpense is the input of Create. Empty Month and Type default to the
// current month and spend.
type NewExpense struct {
	CategoryID  int64
	Amount      decimal.Decimal
	Description string
	Month       string
	Type        core.ExpenseType
}

// ExpenseUpdate changes the non-nil fields of an expense.
type ExpenseUpdate struct {
	CategoryID  *int64
	Amount      *decimal.Decimal
	Description *string
	Month       *string
	Type        *core.ExpenseType
}

func (s *ExpenseService) List(ctx context.Context, userID int64, q ExpenseQuery) ([]core.Expense, error) {
	if q.Month != "" && !core.ValidMonth(q.Month) {
		return nil, core.ErrInvalidMonth
	}
	if q.Type != "" && !q.Type.Valid() {
		return nil, core.ErrInvalidExpenseType
	}
	expenses, err := s.store.ListExpenses(ctx, storage.ExpenseFilter{
		UserID:     userID,
		CategoryID: q.CategoryID,
		Month:      q.Month,
		Type:       q.Type,
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *ExpenseService) Get(ctx context.Context, userID, expenseID int64) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, userID, expenseID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", expenseID, err)
	}
	return e, nil
}

// Create saves an expense in one of the user's categories.
func (s *ExpenseService) Create(ctx context.Context, userID int64, in NewExpense) (core.Expense, error) {
	e := core.Expense{
		UserID:      userID,
		CategoryID:  in.CategoryID,
		Amount:      core.NormalizeAmount(in.Amount),
		Description: strings.TrimSpace(in.Description),
		Month:       in.Month,
		Type:        in.Type,
	}
	if e.Month == "" {
		e.Month = s.currentMonth()
	}
	if e.Type == "" {
		e.Type = core.ExpenseSpend
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	cat, err := s.store.GetCategory(ctx, userID, e.CategoryID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get category %d: %w", e.CategoryID, err)
	}
	if err := s.store.CreateExpense(ctx, &e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.changed(ctx, userID, expenseEvent(core.EventExpenseCreated, e, cat.Name))
	return e, nil
}

func (s *ExpenseService) Update(ctx context.Context, userID, expenseID int64, upd ExpenseUpdate) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, userID, expenseID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", expenseID, err)
	}
	if upd.CategoryID != nil {
		e.CategoryID = *upd.CategoryID
	}
	if upd.Amount != nil {
		e.Amount = core.NormalizeAmount(*upd.Amount)
	}
	if upd.Description != nil {
		e.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Month != nil {
		e.Month = *upd.Month
	}
	if upd.Type != nil {
		e.Type = *upd.Type
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	cat, err := s.store.GetCategory(ctx, userID, e.CategoryID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get category %d: %w", e.CategoryID, err)
	}
	if err := s.store.UpdateExpense(ctx, &e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", expenseID, err)
	}

	s.changed(ctx, userID, expenseEvent(core.EventExpenseUpdated, e, cat.Name))
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID int64) error {
	e, err := s.store.GetExpense(ctx, userID, expenseID)
	if err != nil {
		return fmt.Errorf("get expense %d: %w", expenseID, err)
	}
	// The category may be gone already; the event then carries no label.
	var label string
	if cat, err := s.store.GetCategory(ctx, userID, e.CategoryID); err == nil {
		label = cat.Name
	}

	if err := s.store.DeleteExpense(ctx, userID, expenseID); err != nil {
		return fmt.Errorf("delete expense %d: %w", expenseID, err)
	}

	s.changed(ctx, userID, expenseEvent(core.EventExpenseDeleted, e, label))
	return nil
}

func expenseEvent(kind string, e core.Expense, category string) *core.LedgerEvent {
	return &core.LedgerEvent{
		Kind:        kind,
		EntityID:    e.ID,
		Category:    category,
		Amount:      core.FormatAmount(e.Amount),
		Description: e.Description,
		Month:       e.Month,
	}
}
