package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bajeti/internal/core"
)

type BudgetService struct{ *writer }

// BudgetUpdate changes the non-nil fields of a budget.
type BudgetUpdate struct {
	Name   *string
	Amount *decimal.Decimal
}

func (s *BudgetService) List(ctx context.Context, userID int64) ([]core.Budget, error) {
	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

func (s *BudgetService) Get(ctx context.Context, userID, budgetID int64) (core.Budget, error) {
	b, err := s.store.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", budgetID, err)
	}
	return b, nil
}

// Current returns the user's default budget, falling back to the most
// recently created one.
func (s *BudgetService) Current(ctx context.Context, userID int64) (core.Budget, error) {
	b, err := s.store.FindBudgetByName(ctx, userID, core.DefaultBudgetName)
	if err == nil {
		return b, nil
	}
	if !isNotFound(err) {
		return core.Budget{}, fmt.Errorf("find default budget: %w", err)
	}

	b, err = s.store.LatestBudget(ctx, userID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("latest budget: %w", err)
	}
	return b, nil
}

func (s *BudgetService) Create(ctx context.Context, userID int64, name string, amount decimal.Decimal) (core.Budget, error) {
	b := core.Budget{UserID: userID, Name: strings.TrimSpace(name), Amount: core.NormalizeAmount(amount)}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.store.CreateBudget(ctx, &b); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	s.changed(ctx, userID, nil)
	return b, nil
}

func (s *BudgetService) Update(ctx context.Context, userID, budgetID int64, upd BudgetUpdate) (core.Budget, error) {
	b, err := s.store.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", budgetID, err)
	}
	if upd.Name != nil {
		b.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Amount != nil {
		b.Amount = core.NormalizeAmount(*upd.Amount)
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.store.UpdateBudget(ctx, &b); err != nil {
		return core.Budget{}, fmt.Errorf("update budget %d: %w", budgetID, err)
	}
	s.changed(ctx, userID, nil)
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, budgetID int64) error {
	if err := s.store.DeleteBudget(ctx, userID, budgetID); err != nil {
		return fmt.Errorf("delete budget %d: %w", budgetID, err)
	}
	s.changed(ctx, userID, nil)
	return nil
}
