package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"bajeti/internal/core"
)

// AllocationService manages allocations nested under a budget. Every
// operation first checks that the budget belongs to the user.
type AllocationService struct{ *writer }

func (s *AllocationService) ownBudget(ctx context.Context, userID, budgetID int64) error {
	if _, err := s.store.GetBudget(ctx, userID, budgetID); err != nil {
		return fmt.Errorf("get budget %d: %w", budgetID, err)
	}
	return nil
}

func (s *AllocationService) List(ctx context.Context, userID, budgetID int64) ([]core.Allocation, error) {
	if err := s.ownBudget(ctx, userID, budgetID); err != nil {
		return nil, err
	}
	allocs, err := s.store.ListAllocations(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	return allocs, nil
}

func (s *AllocationService) Get(ctx context.Context, userID, budgetID, allocationID int64) (core.Allocation, error) {
	if err := s.ownBudget(ctx, userID, budgetID); err != nil {
		return core.Allocation{}, err
	}
	a, err := s.store.GetAllocation(ctx, budgetID, allocationID)
	if err != nil {
		return core.Allocation{}, fmt.Errorf("get allocation %d: %w", allocationID, err)
	}
	return a, nil
}

func (s *AllocationService) Create(ctx context.Context, userID, budgetID, categoryID int64, amount decimal.Decimal) (core.Allocation, error) {
	if err := s.ownBudget(ctx, userID, budgetID); err != nil {
		return core.Allocation{}, err
	}
	if _, err := s.store.GetCategory(ctx, userID, categoryID); err != nil {
		return core.Allocation{}, fmt.Errorf("get category %d: %w", categoryID, err)
	}

	a := core.Allocation{BudgetID: budgetID, CategoryID: categoryID, AllocatedAmount: core.NormalizeAmount(amount)}
	if err := a.Validate(); err != nil {
		return core.Allocation{}, err
	}
	if err := s.store.CreateAllocation(ctx, &a); err != nil {
		return core.Allocation{}, fmt.Errorf("create allocation: %w", err)
	}
	s.changed(ctx, userID, nil)
	return a, nil
}

func (s *AllocationService) Update(ctx context.Context, userID, budgetID, allocationID int64, amount decimal.Decimal) (core.Allocation, error) {
	a, err := s.Get(ctx, userID, budgetID, allocationID)
	if err != nil {
		return core.Allocation{}, err
	}
	a.AllocatedAmount = core.NormalizeAmount(amount)
	if err := a.Validate(); err != nil {
		return core.Allocation{}, err
	}
	if err := s.store.UpdateAllocation(ctx, &a); err != nil {
		return core.Allocation{}, fmt.Errorf("update allocation %d: %w", allocationID, err)
	}
	s.changed(ctx, userID, nil)
	return a, nil
}

func (s *AllocationService) Delete(ctx context.Context, userID, budgetID, allocationID int64) error {
	if err := s.ownBudget(ctx, userID, budgetID); err != nil {
		return err
	}
	if err := s.store.DeleteAllocation(ctx, budgetID, allocationID); err != nil {
		return fmt.Errorf("delete allocation %d: %w", allocationID, err)
	}
	s.changed(ctx, userID, nil)
	return nil
}
