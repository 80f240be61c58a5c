package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"bajeti/internal/cache"
	"bajeti/internal/core"
	"bajeti/internal/storage"
)

// Viewer opens a read-only scope on the store.
type Viewer interface {
	View(ctx context.Context, fn func(storage.Reader) error) error
}

// Reports computes the read-only aggregates: the budget overview and the
// per-category stats. It never writes.
type Reports struct {
	store     Viewer
	now       func() time.Time
	overviews *cache.Overviews
}

func NewReports(store Viewer) *Reports {
	return &Reports{store: store, now: time.Now}
}

// WithClock replaces the clock used to resolve the current month.
func (r *Reports) WithClock(now func() time.Time) *Reports {
	r.now = now
	return r
}

// WithOverviewCache serves overviews through c. Writers must call
// c.InvalidateUser after every change.
func (r *Reports) WithOverviewCache(c *cache.Overviews) *Reports {
	r.overviews = c
	return r
}

// BudgetOverview summarizes one budget of userID for month ("YYYY-MM", empty
// for the current UTC month).
func (r *Reports) BudgetOverview(ctx context.Context, userID, budgetID int64, month string) (core.BudgetOverview, error) {
	month, err := core.ResolveMonth(month, r.now())
	if err != nil {
		return core.BudgetOverview{}, err
	}

	load := func() (core.BudgetOverview, error) {
		return r.computeOverview(ctx, userID, budgetID, month)
	}
	if r.overviews == nil {
		return load()
	}

	ov, hit, err := r.overviews.Get(userID, budgetID, month, load)
	if err != nil {
		return core.BudgetOverview{}, err
	}
	slog.DebugContext(ctx, "Budget overview served", "budget_id", budgetID, "month", month, "cache_hit", hit)
	return ov, nil
}

func (r *Reports) computeOverview(ctx context.Context, userID, budgetID int64, month string) (core.BudgetOverview, error) {
	var ov core.BudgetOverview
	err := r.store.View(ctx, func(tx storage.Reader) error {
		budget, err := tx.GetBudget(ctx, userID, budgetID)
		if err != nil {
			return err
		}

		lines, err := tx.ListAllocationLines(ctx, userID, budgetID, core.CategoryExpense)
		if err != nil {
			return fmt.Errorf("list allocations: %w", err)
		}

		rows := make([]core.AllocationUsage, 0, len(lines))
		totalAllocated, totalSpent := decimal.Zero, decimal.Zero
		for _, line := range lines {
			spent, err := tx.SumExpenses(ctx, storage.ExpenseFilter{
				UserID:     userID,
				CategoryID: line.Category.ID,
				Month:      month,
				Type:       core.ExpenseSpend,
			})
			if err != nil {
				return fmt.Errorf("sum spend for category %d: %w", line.Category.ID, err)
			}

			allocated := line.Allocation.AllocatedAmount
			rows = append(rows, core.AllocationUsage{
				AllocationID:    line.Allocation.ID,
				CategoryID:      line.Category.ID,
				CategoryName:    line.Category.Name,
				AllocatedAmount: allocated,
				UsedAmount:      spent,
				RemainingAmount: allocated.Sub(spent),
				PercentUsed:     core.Percent(spent, allocated),
			})
			totalAllocated = totalAllocated.Add(allocated)
			totalSpent = totalSpent.Add(spent)
		}

		ov = core.BudgetOverview{
			Budget: core.OverviewBudget{
				ID:     budget.ID,
				Name:   budget.Name,
				Amount: budget.Amount,
				Month:  month,
			},
			Summary: core.OverviewSummary{
				TotalAllocated:     totalAllocated,
				Unallocated:        budget.Amount.Sub(totalAllocated),
				TotalSpent:         totalSpent,
				UtilizationPercent: core.Percent(totalSpent, budget.Amount),
			},
			Allocations: rows,
		}
		return nil
	})
	if err != nil {
		return core.BudgetOverview{}, fmt.Errorf("budget overview %d: %w", budgetID, err)
	}
	return ov, nil
}

// CategoriesWithStats returns the current month's stats for every expense
// category of userID.
func (r *Reports) CategoriesWithStats(ctx context.Context, userID int64) ([]core.CategoryStats, error) {
	return r.CategoryStatsForMonth(ctx, userID, core.CurrentMonth(r.now()))
}

// CategoryStatsForMonth is CategoriesWithStats for an explicit month.
//
// The allocated amount of a category comes from its lowest-id allocation in
// any of the user's budgets, unlike BudgetOverview which only looks at the
// requested budget.
func (r *Reports) CategoryStatsForMonth(ctx context.Context, userID int64, month string) ([]core.CategoryStats, error) {
	if !core.ValidMonth(month) {
		return nil, core.ErrInvalidMonth
	}

	var out []core.CategoryStats
	err := r.store.View(ctx, func(tx storage.Reader) error {
		all, err := tx.ListCategories(ctx, userID, "")
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		names := make(map[int64]string, len(all))
		for _, c := range all {
			names[c.ID] = c.Name
		}

		out = make([]core.CategoryStats, 0, len(all))
		for _, c := range all {
			if c.Type != core.CategoryExpense {
				continue
			}
			stats, err := categoryStats(ctx, tx, c, month, names)
			if err != nil {
				return err
			}
			out = append(out, stats)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	return out, nil
}

func categoryStats(ctx context.Context, tx storage.Reader, c core.Category, month string, names map[int64]string) (core.CategoryStats, error) {
	expenses, err := tx.ListExpenses(ctx, storage.ExpenseFilter{
		UserID:     c.UserID,
		CategoryID: c.ID,
		Month:      month,
		Type:       core.ExpenseSpend,
	})
	if err != nil {
		return core.CategoryStats{}, fmt.Errorf("list expenses of category %d: %w", c.ID, err)
	}

	in, err := tx.ListTransfers(ctx, storage.TransferFilter{UserID: c.UserID, ToCategoryID: c.ID, Month: month})
	if err != nil {
		return core.CategoryStats{}, fmt.Errorf("list incoming transfers of category %d: %w", c.ID, err)
	}
	out, err := tx.ListTransfers(ctx, storage.TransferFilter{UserID: c.UserID, FromCategoryID: c.ID, Month: month})
	if err != nil {
		return core.CategoryStats{}, fmt.Errorf("list outgoing transfers of category %d: %w", c.ID, err)
	}

	allocated := decimal.Zero
	switch a, err := tx.FirstAllocationForCategory(ctx, c.ID); {
	case err == nil:
		allocated = a.AllocatedAmount
	case !isNotFound(err):
		return core.CategoryStats{}, fmt.Errorf("allocation of category %d: %w", c.ID, err)
	}

	used := decimal.Zero
	for _, e := range expenses {
		used = used.Add(e.Amount)
	}
	stats := core.CategoryStats{
		ID:              c.ID,
		UserID:          c.UserID,
		Name:            c.Name,
		Type:            c.Type,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		AllocatedAmount: allocated,
		ExpenseCount:    len(expenses),
		Used:            used,
		Expenses:        expenses,
		TransfersIn:     withNames(in, names),
		TransfersOut:    withNames(out, names),
	}
	for _, t := range in {
		stats.TotalTransfersIn = stats.TotalTransfersIn.Add(t.Amount)
	}
	for _, t := range out {
		stats.TotalTransfersOut = stats.TotalTransfersOut.Add(t.Amount)
	}
	stats.Balance = allocated.Add(stats.NetTopUp()).Sub(used)
	return stats, nil
}

func withNames(transfers []core.Transfer, names map[int64]string) []core.TransferLine {
	lines := make([]core.TransferLine, 0, len(transfers))
	for _, t := range transfers {
		line := core.TransferLine{Transfer: t}
		if t.FromCategoryID != nil {
			line.FromCategoryName = names[*t.FromCategoryID]
		}
		if t.ToCategoryID != nil {
			line.ToCategoryName = names[*t.ToCategoryID]
		}
		lines = append(lines, line)
	}
	return lines
}
