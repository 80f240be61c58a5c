package api

import "bajeti/internal/core"

func FromUser(u core.User) User {
	return User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func FromBudget(b core.Budget) Budget {
	return Budget{
		ID:        b.ID,
		UserID:    b.UserID,
		Name:      b.Name,
		Amount:    money(b.Amount),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func FromCategory(c core.Category) Category {
	return Category{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		Type:      string(c.Type),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func FromAllocation(a core.Allocation) Allocation {
	return Allocation{
		ID:              a.ID,
		BudgetID:        a.BudgetID,
		CategoryID:      a.CategoryID,
		AllocatedAmount: money(a.AllocatedAmount),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func FromExpense(e core.Expense) Expense {
	return Expense{
		ID:          e.ID,
		UserID:      e.UserID,
		CategoryID:  e.CategoryID,
		Amount:      money(e.Amount),
		Description: e.Description,
		Month:       e.Month,
		Type:        string(e.Type),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func FromTransfer(t core.Transfer) Transfer {
	return Transfer{
		ID:             t.ID,
		UserID:         t.UserID,
		FromCategoryID: t.FromCategoryID,
		ToCategoryID:   t.ToCategoryID,
		Amount:         money(t.Amount),
		Description:    t.Description,
		Month:          t.Month,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func fromTransferLine(l core.TransferLine) TransferLine {
	line := TransferLine{Transfer: FromTransfer(l.Transfer)}
	if l.FromCategoryID != nil {
		name := l.FromCategoryName
		line.FromCategoryName = &name
	}
	if l.ToCategoryID != nil {
		name := l.ToCategoryName
		line.ToCategoryName = &name
	}
	return line
}

func FromOverview(ov core.BudgetOverview) BudgetOverview {
	out := BudgetOverview{
		Budget: OverviewBudget{
			ID:     ov.Budget.ID,
			Name:   ov.Budget.Name,
			Amount: money(ov.Budget.Amount),
			Month:  ov.Budget.Month,
		},
		Summary: OverviewSummary{
			TotalAllocated:     money(ov.Summary.TotalAllocated),
			Unallocated:        money(ov.Summary.Unallocated),
			TotalSpent:         money(ov.Summary.TotalSpent),
			UtilizationPercent: percent(ov.Summary.UtilizationPercent),
		},
		Allocations: make([]AllocationUsage, 0, len(ov.Allocations)),
	}
	for _, a := range ov.Allocations {
		out.Allocations = append(out.Allocations, AllocationUsage{
			AllocationID:    a.AllocationID,
			CategoryID:      a.CategoryID,
			CategoryName:    a.CategoryName,
			AllocatedAmount: money(a.AllocatedAmount),
			UsedAmount:      money(a.UsedAmount),
			RemainingAmount: money(a.RemainingAmount),
			PercentUsed:     percent(a.PercentUsed),
		})
	}
	return out
}

func FromCategoryStats(s core.CategoryStats) CategoryStats {
	return CategoryStats{
		ID:                s.ID,
		Name:              s.Name,
		Type:              string(s.Type),
		AllocatedAmount:   money(s.AllocatedAmount),
		UserID:            s.UserID,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
		ExpenseCount:      s.ExpenseCount,
		Balance:           money(s.Balance),
		Expenses:          Map(s.Expenses, FromExpense),
		Used:              money(s.Used),
		TransfersIn:       Map(s.TransfersIn, fromTransferLine),
		TransfersOut:      Map(s.TransfersOut, fromTransferLine),
		TotalTransfersIn:  money(s.TotalTransfersIn),
		TotalTransfersOut: money(s.TotalTransfersOut),
	}
}

// Map converts every element of in. The result is never nil so empty lists
// encode as [].
func Map[T, U any](in []T, fn func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
