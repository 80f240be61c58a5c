package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetOverview is the point-in-time summary of one budget for one month.
type BudgetOverview struct {
	Budget      OverviewBudget
	Summary     OverviewSummary
	Allocations []AllocationUsage
}

type OverviewBudget struct {
	ID     int64
	Name   string
	Amount decimal.Decimal
	Month  string
}

// OverviewSummary totals. Unallocated and every remaining amount are signed:
// negative values mean over-allocation or overspend.
type OverviewSummary struct {
	TotalAllocated     decimal.Decimal
	Unallocated        decimal.Decimal
	TotalSpent         decimal.Decimal
	UtilizationPercent decimal.Decimal
}

// AllocationUsage is one per-category row of a BudgetOverview.
type AllocationUsage struct {
	AllocationID    int64
	CategoryID      int64
	CategoryName    string
	AllocatedAmount decimal.Decimal
	UsedAmount      decimal.Decimal
	RemainingAmount decimal.Decimal
	PercentUsed     decimal.Decimal
}

// CategoryStats is the current month's usage of one expense category.
type CategoryStats struct {
	ID              int64
	UserID          int64
	Name            string
	Type            CategoryType
	CreatedAt       time.Time
	UpdatedAt       time.Time
	AllocatedAmount decimal.Decimal
	ExpenseCount    int
	Used            decimal.Decimal
	Balance         decimal.Decimal

	Expenses          []Expense
	TransfersIn       []TransferLine
	TransfersOut      []TransferLine
	TotalTransfersIn  decimal.Decimal
	TotalTransfersOut decimal.Decimal
}

// NetTopUp is incoming minus outgoing transfers.
func (s CategoryStats) NetTopUp() decimal.Decimal {
	return s.TotalTransfersIn.Sub(s.TotalTransfersOut)
}

// TransferLine is a transfer with the names of both sides resolved. A name is
// empty when its side is external.
type TransferLine struct {
	Transfer
	FromCategoryName string
	ToCategoryName   string
}
