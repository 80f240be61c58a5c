// Package storage defines the persistence ports of the budgeting domain.
//
// Implementations live in subpackages (sqlite, postgres, memory). All of them
// scope every read by owner, translate "no rows" into core.ErrNotFound and
// unique constraint violations into core.ErrConflict.
package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"bajeti/internal/core"
)

// ExpenseFilter narrows expense queries. Zero values mean "any".
type ExpenseFilter struct {
	UserID     int64
	CategoryID int64
	Month      string
	Type       core.ExpenseType
}

// TransferFilter narrows transfer queries. Zero values mean "any".
type TransferFilter struct {
	UserID         int64
	FromCategoryID int64
	ToCategoryID   int64
	Month          string
}

// Reader is the read side of the store. Every list is ordered by id
// ascending unless stated otherwise.
type Reader interface {
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)

	ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
	GetBudget(ctx context.Context, userID, budgetID int64) (core.Budget, error)
	FindBudgetByName(ctx context.Context, userID int64, name string) (core.Budget, error)
	// LatestBudget returns the most recently created budget of the user.
	LatestBudget(ctx context.Context, userID int64) (core.Budget, error)

	// ListCategories returns the user's categories, all types when typ is empty.
	ListCategories(ctx context.Context, userID int64, typ core.CategoryType) ([]core.Category, error)
	GetCategory(ctx context.Context, userID, categoryID int64) (core.Category, error)
	FindCategory(ctx context.Context, userID int64, name string, typ core.CategoryType) (core.Category, error)

	ListAllocations(ctx context.Context, budgetID int64) ([]core.Allocation, error)
	GetAllocation(ctx context.Context, budgetID, allocationID int64) (core.Allocation, error)
	FindAllocation(ctx context.Context, budgetID, categoryID int64) (core.Allocation, error)
	// ListAllocationLines joins the budget's allocations to the user's
	// categories of type typ, ordered by category id.
	ListAllocationLines(ctx context.Context, userID, budgetID int64, typ core.CategoryType) ([]core.AllocationLine, error)
	// FirstAllocationForCategory returns the lowest-id allocation of the
	// category across all budgets.
	FirstAllocationForCategory(ctx context.Context, categoryID int64) (core.Allocation, error)

	ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error)
	GetExpense(ctx context.Context, userID, expenseID int64) (core.Expense, error)
	SumExpenses(ctx context.Context, f ExpenseFilter) (decimal.Decimal, error)

	ListTransfers(ctx context.Context, f TransferFilter) ([]core.Transfer, error)
	GetTransfer(ctx context.Context, userID, transferID int64) (core.Transfer, error)
}

// Writer is the write side of the store. Create methods fill in ID and
// timestamps on the passed entity.
type Writer interface {
	// RegisterUser creates the user together with its first budget in one
	// transaction.
	RegisterUser(ctx context.Context, u *core.User, first *core.Budget) error
	UpdateUser(ctx context.Context, u *core.User) error

	CreateBudget(ctx context.Context, b *core.Budget) error
	UpdateBudget(ctx context.Context, b *core.Budget) error
	DeleteBudget(ctx context.Context, userID, budgetID int64) error

	CreateCategory(ctx context.Context, c *core.Category) error
	UpdateCategory(ctx context.Context, c *core.Category) error
	DeleteCategory(ctx context.Context, userID, categoryID int64) error

	CreateAllocation(ctx context.Context, a *core.Allocation) error
	UpdateAllocation(ctx context.Context, a *core.Allocation) error
	DeleteAllocation(ctx context.Context, budgetID, allocationID int64) error

	CreateExpense(ctx context.Context, e *core.Expense) error
	UpdateExpense(ctx context.Context, e *core.Expense) error
	DeleteExpense(ctx context.Context, userID, expenseID int64) error

	CreateTransfer(ctx context.Context, t *core.Transfer) error
	DeleteTransfer(ctx context.Context, userID, transferID int64) error
}

// Store is a complete persistence backend.
type Store interface {
	Reader
	Writer

	// View runs fn inside one read-only transaction. The transaction is
	// released when fn returns, whatever the outcome.
	View(ctx context.Context, fn func(Reader) error) error
	Ping(ctx context.Context) error
	Close() error
}
