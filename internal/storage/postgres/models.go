package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"bajeti/internal/core"
)

type userModel struct {
	ID             int64  `gorm:"primaryKey"`
	FirstName      string `gorm:"size:100;not null"`
	LastName       string `gorm:"size:100;not null"`
	Email          string `gorm:"size:255;not null;uniqueIndex"`
	HashedPassword string `gorm:"size:255;not null"`
	SecurityAnswer string `gorm:"size:255;not null;default:''"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (userModel) TableName() string { return "users" }

type budgetModel struct {
	ID        int64           `gorm:"primaryKey"`
	UserID    int64           `gorm:"not null;uniqueIndex:idx_budgets_user_name"`
	User      *userModel      `gorm:"constraint:OnDelete:CASCADE;"`
	Name      string          `gorm:"size:100;not null;uniqueIndex:idx_budgets_user_name"`
	Amount    decimal.Decimal `gorm:"type:NUMERIC(20,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (budgetModel) TableName() string { return "budgets" }

type categoryModel struct {
	ID        int64      `gorm:"primaryKey"`
	UserID    int64      `gorm:"not null;uniqueIndex:idx_categories_user_name_type"`
	User      *userModel `gorm:"constraint:OnDelete:CASCADE;"`
	Name      string     `gorm:"size:100;not null;uniqueIndex:idx_categories_user_name_type"`
	Type      string     `gorm:"size:16;not null;default:expense;uniqueIndex:idx_categories_user_name_type;check:chk_categories_type,type IN ('expense','savings')"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (categoryModel) TableName() string { return "categories" }

type allocationModel struct {
	ID              int64           `gorm:"primaryKey"`
	BudgetID        int64           `gorm:"not null;uniqueIndex:idx_allocations_budget_category"`
	Budget          *budgetModel    `gorm:"constraint:OnDelete:CASCADE;"`
	CategoryID      int64           `gorm:"not null;index;uniqueIndex:idx_allocations_budget_category"`
	Category        *categoryModel  `gorm:"constraint:OnDelete:CASCADE;"`
	AllocatedAmount decimal.Decimal `gorm:"type:NUMERIC(20,2);not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (allocationModel) TableName() string { return "allocations" }

type expenseModel struct {
	ID          int64           `gorm:"primaryKey"`
	UserID      int64           `gorm:"not null;index:idx_expenses_user_month"`
	User        *userModel      `gorm:"constraint:OnDelete:CASCADE;"`
	CategoryID  int64           `gorm:"not null;index"`
	Category    *categoryModel  `gorm:"constraint:OnDelete:CASCADE;"`
	Amount      decimal.Decimal `gorm:"type:NUMERIC(20,2);not null"`
	Description string          `gorm:"size:200;not null;default:''"`
	Month       string          `gorm:"size:7;not null;index:idx_expenses_user_month"`
	Type        string          `gorm:"size:16;not null;default:spend;check:chk_expenses_type,type IN ('spend','withdrawal')"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (expenseModel) TableName() string { return "expenses" }

type transferModel struct {
	ID             int64           `gorm:"primaryKey"`
	UserID         int64           `gorm:"not null;index:idx_transfers_user_month"`
	User           *userModel      `gorm:"constraint:OnDelete:CASCADE;"`
	FromCategoryID *int64          `gorm:"index"`
	FromCategory   *categoryModel  `gorm:"foreignKey:FromCategoryID;constraint:OnDelete:SET NULL;"`
	ToCategoryID   *int64          `gorm:"index"`
	ToCategory     *categoryModel  `gorm:"foreignKey:ToCategoryID;constraint:OnDelete:SET NULL;"`
	Amount         decimal.Decimal `gorm:"type:NUMERIC(20,2);not null"`
	Description    string          `gorm:"size:200;not null;default:''"`
	Month          string          `gorm:"size:7;not null;index:idx_transfers_user_month"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (transferModel) TableName() string { return "transfers" }

func allModels() []any {
	return []any{
		&userModel{},
		&budgetModel{},
		&categoryModel{},
		&allocationModel{},
		&expenseModel{},
		&transferModel{},
	}
}

func (m userModel) toCore() core.User {
	return core.User{
		ID: m.ID, FirstName: m.FirstName, LastName: m.LastName, Email: m.Email,
		HashedPassword: m.HashedPassword, SecurityAnswer: m.SecurityAnswer,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func fromUser(u core.User) userModel {
	return userModel{
		ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email,
		HashedPassword: u.HashedPassword, SecurityAnswer: u.SecurityAnswer,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (m budgetModel) toCore() core.Budget {
	return core.Budget{ID: m.ID, UserID: m.UserID, Name: m.Name, Amount: m.Amount, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func fromBudget(b core.Budget) budgetModel {
	return budgetModel{ID: b.ID, UserID: b.UserID, Name: b.Name, Amount: b.Amount, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt}
}

func (m categoryModel) toCore() core.Category {
	return core.Category{ID: m.ID, UserID: m.UserID, Name: m.Name, Type: core.CategoryType(m.Type), CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func fromCategory(c core.Category) categoryModel {
	return categoryModel{ID: c.ID, UserID: c.UserID, Name: c.Name, Type: string(c.Type), CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func (m allocationModel) toCore() core.Allocation {
	return core.Allocation{ID: m.ID, BudgetID: m.BudgetID, CategoryID: m.CategoryID, AllocatedAmount: m.AllocatedAmount, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func fromAllocation(a core.Allocation) allocationModel {
	return allocationModel{ID: a.ID, BudgetID: a.BudgetID, CategoryID: a.CategoryID, AllocatedAmount: a.AllocatedAmount, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt}
}

func (m expenseModel) toCore() core.Expense {
	return core.Expense{
		ID: m.ID, UserID: m.UserID, CategoryID: m.CategoryID, Amount: m.Amount, Description: m.Description,
		Month: m.Month, Type: core.ExpenseType(m.Type), CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func fromExpense(e core.Expense) expenseModel {
	return expenseModel{
		ID: e.ID, UserID: e.UserID, CategoryID: e.CategoryID, Amount: e.Amount, Description: e.Description,
		Month: e.Month, Type: string(e.Type), CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
	}
}

func (m transferModel) toCore() core.Transfer {
	return core.Transfer{
		ID: m.ID, UserID: m.UserID, FromCategoryID: m.FromCategoryID, ToCategoryID: m.ToCategoryID,
		Amount: m.Amount, Description: m.Description, Month: m.Month, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func fromTransfer(t core.Transfer) transferModel {
	return transferModel{
		ID: t.ID, UserID: t.UserID, FromCategoryID: t.FromCategoryID, ToCategoryID: t.ToCategoryID,
		Amount: t.Amount, Description: t.Description, Month: t.Month, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

func mapSlice[M any, T any](in []M, conv func(M) T) []T {
	out := make([]T, 0, len(in))
	for _, m := range in {
		out = append(out, conv(m))
	}
	return out
}
