package core

import (
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryExpense CategoryType = "expense"
	CategorySavings CategoryType = "savings"

	ExpenseSpend      ExpenseType = "spend"
	ExpenseWithdrawal ExpenseType = "withdrawal"
)

// DefaultBudgetName is the budget every user receives at registration and the
// one preferred when resolving the current budget.
const DefaultBudgetName = "Monthly"

type (
	CategoryType string
	ExpenseType  string

	User struct {
		ID             int64
		FirstName      string
		LastName       string
		Email          string
		HashedPassword string
		SecurityAnswer string
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	Budget struct {
		ID        int64
		UserID    int64
		Name      string
		Amount    decimal.Decimal
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Category struct {
		ID        int64
		UserID    int64
		Name      string
		Type      CategoryType
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Allocation struct {
		ID              int64
		BudgetID        int64
		CategoryID      int64
		AllocatedAmount decimal.Decimal
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	// AllocationLine is an allocation joined to its category.
	AllocationLine struct {
		Allocation Allocation
		Category   Category
	}

	Expense struct {
		ID          int64
		UserID      int64
		CategoryID  int64
		Amount      decimal.Decimal
		Description string
		Month       string
		Type        ExpenseType
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// Transfer moves funds between two categories. A nil side is money
	// entering or leaving the tracked categories.
	Transfer struct {
		ID             int64
		UserID         int64
		FromCategoryID *int64
		ToCategoryID   *int64
		Amount         decimal.Decimal
		Description    string
		Month          string
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}
)

func (t CategoryType) Valid() bool {
	return t == CategoryExpense || t == CategorySavings
}

func (t ExpenseType) Valid() bool {
	return t == ExpenseSpend || t == ExpenseWithdrawal
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) Validate() error {
	if strings.TrimSpace(u.FirstName) == "" || strings.TrimSpace(u.LastName) == "" {
		return ErrEmptyName
	}
	if len(u.FirstName) > 100 || len(u.LastName) > 100 {
		return ErrNameTooLong
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func (b Budget) Validate() error {
	if err := validateName(b.Name); err != nil {
		return err
	}
	if b.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (c Category) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if !c.Type.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

func (a Allocation) Validate() error {
	if a.AllocatedAmount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if !ValidMonth(e.Month) {
		return ErrInvalidMonth
	}
	if !e.Type.Valid() {
		return ErrInvalidExpenseType
	}
	return nil
}

func (t Transfer) Validate() error {
	if t.FromCategoryID == nil && t.ToCategoryID == nil {
		return ErrTransferSides
	}
	if t.FromCategoryID != nil && t.ToCategoryID != nil && *t.FromCategoryID == *t.ToCategoryID {
		return ErrTransferSameSide
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if !ValidMonth(t.Month) {
		return ErrInvalidMonth
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return ErrNameTooLong
	}
	return nil
}
