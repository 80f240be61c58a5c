package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func ptr(v int64) *int64 { return &v }

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		UserID:     1,
		CategoryID: 2,
		Amount:     decimal.RequireFromString("12.50"),
		Month:      "2025-03",
		Type:       ExpenseSpend,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"zero amount", func(e *Expense) { e.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(e *Expense) { e.Amount = decimal.NewFromInt(-1) }, ErrInvalidAmount},
		{"bad month", func(e *Expense) { e.Month = "2025-3" }, ErrInvalidMonth},
		{"bad type", func(e *Expense) { e.Type = "refund" }, ErrInvalidExpenseType},
		{"long description", func(e *Expense) { e.Description = strings.Repeat("x", 201) }, ErrDescriptionTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := good
			tc.mutate(&e)
			if err := e.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestTransferValidate(t *testing.T) {
	cases := []struct {
		name string
		tr   Transfer
		want error
	}{
		{"incoming", Transfer{ToCategoryID: ptr(1), Amount: decimal.NewFromInt(5), Month: "2025-01"}, nil},
		{"outgoing", Transfer{FromCategoryID: ptr(1), Amount: decimal.NewFromInt(5), Month: "2025-01"}, nil},
		{"between", Transfer{FromCategoryID: ptr(1), ToCategoryID: ptr(2), Amount: decimal.NewFromInt(5), Month: "2025-01"}, nil},
		{"no sides", Transfer{Amount: decimal.NewFromInt(5), Month: "2025-01"}, ErrTransferSides},
		{"same side", Transfer{FromCategoryID: ptr(3), ToCategoryID: ptr(3), Amount: decimal.NewFromInt(5), Month: "2025-01"}, ErrTransferSameSide},
		{"zero amount", Transfer{ToCategoryID: ptr(1), Month: "2025-01"}, ErrInvalidAmount},
		{"bad month", Transfer{ToCategoryID: ptr(1), Amount: decimal.NewFromInt(5), Month: "january"}, ErrInvalidMonth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tr.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBudgetAndCategoryValidate(t *testing.T) {
	if err := (Budget{Name: "Monthly"}).Validate(); err != nil {
		t.Fatalf("zero amount budget should be valid, got %v", err)
	}
	if err := (Budget{Name: " "}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := (Budget{Name: "x", Amount: decimal.NewFromInt(-1)}).Validate(); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if err := (Category{Name: "Rent", Type: "income"}).Validate(); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if err := (Category{Name: "Rent", Type: CategoryExpense}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestUserValidate(t *testing.T) {
	u := User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	if err := u.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	u.Email = "not-an-email"
	if err := u.Validate(); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestErrorDetail(t *testing.T) {
	err := NotFound("Budget not found")
	wrapped := errors.Join(errors.New("context"), err)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Fatal("expected wrapped error to match ErrNotFound")
	}
	if got := Detail(wrapped, "fallback"); got != "Budget not found" {
		t.Fatalf("got %q", got)
	}
	if got := Detail(errors.New("boom"), "fallback"); got != "fallback" {
		t.Fatalf("got %q", got)
	}
}
