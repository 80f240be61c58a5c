package services

import (
	"context"
	"errors"
	"testing"

	"bajeti/internal/core"
	"bajeti/internal/storage/memory"
	"bajeti/internal/storage/storagetest"
)

func TestBudgetService_Current(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := New(Deps{Store: s, Now: clock})
	u, monthly := storagetest.MustUser(t, s, "current@example.com")

	if _, err := svc.Budgets.Create(ctx, u.ID, "Holidays", dec("300")); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := svc.Budgets.Current(ctx, u.ID)
	if err != nil || got.ID != monthly.ID {
		t.Fatalf("expected the default budget, got %+v %v", got, err)
	}

	if err := svc.Budgets.Delete(ctx, u.ID, monthly.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = svc.Budgets.Current(ctx, u.ID)
	if err != nil || got.Name != "Holidays" {
		t.Fatalf("expected fallback to latest budget, got %+v %v", got, err)
	}

	empty, _ := storagetest.MustUser(t, s, "nobudget@example.com")
	b, _ := svc.Budgets.Current(ctx, empty.ID)
	if err := svc.Budgets.Delete(ctx, empty.ID, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Budgets.Current(ctx, empty.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBudgetService_CreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := New(Deps{Store: s, Now: clock})
	u, _ := storagetest.MustUser(t, s, "budgets@example.com")

	tests := []struct {
		name   string
		budget string
		amount string
		want   error
	}{
		{"duplicate name", core.DefaultBudgetName, "10", core.ErrConflict},
		{"blank name", "   ", "10", core.ErrValidation},
		{"negative amount", "Car", "-1", core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Budgets.Create(ctx, u.ID, tt.budget, dec(tt.amount)); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	car, err := svc.Budgets.Create(ctx, u.ID, "Car", dec("99.999"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	assertDec(t, "rounded amount", car.Amount, "100")

	if _, err := svc.Budgets.Update(ctx, u.ID, car.ID, BudgetUpdate{Name: ptr(core.DefaultBudgetName)}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected rename conflict, got %v", err)
	}
	updated, err := svc.Budgets.Update(ctx, u.ID, car.ID, BudgetUpdate{Amount: ptr(dec("250"))})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	assertDec(t, "amount", updated.Amount, "250")
}

func TestCategoryService(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := New(Deps{Store: s, Now: clock})
	u, _ := storagetest.MustUser(t, s, "cats@example.com")

	food, err := svc.Categories.Create(ctx, u.ID, "Food", core.CategoryExpense)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Categories.Create(ctx, u.ID, "Food", core.CategoryExpense); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := svc.Categories.Create(ctx, u.ID, "Food", core.CategorySavings); err != nil {
		t.Fatalf("same name with another type must be allowed: %v", err)
	}
	if _, err := svc.Categories.Create(ctx, u.ID, "Loans", "debt"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	savings, err := svc.Categories.List(ctx, u.ID, core.CategorySavings)
	if err != nil || len(savings) != 1 {
		t.Fatalf("list savings: %v %v", savings, err)
	}
	if _, err := svc.Categories.List(ctx, u.ID, "debt"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for type filter, got %v", err)
	}

	renamed, err := svc.Categories.Update(ctx, u.ID, food.ID, CategoryUpdate{Name: ptr("Groceries")})
	if err != nil || renamed.Name != "Groceries" {
		t.Fatalf("rename: %+v %v", renamed, err)
	}
	if err := svc.Categories.Delete(ctx, u.ID, food.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Categories.Get(ctx, u.ID, food.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAllocationService_Ownership(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	svc := New(Deps{Store: s, Now: clock})
	u, b := storagetest.MustUser(t, s, "alloc@example.com")
	other, otherBudget := storagetest.MustUser(t, s, "alloc2@example.com")
	cat := storagetest.MustCategory(t, s, u.ID, "Rent", core.CategoryExpense)
	otherCat := storagetest.MustCategory(t, s, other.ID, "Rent", core.CategoryExpense)

	tests := []struct {
		name       string
		budgetID   int64
		categoryID int64
		want       error
	}{
		{"foreign budget", otherBudget.ID, cat.ID, core.ErrNotFound},
		{"foreign category", b.ID, otherCat.ID, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Allocations.Create(ctx, u.ID, tt.budgetID, tt.categoryID, dec("1")); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	a, err := svc.Allocations.Create(ctx, u.ID, b.ID, cat.ID, dec("600"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = svc.Allocations.Create(ctx, u.ID, b.ID, cat.ID, dec("10"))
	if !errors.Is(err, core.ErrConflict) || core.Detail(err, "") != "Category already allocated in this budget" {
		t.Fatalf("expected duplicate allocation conflict, got %v", err)
	}

	if _, err := svc.Allocations.Get(ctx, other.ID, b.ID, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for foreign user, got %v", err)
	}
	updated, err := svc.Allocations.Update(ctx, u.ID, b.ID, a.ID, dec("650"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	assertDec(t, "allocated", updated.AllocatedAmount, "650")
	if err := svc.Allocations.Delete(ctx, u.ID, b.ID, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestTransferService(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	pub := &recordingPublisher{}
	svc := New(Deps{Store: s, Publisher: pub, Now: clock})
	u, _ := storagetest.MustUser(t, s, "moves@example.com")
	other, _ := storagetest.MustUser(t, s, "moves2@example.com")
	food := storagetest.MustCategory(t, s, u.ID, "Food", core.CategoryExpense)
	fun := storagetest.MustCategory(t, s, u.ID, "Fun", core.CategoryExpense)
	foreign := storagetest.MustCategory(t, s, other.ID, "Fun", core.CategoryExpense)

	tests := []struct {
		name string
		in   NewTransfer
		want error
	}{
		{"no sides", NewTransfer{Amount: dec("5")}, core.ErrValidation},
		{"same side", NewTransfer{FromCategoryID: ptr(food.ID), ToCategoryID: ptr(food.ID), Amount: dec("5")}, core.ErrValidation},
		{"zero amount", NewTransfer{ToCategoryID: ptr(food.ID), Amount: dec("0")}, core.ErrValidation},
		{"foreign side", NewTransfer{FromCategoryID: ptr(foreign.ID), ToCategoryID: ptr(food.ID), Amount: dec("5")}, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Transfers.Create(ctx, u.ID, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	tr, err := svc.Transfers.Create(ctx, u.ID, NewTransfer{FromCategoryID: ptr(fun.ID), ToCategoryID: ptr(food.ID), Amount: dec("25")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tr.Month != thisMonth {
		t.Errorf("month = %s", tr.Month)
	}
	topUp, err := svc.Transfers.Create(ctx, u.ID, NewTransfer{ToCategoryID: ptr(food.ID), Amount: dec("10"), Month: "2025-01"})
	if err != nil {
		t.Fatalf("create external: %v", err)
	}

	march, err := svc.Transfers.List(ctx, u.ID, thisMonth)
	if err != nil || len(march) != 1 {
		t.Fatalf("list month: %v %v", march, err)
	}
	if err := svc.Transfers.Delete(ctx, u.ID, topUp.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(pub.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(pub.events))
	}
	if got := pub.events[0].Category; got != "Fun -> Food" {
		t.Errorf("category label = %q", got)
	}
	if got := pub.events[2]; got.Kind != core.EventTransferDeleted || got.Category != "external -> Food" {
		t.Errorf("unexpected delete event %+v", got)
	}
}
