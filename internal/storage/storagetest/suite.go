// Package storagetest is a conformance suite run against every Store
// implementation.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"bajeti/internal/core"
	"bajeti/internal/storage"
)

// Factory returns an empty store. It owns cleanup through t.Cleanup.
type Factory func(t *testing.T) storage.Store

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"RegisterSeedsBudget", testRegisterSeedsBudget},
		{"DuplicateEmail", testDuplicateEmail},
		{"BudgetScoping", testBudgetScoping},
		{"BudgetNameConflict", testBudgetNameConflict},
		{"LatestBudget", testLatestBudget},
		{"CategoryUniqueness", testCategoryUniqueness},
		{"AllocationUniqueness", testAllocationUniqueness},
		{"AllocationLines", testAllocationLines},
		{"FirstAllocationForCategory", testFirstAllocationForCategory},
		{"ExpenseFiltersAndSum", testExpenseFiltersAndSum},
		{"TransferFilters", testTransferFilters},
		{"DeleteBudgetCascades", testDeleteBudgetCascades},
		{"DeleteCategoryDetachesTransfers", testDeleteCategoryDetachesTransfers},
		{"ViewReadsConsistently", testView},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func id(v int64) *int64 { return &v }

// MustUser registers a user with a "Monthly" budget of the given amount.
func MustUser(t *testing.T, s storage.Store, email string) (core.User, core.Budget) {
	t.Helper()
	u := core.User{FirstName: "Test", LastName: "User", Email: email, HashedPassword: "x", SecurityAnswer: "blue"}
	b := core.Budget{Name: core.DefaultBudgetName, Amount: decimal.Zero}
	if err := s.RegisterUser(context.Background(), &u, &b); err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u, b
}

func MustCategory(t *testing.T, s storage.Store, userID int64, name string, typ core.CategoryType) core.Category {
	t.Helper()
	c := core.Category{UserID: userID, Name: name, Type: typ}
	if err := s.CreateCategory(context.Background(), &c); err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c
}

func MustAllocation(t *testing.T, s storage.Store, budgetID, categoryID int64, amount string) core.Allocation {
	t.Helper()
	a := core.Allocation{BudgetID: budgetID, CategoryID: categoryID, AllocatedAmount: dec(amount)}
	if err := s.CreateAllocation(context.Background(), &a); err != nil {
		t.Fatalf("create allocation: %v", err)
	}
	return a
}

func MustExpense(t *testing.T, s storage.Store, userID, categoryID int64, amount, month string, typ core.ExpenseType) core.Expense {
	t.Helper()
	e := core.Expense{UserID: userID, CategoryID: categoryID, Amount: dec(amount), Month: month, Type: typ}
	if err := s.CreateExpense(context.Background(), &e); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return e
}

func MustTransfer(t *testing.T, s storage.Store, userID int64, from, to *int64, amount, month string) core.Transfer {
	t.Helper()
	tr := core.Transfer{UserID: userID, FromCategoryID: from, ToCategoryID: to, Amount: dec(amount), Month: month}
	if err := s.CreateTransfer(context.Background(), &tr); err != nil {
		t.Fatalf("create transfer: %v", err)
	}
	return tr
}

func testRegisterSeedsBudget(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, b := MustUser(t, s, "ada@example.com")
	if u.ID == 0 || b.ID == 0 || b.UserID != u.ID {
		t.Fatalf("ids not assigned: user=%+v budget=%+v", u, b)
	}
	got, err := s.FindBudgetByName(ctx, u.ID, core.DefaultBudgetName)
	if err != nil {
		t.Fatalf("find seeded budget: %v", err)
	}
	if got.ID != b.ID || !got.Amount.IsZero() {
		t.Fatalf("unexpected seeded budget %+v", got)
	}
	byEmail, err := s.GetUserByEmail(ctx, "ada@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("get by email: %+v %v", byEmail, err)
	}
}

func testDuplicateEmail(t *testing.T, s storage.Store) {
	MustUser(t, s, "dup@example.com")
	u := core.User{FirstName: "A", LastName: "B", Email: "dup@example.com", HashedPassword: "x"}
	err := s.RegisterUser(context.Background(), &u, &core.Budget{Name: core.DefaultBudgetName})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func testBudgetScoping(t *testing.T, s storage.Store) {
	ctx := context.Background()
	_, ownBudget := MustUser(t, s, "owner@example.com")
	intruder, _ := MustUser(t, s, "intruder@example.com")

	if _, err := s.GetBudget(ctx, intruder.ID, ownBudget.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for foreign budget, got %v", err)
	}
	if _, err := s.GetBudget(ctx, intruder.ID, 987654); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for missing budget, got %v", err)
	}
	if err := s.DeleteBudget(ctx, intruder.ID, ownBudget.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found deleting foreign budget, got %v", err)
	}
}

func testBudgetNameConflict(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, _ := MustUser(t, s, "names@example.com")
	b := core.Budget{UserID: u.ID, Name: core.DefaultBudgetName, Amount: dec("10")}
	if err := s.CreateBudget(ctx, &b); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	other, _ := MustUser(t, s, "other-names@example.com")
	b = core.Budget{UserID: other.ID, Name: "Holiday", Amount: dec("10")}
	if err := s.CreateBudget(ctx, &b); err != nil {
		t.Fatalf("create: %v", err)
	}
	b.Name = core.DefaultBudgetName
	if err := s.UpdateBudget(ctx, &b); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected rename conflict, got %v", err)
	}
}

func testLatestBudget(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, _ := MustUser(t, s, "latest@example.com")
	b := core.Budget{UserID: u.ID, Name: "Holiday", Amount: dec("300")}
	if err := s.CreateBudget(ctx, &b); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.LatestBudget(ctx, u.ID)
	if err != nil || got.ID != b.ID {
		t.Fatalf("expected latest %d, got %+v (%v)", b.ID, got, err)
	}
	nobody, err := s.LatestBudget(ctx, 424242)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %+v %v", nobody, err)
	}
}

func testCategoryUniqueness(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, _ := MustUser(t, s, "cats@example.com")
	MustCategory(t, s, u.ID, "Rent", core.CategoryExpense)
	// Same name with another type is allowed.
	MustCategory(t, s, u.ID, "Rent", core.CategorySavings)

	dup := core.Category{UserID: u.ID, Name: "Rent", Type: core.CategoryExpense}
	if err := s.CreateCategory(ctx, &dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	all, err := s.ListCategories(ctx, u.ID, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 categories, got %d (%v)", len(all), err)
	}
	savings, err := s.ListCategories(ctx, u.ID, core.CategorySavings)
	if err != nil || len(savings) != 1 || savings[0].Type != core.CategorySavings {
		t.Fatalf("unexpected savings list %+v (%v)", savings, err)
	}
}

func testAllocationUniqueness(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, b := MustUser(t, s, "alloc@example.com")
	c := MustCategory(t, s, u.ID, "Food", core.CategoryExpense)
	a := MustAllocation(t, s, b.ID, c.ID, "200")

	dup := core.Allocation{BudgetID: b.ID, CategoryID: c.ID, AllocatedAmount: dec("1")}
	if err := s.CreateAllocation(ctx, &dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	a.AllocatedAmount = dec("250.50")
	if err := s.UpdateAllocation(ctx, &a); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetAllocation(ctx, b.ID, a.ID)
	if err != nil || !got.AllocatedAmount.Equal(dec("250.50")) || got.CategoryID != c.ID {
		t.Fatalf("unexpected allocation %+v (%v)", got, err)
	}
	if _, err := s.FindAllocation(ctx, b.ID, c.ID); err != nil {
		t.Fatalf("find: %v", err)
	}
}

func testAllocationLines(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, b := MustUser(t, s, "lines@example.com")
	rent := MustCategory(t, s, u.ID, "Rent", core.CategoryExpense)
	food := MustCategory(t, s, u.ID, "Food", core.CategoryExpense)
	pot := MustCategory(t, s, u.ID, "Pot", core.CategorySavings)
	// Allocate out of category order to check sorting.
	MustAllocation(t, s, b.ID, food.ID, "100")
	MustAllocation(t, s, b.ID, pot.ID, "50")
	MustAllocation(t, s, b.ID, rent.ID, "600")

	lines, err := s.ListAllocationLines(ctx, u.ID, b.ID, core.CategoryExpense)
	if err != nil {
		t.Fatalf("lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 expense lines, got %d", len(lines))
	}
	if lines[0].Category.ID != rent.ID || lines[1].Category.ID != food.ID {
		t.Fatalf("lines not ordered by category id: %d, %d", lines[0].Category.ID, lines[1].Category.ID)
	}
	if lines[0].Category.Name != "Rent" || !lines[0].Allocation.AllocatedAmount.Equal(dec("600")) {
		t.Fatalf("unexpected first line %+v", lines[0])
	}

	other, _ := MustUser(t, s, "lines-other@example.com")
	foreign, err := s.ListAllocationLines(ctx, other.ID, b.ID, core.CategoryExpense)
	if err != nil || len(foreign) != 0 {
		t.Fatalf("expected no lines for another user, got %d (%v)", len(foreign), err)
	}
}

func testFirstAllocationForCategory(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, monthly := MustUser(t, s, "first@example.com")
	c := MustCategory(t, s, u.ID, "Fun", core.CategoryExpense)
	if _, err := s.FirstAllocationForCategory(ctx, c.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	holiday := core.Budget{UserID: u.ID, Name: "Holiday", Amount: dec("100")}
	if err := s.CreateBudget(ctx, &holiday); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	first := MustAllocation(t, s, holiday.ID, c.ID, "30")
	MustAllocation(t, s, monthly.ID, c.ID, "80")

	got, err := s.FirstAllocationForCategory(ctx, c.ID)
	if err != nil || got.ID != first.ID {
		t.Fatalf("expected allocation %d, got %+v (%v)", first.ID, got, err)
	}
}

func testExpenseFiltersAndSum(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, _ := MustUser(t, s, "exp@example.com")
	c1 := MustCategory(t, s, u.ID, "Food", core.CategoryExpense)
	c2 := MustCategory(t, s, u.ID, "Fuel", core.CategoryExpense)
	MustExpense(t, s, u.ID, c1.ID, "0.10", "2025-03", core.ExpenseSpend)
	MustExpense(t, s, u.ID, c1.ID, "0.20", "2025-03", core.ExpenseSpend)
	MustExpense(t, s, u.ID, c1.ID, "5", "2025-03", core.ExpenseWithdrawal)
	MustExpense(t, s, u.ID, c1.ID, "7", "2025-02", core.ExpenseSpend)
	MustExpense(t, s, u.ID, c2.ID, "9", "2025-03", core.ExpenseSpend)

	f := storage.ExpenseFilter{UserID: u.ID, CategoryID: c1.ID, Month: "2025-03", Type: core.ExpenseSpend}
	sum, err := s.SumExpenses(ctx, f)
	if err != nil || !sum.Equal(dec("0.3")) {
		t.Fatalf("expected exact 0.3, got %s (%v)", sum, err)
	}
	list, err := s.ListExpenses(ctx, f)
	if err != nil || len(list) != 2 || list[0].ID > list[1].ID {
		t.Fatalf("unexpected list %+v (%v)", list, err)
	}

	all, err := s.ListExpenses(ctx, storage.ExpenseFilter{UserID: u.ID})
	if err != nil || len(all) != 5 {
		t.Fatalf("expected 5 expenses, got %d (%v)", len(all), err)
	}

	none, err := s.SumExpenses(ctx, storage.ExpenseFilter{UserID: u.ID, Month: "1999-01"})
	if err != nil || !none.IsZero() {
		t.Fatalf("expected zero, got %s (%v)", none, err)
	}

	other, _ := MustUser(t, s, "exp-other@example.com")
	if _, err := s.GetExpense(ctx, other.ID, list[0].ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testTransferFilters(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, _ := MustUser(t, s, "tr@example.com")
	a := MustCategory(t, s, u.ID, "A", core.CategoryExpense)
	b := MustCategory(t, s, u.ID, "B", core.CategoryExpense)
	MustTransfer(t, s, u.ID, nil, id(a.ID), "50", "2025-03")
	MustTransfer(t, s, u.ID, id(a.ID), id(b.ID), "20", "2025-03")
	MustTransfer(t, s, u.ID, id(a.ID), nil, "5", "2025-04")

	in, err := s.ListTransfers(ctx, storage.TransferFilter{UserID: u.ID, ToCategoryID: a.ID, Month: "2025-03"})
	if err != nil || len(in) != 1 || in[0].FromCategoryID != nil || !in[0].Amount.Equal(dec("50")) {
		t.Fatalf("unexpected incoming %+v (%v)", in, err)
	}
	out, err := s.ListTransfers(ctx, storage.TransferFilter{UserID: u.ID, FromCategoryID: a.ID, Month: "2025-03"})
	if err != nil || len(out) != 1 || out[0].ToCategoryID == nil || *out[0].ToCategoryID != b.ID {
		t.Fatalf("unexpected outgoing %+v (%v)", out, err)
	}
	all, err := s.ListTransfers(ctx, storage.TransferFilter{UserID: u.ID})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 transfers, got %d (%v)", len(all), err)
	}
}

func testDeleteBudgetCascades(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, b := MustUser(t, s, "cascade@example.com")
	c := MustCategory(t, s, u.ID, "Rent", core.CategoryExpense)
	MustAllocation(t, s, b.ID, c.ID, "10")
	if err := s.DeleteBudget(ctx, u.ID, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	left, err := s.ListAllocations(ctx, b.ID)
	if err != nil || len(left) != 0 {
		t.Fatalf("expected allocations removed, got %d (%v)", len(left), err)
	}
	if _, err := s.FirstAllocationForCategory(ctx, c.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testDeleteCategoryDetachesTransfers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, b := MustUser(t, s, "detach@example.com")
	a := MustCategory(t, s, u.ID, "A", core.CategoryExpense)
	keep := MustCategory(t, s, u.ID, "B", core.CategoryExpense)
	MustAllocation(t, s, b.ID, a.ID, "10")
	MustExpense(t, s, u.ID, a.ID, "3", "2025-03", core.ExpenseSpend)
	tr := MustTransfer(t, s, u.ID, id(a.ID), id(keep.ID), "4", "2025-03")

	if err := s.DeleteCategory(ctx, u.ID, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := s.GetTransfer(ctx, u.ID, tr.ID)
	if err != nil {
		t.Fatalf("transfer should survive: %v", err)
	}
	if got.FromCategoryID != nil || got.ToCategoryID == nil || *got.ToCategoryID != keep.ID {
		t.Fatalf("unexpected transfer sides %+v", got)
	}
	exps, err := s.ListExpenses(ctx, storage.ExpenseFilter{UserID: u.ID})
	if err != nil || len(exps) != 0 {
		t.Fatalf("expected expenses removed, got %d (%v)", len(exps), err)
	}
	allocs, err := s.ListAllocations(ctx, b.ID)
	if err != nil || len(allocs) != 0 {
		t.Fatalf("expected allocations removed, got %d (%v)", len(allocs), err)
	}
}

func testView(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u, b := MustUser(t, s, "view@example.com")
	sentinel := errors.New("stop")

	var seen core.Budget
	err := s.View(ctx, func(r storage.Reader) error {
		var err error
		seen, err = r.GetBudget(ctx, u.ID, b.ID)
		if err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected callback error to propagate, got %v", err)
	}
	if seen.ID != b.ID {
		t.Fatalf("unexpected budget %+v", seen)
	}

	// The store stays usable after a failed view.
	err = s.View(ctx, func(r storage.Reader) error {
		_, err := r.GetBudget(ctx, u.ID, b.ID+1000)
		return err
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	c := MustCategory(t, s, u.ID, "After", core.CategoryExpense)
	if c.ID == 0 {
		t.Fatal("expected category id")
	}
}
