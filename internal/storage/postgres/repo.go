package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bajeti/internal/core"
	"bajeti/internal/storage"
)

// repo holds every query; it runs on the pool or on a transaction.
type repo struct {
	db *gorm.DB
}

func (r *repo) q(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func affected(res *gorm.DB, notFound, conflict string) error {
	if res.Error != nil {
		return translate(res.Error, notFound, conflict)
	}
	if res.RowsAffected == 0 {
		return core.NotFound(notFound)
	}
	return nil
}

// Users

func (r *repo) GetUser(ctx context.Context, id int64) (core.User, error) {
	var m userModel
	if err := r.q(ctx).First(&m, id).Error; err != nil {
		return core.User{}, translate(err, "User not found", "")
	}
	return m.toCore(), nil
}

func (r *repo) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var m userModel
	if err := r.q(ctx).Where("LOWER(email) = LOWER(?)", email).First(&m).Error; err != nil {
		return core.User{}, translate(err, "User not found", "")
	}
	return m.toCore(), nil
}

func (r *repo) createUser(ctx context.Context, u *core.User) error {
	m := fromUser(*u)
	if err := r.q(ctx).Create(&m).Error; err != nil {
		return translate(err, "User not found", "Email already registered")
	}
	*u = m.toCore()
	return nil
}

func (r *repo) UpdateUser(ctx context.Context, u *core.User) error {
	res := r.q(ctx).Model(&userModel{}).Where("id = ?", u.ID).Updates(map[string]any{
		"first_name":      u.FirstName,
		"last_name":       u.LastName,
		"email":           u.Email,
		"hashed_password": u.HashedPassword,
		"security_answer": u.SecurityAnswer,
	})
	if err := affected(res, "User not found", "Email already registered"); err != nil {
		return err
	}
	fresh, err := r.GetUser(ctx, u.ID)
	if err != nil {
		return err
	}
	*u = fresh
	return nil
}

// Budgets

func (r *repo) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	var ms []budgetModel
	if err := r.q(ctx).Where("user_id = ?", userID).Order("id").Find(&ms).Error; err != nil {
		return nil, err
	}
	return mapSlice(ms, budgetModel.toCore), nil
}

func (r *repo) GetBudget(ctx context.Context, userID, budgetID int64) (core.Budget, error) {
	var m budgetModel
	if err := r.q(ctx).Where("id = ? AND user_id = ?", budgetID, userID).First(&m).Error; err != nil {
		return core.Budget{}, translate(err, "Budget not found", "")
	}
	return m.toCore(), nil
}

func (r *repo) FindBudgetByName(ctx context.Context, userID int64, name string) (core.Budget, error) {
	var m budgetModel
	if err := r.q(ctx).Where("user_id = ? AND name = ?", userID, name).First(&m).Error; err != nil {
		return core.Budget{}, translate(err, "Budget not found", "")
	}
	return m.toCore(), nil
}

func (r *repo) LatestBudget(ctx context.Context, userID int64) (core.Budget, error) {
	var m budgetModel
	err := r.q(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Take(&m).Error
	if err != nil {
		return core.Budget{}, translate(err, "No budget found", "")
	}
	return m.toCore(), nil
}

func (r *repo) CreateBudget(ctx context.Context, b *core.Budget) error {
	m := fromBudget(*b)
	if err := r.q(ctx).Create(&m).Error; err != nil {
		return translate(err, "User not found", "Budget with this name already exists")
	}
	*b = m.toCore()
	return nil
}

func (r *repo) UpdateBudget(ctx context.Context, b *core.Budget) error {
	res := r.q(ctx).Model(&budgetModel{}).Where("id = ? AND user_id = ?", b.ID, b.UserID).
		Updates(map[string]any{"name": b.Name, "amount": b.Amount})
	if err := affected(res, "Budget not found", "Budget with this name already exists"); err != nil {
		return err
	}
	fresh, err := r.GetBudget(ctx, b.UserID, b.ID)
	if err != nil {
		return err
	}
	*b = fresh
	return nil
}

func (r *repo) DeleteBudget(ctx context.Context, userID, budgetID int64) error {
	res := r.q(ctx).Where("id = ? AND user_id = ?", budgetID, userID).Delete(&budgetModel{})
	return affected(res, "Budget not found", "")
}

// Categories

func (r *repo) ListCategories(ctx context.Context, userID int64, typ core.CategoryType) ([]core.Category, error) {
	var ms []categoryModel
	q := r.q(ctx).Where("user_id = ?", userID)
	if typ != "" {
		q = q.Where("type = ?", string(typ))
	}
	if err := q.Order("id").Find(&ms).Error; err != nil {
		return nil, err
	}
	return mapSlice(ms, categoryModel.toCore), nil
}

func (r *repo) GetCategory(ctx context.Context, userID, categoryID int64) (core.Category, error) {
	var m categoryModel
	if err := r.q(ctx).Where("id = ? AND user_id = ?", categoryID, userID).First(&m).Error; err != nil {
		return core.Category{}, translate(err, "Category not found", "")
	}
	return m.toCore(), nil
}

func (r *repo) FindCategory(ctx context.Context, userID int64, name string, typ core.CategoryType) (core.Category, error) {
	var m categoryModel
	err := r.q(ctx).Where("user_id = ? AND name = ? AND type = ?", userID, name, string(typ)).First(&m).Error
	if err != nil {
		return core.Category{}, translate(err, "Category not found", "")
	}
	return m.toCore(), nil
}

func (r *repo) CreateCategory(ctx context.Context, c *core.Category) error {
	m := fromCategory(*c)
	if err := r.q(ctx).Create(&m).Error; err != nil {
		return translate(err, "User not found", "Category already exists")
	}
	*c = m.toCore()
	return nil
}

func (r *repo) UpdateCategory(ctx context.Context, c *core.Category) error {
	res := r.q(ctx).Model(&categoryModel{}).Where("id = ? AND user_id = ?", c.ID, c.UserID).
		Updates(map[string]any{"name": c.Name, "type": string(c.Type)})
	if err := affected(res, "Category not found", "Category already exists"); err != nil {
		return err
	}
	fresh, err := r.GetCategory(ctx, c.UserID, c.ID)
	if err != nil {
		return err
	}
	*c = fresh
	return nil
}

func (r *repo) DeleteCategory(ctx context.Context, userID, categoryID int64) error {
	res := r.q(ctx).Where("id = ? AND user_id = ?", categoryID, userID).Delete(&categoryModel{})
	return affected(res, "Category not found", "")
}

// Allocations

func (r *repo) ListAllocations(ctx context.Context, budgetID int64) ([]core.Allocation, error) {
	var ms []allocationModel
	if err := r.q(ctx).Where("budget_id = ?", budgetID).Order("id").Find(&ms).Error; err != nil {
		return nil, err
	}
	return mapSlice(ms, allocationModel.toCore), nil
}

func (r *repo) GetAllocation(ctx context.Context, budgetID, allocationID int64) (core.Allocation, error) {
	var m allocationModel
	if err := r.q(ctx).Where("id = ? AND budget_id = ?", allocationID, budgetID).First(&m).Error; err != nil {
		return core.Allocation{}, translate(err, "Allocation not found", "")
	}
	return m.toCore(), nil
}

func (r *repo) FindAllocation(ctx context.Context, budgetID, categoryID int64) (core.Allocation, error) {
	var m allocationModel
	if err := r.q(ctx).Where("budget_id = ? AND category_id = ?", budgetID, categoryID).First(&m).Error; err != nil {
		return core.Allocation{}, translate(err, "Allocation not found", "")
	}
	return m.toCore(), nil
}

func (r *repo) ListAllocationLines(ctx context.Context, userID, budgetID int64, typ core.CategoryType) ([]core.AllocationLine, error) {
	var ms []allocationModel
	q := r.q(ctx).
		Joins("JOIN categories ON categories.id = allocations.category_id").
		Joins("JOIN budgets ON budgets.id = allocations.budget_id").
		Where("allocations.budget_id = ? AND budgets.user_id = ? AND categories.user_id = ?", budgetID, userID, userID)
	if typ != "" {
		q = q.Where("categories.type = ?", string(typ))
	}
	err := q.Preload("Category").Order("categories.id, allocations.id").Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("list allocation lines: %w", err)
	}
	lines := make([]core.AllocationLine, 0, len(ms))
	for _, m := range ms {
		line := core.AllocationLine{Allocation: m.toCore()}
		if m.Category != nil {
			line.Category = m.Category.toCore()
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (r *repo) FirstAllocationForCategory(ctx context.Context, categoryID int64) (core.Allocation, error) {
	var m allocationModel
	if err := r.q(ctx).Where("category_id = ?", categoryID).Order("id").First(&m).Error; err != nil {
		return core.Allocation{}, translate(err, "Allocation not found", "")
	}
	return m.toCore(), nil
}

func (r *repo) CreateAllocation(ctx context.Context, a *core.Allocation) error {
	m := fromAllocation(*a)
	if err := r.q(ctx).Create(&m).Error; err != nil {
		return translate(err, "Budget or category not found", "Category already allocated in this budget")
	}
	*a = m.toCore()
	return nil
}

func (r *repo) UpdateAllocation(ctx context.Context, a *core.Allocation) error {
	res := r.q(ctx).Model(&allocationModel{}).Where("id = ? AND budget_id = ?", a.ID, a.BudgetID).
		Update("allocated_amount", a.AllocatedAmount)
	if err := affected(res, "Allocation not found", ""); err != nil {
		return err
	}
	fresh, err := r.GetAllocation(ctx, a.BudgetID, a.ID)
	if err != nil {
		return err
	}
	*a = fresh
	return nil
}

func (r *repo) DeleteAllocation(ctx context.Context, budgetID, allocationID int64) error {
	res := r.q(ctx).Where("id = ? AND budget_id = ?", allocationID, budgetID).Delete(&allocationModel{})
	return affected(res, "Allocation not found", "")
}

// Expenses

func (r *repo) expenses(ctx context.Context, f storage.ExpenseFilter) *gorm.DB {
	q := r.q(ctx).Model(&expenseModel{}).Where("user_id = ?", f.UserID)
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Month != "" {
		q = q.Where("month = ?", f.Month)
	}
	if f.Type != "" {
		q = q.Where("type = ?", string(f.Type))
	}
	return q
}

func (r *repo) ListExpenses(ctx context.Context, f storage.ExpenseFilter) ([]core.Expense, error) {
	var ms []expenseModel
	if err := r.expenses(ctx, f).Order("id").Find(&ms).Error; err != nil {
		return nil, err
	}
	return mapSlice(ms, expenseModel.toCore), nil
}

// SumExpenses relies on NUMERIC summation in the database, which is exact.
func (r *repo) SumExpenses(ctx context.Context, f storage.ExpenseFilter) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.expenses(ctx, f).Select("COALESCE(SUM(amount), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

func (r *repo) GetExpense(ctx context.Context, userID, expenseID int64) (core.Expense, error) {
	var m expenseModel
	if err := r.q(ctx).Where("id = ? AND user_id = ?", expenseID, userID).First(&m).Error; err != nil {
		return core.Expense{}, translate(err, "Expense not found", "")
	}
	return m.toCore(), nil
}

func (r *repo) CreateExpense(ctx context.Context, e *core.Expense) error {
	m := fromExpense(*e)
	if err := r.q(ctx).Create(&m).Error; err != nil {
		return translate(err, "Category not found", "")
	}
	*e = m.toCore()
	return nil
}

func (r *repo) UpdateExpense(ctx context.Context, e *core.Expense) error {
	res := r.q(ctx).Model(&expenseModel{}).Where("id = ? AND user_id = ?", e.ID, e.UserID).Updates(map[string]any{
		"category_id": e.CategoryID,
		"amount":      e.Amount,
		"description": e.Description,
		"month":       e.Month,
		"type":        string(e.Type),
	})
	if err := affected(res, "Expense not found", ""); err != nil {
		return err
	}
	fresh, err := r.GetExpense(ctx, e.UserID, e.ID)
	if err != nil {
		return err
	}
	*e = fresh
	return nil
}

func (r *repo) DeleteExpense(ctx context.Context, userID, expenseID int64) error {
	res := r.q(ctx).Where("id = ? AND user_id = ?", expenseID, userID).Delete(&expenseModel{})
	return affected(res, "Expense not found", "")
}

// Transfers

func (r *repo) ListTransfers(ctx context.Context, f storage.TransferFilter) ([]core.Transfer, error) {
	q := r.q(ctx).Where("user_id = ?", f.UserID)
	if f.FromCategoryID != 0 {
		q = q.Where("from_category_id = ?", f.FromCategoryID)
	}
	if f.ToCategoryID != 0 {
		q = q.Where("to_category_id = ?", f.ToCategoryID)
	}
	if f.Month != "" {
		q = q.Where("month = ?", f.Month)
	}
	var ms []transferModel
	if err := q.Order("id").Find(&ms).Error; err != nil {
		return nil, err
	}
	return mapSlice(ms, transferModel.toCore), nil
}

func (r *repo) GetTransfer(ctx context.Context, userID, transferID int64) (core.Transfer, error) {
	var m transferModel
	if err := r.q(ctx).Where("id = ? AND user_id = ?", transferID, userID).First(&m).Error; err != nil {
		return core.Transfer{}, translate(err, "Transfer not found", "")
	}
	return m.toCore(), nil
}

func (r *repo) CreateTransfer(ctx context.Context, t *core.Transfer) error {
	m := fromTransfer(*t)
	if err := r.q(ctx).Create(&m).Error; err != nil {
		return translate(err, "Category not found", "")
	}
	*t = m.toCore()
	return nil
}

func (r *repo) DeleteTransfer(ctx context.Context, userID, transferID int64) error {
	res := r.q(ctx).Where("id = ? AND user_id = ?", transferID, userID).Delete(&transferModel{})
	return affected(res, "Transfer not found", "")
}
