package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bajeti/internal/core"
	"bajeti/internal/storage"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db  dbtx
	now func() time.Time
}

type scanner interface {
	Scan(dest ...any) error
}

// Fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (q *queries) stamp() string {
	return q.now().UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isForeignKeyViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}

func nullable(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func fromNullable(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func queryList[T any](ctx context.Context, db dbtx, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.NotFound(notFound)
	}
	return nil
}

// Users

const userColumns = `id, first_name, last_name, email, hashed_password, security_answer, created_at, updated_at`

func scanUser(row scanner) (core.User, error) {
	var u core.User
	var created, updated string
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.HashedPassword, &u.SecurityAnswer, &created, &updated)
	u.CreatedAt, u.UpdatedAt = parseTime(created), parseTime(updated)
	return u, err
}

func (q *queries) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	return u, translate(err, "User not found", "")
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email))
	return u, translate(err, "User not found", "")
}

func (q *queries) createUser(ctx context.Context, u *core.User) error {
	now := q.stamp()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, email, hashed_password, security_answer, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.FirstName, u.LastName, u.Email, u.HashedPassword, u.SecurityAnswer, now, now)
	if err != nil {
		return translate(err, "User not found", "Email already registered")
	}
	u.ID, err = res.LastInsertId()
	u.CreatedAt, u.UpdatedAt = parseTime(now), parseTime(now)
	return err
}

func (q *queries) UpdateUser(ctx context.Context, u *core.User) error {
	now := q.stamp()
	res, err := q.db.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, email = ?, hashed_password = ?, security_answer = ?, updated_at = ?
		 WHERE id = ?`,
		u.FirstName, u.LastName, u.Email, u.HashedPassword, u.SecurityAnswer, now, u.ID)
	if err != nil {
		return translate(err, "User not found", "Email already registered")
	}
	if err := requireAffected(res, "User not found"); err != nil {
		return err
	}
	u.UpdatedAt = parseTime(now)
	return nil
}

// Budgets

const budgetColumns = `id, user_id, name, amount, created_at, updated_at`

func scanBudget(row scanner) (core.Budget, error) {
	var b core.Budget
	var created, updated string
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Amount, &created, &updated)
	b.CreatedAt, b.UpdatedAt = parseTime(created), parseTime(updated)
	return b, err
}

func (q *queries) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	return queryList(ctx, q.db, scanBudget, `SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? ORDER BY id`, userID)
}

func (q *queries) GetBudget(ctx context.Context, userID, budgetID int64) (core.Budget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND user_id = ?`, budgetID, userID))
	return b, translate(err, "Budget not found", "")
}

func (q *queries) FindBudgetByName(ctx context.Context, userID int64, name string) (core.Budget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND name = ?`, userID, name))
	return b, translate(err, "Budget not found", "")
}

func (q *queries) LatestBudget(ctx context.Context, userID int64) (core.Budget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, userID))
	return b, translate(err, "No budget found", "")
}

func (q *queries) CreateBudget(ctx context.Context, b *core.Budget) error {
	now := q.stamp()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, name, amount, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.Name, b.Amount.String(), now, now)
	if err != nil {
		return translate(err, "User not found", "Budget with this name already exists")
	}
	b.ID, err = res.LastInsertId()
	b.CreatedAt, b.UpdatedAt = parseTime(now), parseTime(now)
	return err
}

func (q *queries) UpdateBudget(ctx context.Context, b *core.Budget) error {
	now := q.stamp()
	res, err := q.db.ExecContext(ctx,
		`UPDATE budgets SET name = ?, amount = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		b.Name, b.Amount.String(), now, b.ID, b.UserID)
	if err != nil {
		return translate(err, "Budget not found", "Budget with this name already exists")
	}
	if err := requireAffected(res, "Budget not found"); err != nil {
		return err
	}
	b.UpdatedAt = parseTime(now)
	return nil
}

func (q *queries) DeleteBudget(ctx context.Context, userID, budgetID int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, budgetID, userID)
	if err != nil {
		return err
	}
	return requireAffected(res, "Budget not found")
}

// Categories

const categoryColumns = `id, user_id, name, type, created_at, updated_at`

func scanCategory(row scanner) (core.Category, error) {
	var c core.Category
	var created, updated string
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &created, &updated)
	c.CreatedAt, c.UpdatedAt = parseTime(created), parseTime(updated)
	return c, err
}

func (q *queries) ListCategories(ctx context.Context, userID int64, typ core.CategoryType) ([]core.Category, error) {
	return queryList(ctx, q.db, scanCategory,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND (? = '' OR type = ?) ORDER BY id`,
		userID, string(typ), string(typ))
}

func (q *queries) GetCategory(ctx context.Context, userID, categoryID int64) (core.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, categoryID, userID))
	return c, translate(err, "Category not found", "")
}

func (q *queries) FindCategory(ctx context.Context, userID int64, name string, typ core.CategoryType) (core.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND name = ? AND type = ?`, userID, name, string(typ)))
	return c, translate(err, "Category not found", "")
}

func (q *queries) CreateCategory(ctx context.Context, c *core.Category) error {
	now := q.stamp()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, type, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.UserID, c.Name, string(c.Type), now, now)
	if err != nil {
		return translate(err, "User not found", "Category already exists")
	}
	c.ID, err = res.LastInsertId()
	c.CreatedAt, c.UpdatedAt = parseTime(now), parseTime(now)
	return err
}

func (q *queries) UpdateCategory(ctx context.Context, c *core.Category) error {
	now := q.stamp()
	res, err := q.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, type = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		c.Name, string(c.Type), now, c.ID, c.UserID)
	if err != nil {
		return translate(err, "Category not found", "Category already exists")
	}
	if err := requireAffected(res, "Category not found"); err != nil {
		return err
	}
	c.UpdatedAt = parseTime(now)
	return nil
}

func (q *queries) DeleteCategory(ctx context.Context, userID, categoryID int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, categoryID, userID)
	if err != nil {
		return err
	}
	return requireAffected(res, "Category not found")
}

// Allocations

const allocationColumns = `id, budget_id, category_id, allocated_amount, created_at, updated_at`

func scanAllocation(row scanner) (core.Allocation, error) {
	var a core.Allocation
	var created, updated string
	err := row.Scan(&a.ID, &a.BudgetID, &a.CategoryID, &a.AllocatedAmount, &created, &updated)
	a.CreatedAt, a.UpdatedAt = parseTime(created), parseTime(updated)
	return a, err
}

func (q *queries) ListAllocations(ctx context.Context, budgetID int64) ([]core.Allocation, error) {
	return queryList(ctx, q.db, scanAllocation,
		`SELECT `+allocationColumns+` FROM allocations WHERE budget_id = ? ORDER BY id`, budgetID)
}

func (q *queries) GetAllocation(ctx context.Context, budgetID, allocationID int64) (core.Allocation, error) {
	a, err := scanAllocation(q.db.QueryRowContext(ctx,
		`SELECT `+allocationColumns+` FROM allocations WHERE id = ? AND budget_id = ?`, allocationID, budgetID))
	return a, translate(err, "Allocation not found", "")
}

func (q *queries) FindAllocation(ctx context.Context, budgetID, categoryID int64) (core.Allocation, error) {
	a, err := scanAllocation(q.db.QueryRowContext(ctx,
		`SELECT `+allocationColumns+` FROM allocations WHERE budget_id = ? AND category_id = ?`, budgetID, categoryID))
	return a, translate(err, "Allocation not found", "")
}

func scanAllocationLine(row scanner) (core.AllocationLine, error) {
	var l core.AllocationLine
	var aCreated, aUpdated, cCreated, cUpdated string
	err := row.Scan(
		&l.Allocation.ID, &l.Allocation.BudgetID, &l.Allocation.CategoryID, &l.Allocation.AllocatedAmount, &aCreated, &aUpdated,
		&l.Category.ID, &l.Category.UserID, &l.Category.Name, &l.Category.Type, &cCreated, &cUpdated,
	)
	l.Allocation.CreatedAt, l.Allocation.UpdatedAt = parseTime(aCreated), parseTime(aUpdated)
	l.Category.CreatedAt, l.Category.UpdatedAt = parseTime(cCreated), parseTime(cUpdated)
	return l, err
}

func (q *queries) ListAllocationLines(ctx context.Context, userID, budgetID int64, typ core.CategoryType) ([]core.AllocationLine, error) {
	return queryList(ctx, q.db, scanAllocationLine, `
		SELECT a.id, a.budget_id, a.category_id, a.allocated_amount, a.created_at, a.updated_at,
		       c.id, c.user_id, c.name, c.type, c.created_at, c.updated_at
		FROM allocations a
		JOIN categories c ON c.id = a.category_id
		JOIN budgets b ON b.id = a.budget_id
		WHERE a.budget_id = ? AND b.user_id = ? AND c.user_id = ? AND (? = '' OR c.type = ?)
		ORDER BY c.id, a.id`,
		budgetID, userID, userID, string(typ), string(typ))
}

func (q *queries) FirstAllocationForCategory(ctx context.Context, categoryID int64) (core.Allocation, error) {
	a, err := scanAllocation(q.db.QueryRowContext(ctx,
		`SELECT `+allocationColumns+` FROM allocations WHERE category_id = ? ORDER BY id LIMIT 1`, categoryID))
	return a, translate(err, "Allocation not found", "")
}

func (q *queries) CreateAllocation(ctx context.Context, a *core.Allocation) error {
	now := q.stamp()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO allocations (budget_id, category_id, allocated_amount, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		a.BudgetID, a.CategoryID, a.AllocatedAmount.String(), now, now)
	if err != nil {
		return translate(err, "Budget or category not found", "Category already allocated in this budget")
	}
	a.ID, err = res.LastInsertId()
	a.CreatedAt, a.UpdatedAt = parseTime(now), parseTime(now)
	return err
}

func (q *queries) UpdateAllocation(ctx context.Context, a *core.Allocation) error {
	now := q.stamp()
	res, err := q.db.ExecContext(ctx,
		`UPDATE allocations SET allocated_amount = ?, updated_at = ? WHERE id = ? AND budget_id = ?`,
		a.AllocatedAmount.String(), now, a.ID, a.BudgetID)
	if err != nil {
		return err
	}
	if err := requireAffected(res, "Allocation not found"); err != nil {
		return err
	}
	updated, err := q.GetAllocation(ctx, a.BudgetID, a.ID)
	if err != nil {
		return err
	}
	*a = updated
	return nil
}

func (q *queries) DeleteAllocation(ctx context.Context, budgetID, allocationID int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM allocations WHERE id = ? AND budget_id = ?`, allocationID, budgetID)
	if err != nil {
		return err
	}
	return requireAffected(res, "Allocation not found")
}

// Expenses

const expenseColumns = `id, user_id, category_id, amount, description, month, type, created_at, updated_at`

func scanExpense(row scanner) (core.Expense, error) {
	var e core.Expense
	var created, updated string
	err := row.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.Amount, &e.Description, &e.Month, &e.Type, &created, &updated)
	e.CreatedAt, e.UpdatedAt = parseTime(created), parseTime(updated)
	return e, err
}

func expenseWhere(f storage.ExpenseFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{f.UserID}
	if f.CategoryID != 0 {
		clauses = append(clauses, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Month != "" {
		clauses = append(clauses, "month = ?")
		args = append(args, f.Month)
	}
	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(f.Type))
	}
	return strings.Join(clauses, " AND "), args
}

func (q *queries) ListExpenses(ctx context.Context, f storage.ExpenseFilter) ([]core.Expense, error) {
	where, args := expenseWhere(f)
	return queryList(ctx, q.db, scanExpense, `SELECT `+expenseColumns+` FROM expenses WHERE `+where+` ORDER BY id`, args...)
}

// SumExpenses adds amounts in Go: SQLite's SUM over TEXT would go through
// floating point.
func (q *queries) SumExpenses(ctx context.Context, f storage.ExpenseFilter) (decimal.Decimal, error) {
	where, args := expenseWhere(f)
	amounts, err := queryList(ctx, q.db, func(row scanner) (decimal.Decimal, error) {
		var d decimal.Decimal
		return d, row.Scan(&d)
	}, `SELECT amount FROM expenses WHERE `+where, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Sum(amounts...), nil
}

func (q *queries) GetExpense(ctx context.Context, userID, expenseID int64) (core.Expense, error) {
	e, err := scanExpense(q.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND user_id = ?`, expenseID, userID))
	return e, translate(err, "Expense not found", "")
}

func (q *queries) CreateExpense(ctx context.Context, e *core.Expense) error {
	now := q.stamp()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, category_id, amount, description, month, type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.CategoryID, e.Amount.String(), e.Description, e.Month, string(e.Type), now, now)
	if err != nil {
		return translate(err, "Category not found", "")
	}
	e.ID, err = res.LastInsertId()
	e.CreatedAt, e.UpdatedAt = parseTime(now), parseTime(now)
	return err
}

func (q *queries) UpdateExpense(ctx context.Context, e *core.Expense) error {
	now := q.stamp()
	res, err := q.db.ExecContext(ctx,
		`UPDATE expenses SET category_id = ?, amount = ?, description = ?, month = ?, type = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		e.CategoryID, e.Amount.String(), e.Description, e.Month, string(e.Type), now, e.ID, e.UserID)
	if err != nil {
		return translate(err, "Category not found", "")
	}
	if err := requireAffected(res, "Expense not found"); err != nil {
		return err
	}
	e.UpdatedAt = parseTime(now)
	return nil
}

func (q *queries) DeleteExpense(ctx context.Context, userID, expenseID int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, expenseID, userID)
	if err != nil {
		return err
	}
	return requireAffected(res, "Expense not found")
}

// Transfers

const transferColumns = `id, user_id, from_category_id, to_category_id, amount, description, month, created_at, updated_at`

func scanTransfer(row scanner) (core.Transfer, error) {
	var t core.Transfer
	var from, to sql.NullInt64
	var created, updated string
	err := row.Scan(&t.ID, &t.UserID, &from, &to, &t.Amount, &t.Description, &t.Month, &created, &updated)
	t.FromCategoryID, t.ToCategoryID = fromNullable(from), fromNullable(to)
	t.CreatedAt, t.UpdatedAt = parseTime(created), parseTime(updated)
	return t, err
}

func (q *queries) ListTransfers(ctx context.Context, f storage.TransferFilter) ([]core.Transfer, error) {
	clauses := []string{"user_id = ?"}
	args := []any{f.UserID}
	if f.FromCategoryID != 0 {
		clauses = append(clauses, "from_category_id = ?")
		args = append(args, f.FromCategoryID)
	}
	if f.ToCategoryID != 0 {
		clauses = append(clauses, "to_category_id = ?")
		args = append(args, f.ToCategoryID)
	}
	if f.Month != "" {
		clauses = append(clauses, "month = ?")
		args = append(args, f.Month)
	}
	return queryList(ctx, q.db, scanTransfer,
		`SELECT `+transferColumns+` FROM transfers WHERE `+strings.Join(clauses, " AND ")+` ORDER BY id`, args...)
}

func (q *queries) GetTransfer(ctx context.Context, userID, transferID int64) (core.Transfer, error) {
	t, err := scanTransfer(q.db.QueryRowContext(ctx,
		`SELECT `+transferColumns+` FROM transfers WHERE id = ? AND user_id = ?`, transferID, userID))
	return t, translate(err, "Transfer not found", "")
}

func (q *queries) CreateTransfer(ctx context.Context, t *core.Transfer) error {
	now := q.stamp()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO transfers (user_id, from_category_id, to_category_id, amount, description, month, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, nullable(t.FromCategoryID), nullable(t.ToCategoryID), t.Amount.String(), t.Description, t.Month, now, now)
	if err != nil {
		return translate(err, "Category not found", "")
	}
	t.ID, err = res.LastInsertId()
	t.CreatedAt, t.UpdatedAt = parseTime(now), parseTime(now)
	return err
}

func (q *queries) DeleteTransfer(ctx context.Context, userID, transferID int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transfers WHERE id = ? AND user_id = ?`, transferID, userID)
	if err != nil {
		return err
	}
	return requireAffected(res, "Transfer not found")
}
