// Package memory is an in-process Store used by tests and by DATA_BACKEND=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bajeti/internal/core"
	"bajeti/internal/storage"
)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	seq         int64
	users       map[int64]core.User
	budgets     map[int64]core.Budget
	categories  map[int64]core.Category
	allocations map[int64]core.Allocation
	expenses    map[int64]core.Expense
	transfers   map[int64]core.Transfer
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:         time.Now,
		users:       map[int64]core.User{},
		budgets:     map[int64]core.Budget{},
		categories:  map[int64]core.Category{},
		allocations: map[int64]core.Allocation{},
		expenses:    map[int64]core.Expense{},
		transfers:   map[int64]core.Transfer{},
	}
}

// WithClock replaces the timestamp source. Used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// View hands fn a snapshot taken under the read lock, so every read inside fn
// observes the same state.
func (s *Store) View(ctx context.Context, fn func(storage.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s.snapshot())
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func (s *Store) snapshot() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := New()
	c.now = s.now
	c.seq = s.seq
	copyMap(c.users, s.users)
	copyMap(c.budgets, s.budgets)
	copyMap(c.categories, s.categories)
	copyMap(c.allocations, s.allocations)
	copyMap(c.expenses, s.expenses)
	for id, t := range s.transfers {
		c.transfers[id] = cloneTransfer(t)
	}
	return c
}

func copyMap[T any](dst, src map[int64]T) {
	for k, v := range src {
		dst[k] = v
	}
}

func cloneTransfer(t core.Transfer) core.Transfer {
	if t.FromCategoryID != nil {
		v := *t.FromCategoryID
		t.FromCategoryID = &v
	}
	if t.ToCategoryID != nil {
		v := *t.ToCategoryID
		t.ToCategoryID = &v
	}
	return t
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func sortedValues[T any](m map[int64]T, keep func(T) bool) []T {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// Users

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.NotFound("User not found")
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, core.NotFound("User not found")
}

func (s *Store) RegisterUser(_ context.Context, u *core.User, first *core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(u.Email, 0) {
		return core.Conflict("Email already registered")
	}
	now := s.now().UTC()
	u.ID = s.nextID()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	if first != nil {
		first.ID = s.nextID()
		first.UserID = u.ID
		first.CreatedAt, first.UpdatedAt = now, now
		s.budgets[first.ID] = *first
	}
	return nil
}

func (s *Store) UpdateUser(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return core.NotFound("User not found")
	}
	if s.emailTaken(u.Email, u.ID) {
		return core.Conflict("Email already registered")
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = s.now().UTC()
	s.users[u.ID] = *u
	return nil
}

func (s *Store) emailTaken(email string, except int64) bool {
	for id, u := range s.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

// Budgets

func (s *Store) ListBudgets(_ context.Context, userID int64) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.budgets, func(b core.Budget) bool { return b.UserID == userID }), nil
}

func (s *Store) GetBudget(_ context.Context, userID, budgetID int64) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[budgetID]
	if !ok || b.UserID != userID {
		return core.Budget{}, core.NotFound("Budget not found")
	}
	return b, nil
}

func (s *Store) FindBudgetByName(_ context.Context, userID int64, name string) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range sortedValues(s.budgets, func(b core.Budget) bool { return b.UserID == userID }) {
		if b.Name == name {
			return b, nil
		}
	}
	return core.Budget{}, core.NotFound("Budget not found")
}

func (s *Store) LatestBudget(_ context.Context, userID int64) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := sortedValues(s.budgets, func(b core.Budget) bool { return b.UserID == userID })
	if len(owned) == 0 {
		return core.Budget{}, core.NotFound("No budget found")
	}
	latest := owned[0]
	for _, b := range owned[1:] {
		if !b.CreatedAt.Before(latest.CreatedAt) {
			latest = b
		}
	}
	return latest, nil
}

func (s *Store) CreateBudget(_ context.Context, b *core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.budgetNameTaken(b.UserID, b.Name, 0) {
		return core.Conflict("Budget with this name already exists")
	}
	now := s.now().UTC()
	b.ID = s.nextID()
	b.CreatedAt, b.UpdatedAt = now, now
	s.budgets[b.ID] = *b
	return nil
}

func (s *Store) UpdateBudget(_ context.Context, b *core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.budgets[b.ID]
	if !ok || cur.UserID != b.UserID {
		return core.NotFound("Budget not found")
	}
	if s.budgetNameTaken(b.UserID, b.Name, b.ID) {
		return core.Conflict("Budget with this name already exists")
	}
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = s.now().UTC()
	s.budgets[b.ID] = *b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, userID, budgetID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[budgetID]
	if !ok || b.UserID != userID {
		return core.NotFound("Budget not found")
	}
	delete(s.budgets, budgetID)
	for id, a := range s.allocations {
		if a.BudgetID == budgetID {
			delete(s.allocations, id)
		}
	}
	return nil
}

func (s *Store) budgetNameTaken(userID int64, name string, except int64) bool {
	for id, b := range s.budgets {
		if id != except && b.UserID == userID && b.Name == name {
			return true
		}
	}
	return false
}

// Categories

func (s *Store) ListCategories(_ context.Context, userID int64, typ core.CategoryType) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.categories, func(c core.Category) bool {
		return c.UserID == userID && (typ == "" || c.Type == typ)
	}), nil
}

func (s *Store) GetCategory(_ context.Context, userID, categoryID int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[categoryID]
	if !ok || c.UserID != userID {
		return core.Category{}, core.NotFound("Category not found")
	}
	return c, nil
}

func (s *Store) FindCategory(_ context.Context, userID int64, name string, typ core.CategoryType) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.UserID == userID && c.Name == name && c.Type == typ {
			return c, nil
		}
	}
	return core.Category{}, core.NotFound("Category not found")
}

func (s *Store) CreateCategory(_ context.Context, c *core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryTaken(*c, 0) {
		return core.Conflict("Category already exists")
	}
	now := s.now().UTC()
	c.ID = s.nextID()
	c.CreatedAt, c.UpdatedAt = now, now
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) UpdateCategory(_ context.Context, c *core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.categories[c.ID]
	if !ok || cur.UserID != c.UserID {
		return core.NotFound("Category not found")
	}
	if s.categoryTaken(*c, c.ID) {
		return core.Conflict("Category already exists")
	}
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = s.now().UTC()
	s.categories[c.ID] = *c
	return nil
}

// DeleteCategory cascades to allocations and expenses and detaches transfers.
func (s *Store) DeleteCategory(_ context.Context, userID, categoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[categoryID]
	if !ok || c.UserID != userID {
		return core.NotFound("Category not found")
	}
	delete(s.categories, categoryID)
	for id, a := range s.allocations {
		if a.CategoryID == categoryID {
			delete(s.allocations, id)
		}
	}
	for id, e := range s.expenses {
		if e.CategoryID == categoryID {
			delete(s.expenses, id)
		}
	}
	for id, t := range s.transfers {
		if t.FromCategoryID != nil && *t.FromCategoryID == categoryID {
			t.FromCategoryID = nil
		}
		if t.ToCategoryID != nil && *t.ToCategoryID == categoryID {
			t.ToCategoryID = nil
		}
		s.transfers[id] = t
	}
	return nil
}

func (s *Store) categoryTaken(c core.Category, except int64) bool {
	for id, o := range s.categories {
		if id != except && o.UserID == c.UserID && o.Name == c.Name && o.Type == c.Type {
			return true
		}
	}
	return false
}

// Allocations

func (s *Store) ListAllocations(_ context.Context, budgetID int64) ([]core.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.allocations, func(a core.Allocation) bool { return a.BudgetID == budgetID }), nil
}

func (s *Store) GetAllocation(_ context.Context, budgetID, allocationID int64) (core.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.allocations[allocationID]
	if !ok || a.BudgetID != budgetID {
		return core.Allocation{}, core.NotFound("Allocation not found")
	}
	return a, nil
}

func (s *Store) FindAllocation(_ context.Context, budgetID, categoryID int64) (core.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.allocations {
		if a.BudgetID == budgetID && a.CategoryID == categoryID {
			return a, nil
		}
	}
	return core.Allocation{}, core.NotFound("Allocation not found")
}

func (s *Store) ListAllocationLines(_ context.Context, userID, budgetID int64, typ core.CategoryType) ([]core.AllocationLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var lines []core.AllocationLine
	for _, a := range s.allocations {
		if a.BudgetID != budgetID {
			continue
		}
		c, ok := s.categories[a.CategoryID]
		if !ok || c.UserID != userID || (typ != "" && c.Type != typ) {
			continue
		}
		lines = append(lines, core.AllocationLine{Allocation: a, Category: c})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Category.ID != lines[j].Category.ID {
			return lines[i].Category.ID < lines[j].Category.ID
		}
		return lines[i].Allocation.ID < lines[j].Allocation.ID
	})
	return lines, nil
}

func (s *Store) FirstAllocationForCategory(_ context.Context, categoryID int64) (core.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := sortedValues(s.allocations, func(a core.Allocation) bool { return a.CategoryID == categoryID })
	if len(owned) == 0 {
		return core.Allocation{}, core.NotFound("Allocation not found")
	}
	return owned[0], nil
}

func (s *Store) CreateAllocation(_ context.Context, a *core.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[a.BudgetID]; !ok {
		return core.NotFound("Budget not found")
	}
	if _, ok := s.categories[a.CategoryID]; !ok {
		return core.NotFound("Category not found")
	}
	for _, o := range s.allocations {
		if o.BudgetID == a.BudgetID && o.CategoryID == a.CategoryID {
			return core.Conflict("Category already allocated in this budget")
		}
	}
	now := s.now().UTC()
	a.ID = s.nextID()
	a.CreatedAt, a.UpdatedAt = now, now
	s.allocations[a.ID] = *a
	return nil
}

func (s *Store) UpdateAllocation(_ context.Context, a *core.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.allocations[a.ID]
	if !ok || cur.BudgetID != a.BudgetID {
		return core.NotFound("Allocation not found")
	}
	cur.AllocatedAmount = a.AllocatedAmount
	cur.UpdatedAt = s.now().UTC()
	s.allocations[a.ID] = cur
	*a = cur
	return nil
}

func (s *Store) DeleteAllocation(_ context.Context, budgetID, allocationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.allocations[allocationID]
	if !ok || a.BudgetID != budgetID {
		return core.NotFound("Allocation not found")
	}
	delete(s.allocations, allocationID)
	return nil
}

// Expenses

func matchExpense(f storage.ExpenseFilter) func(core.Expense) bool {
	return func(e core.Expense) bool {
		return e.UserID == f.UserID &&
			(f.CategoryID == 0 || e.CategoryID == f.CategoryID) &&
			(f.Month == "" || e.Month == f.Month) &&
			(f.Type == "" || e.Type == f.Type)
	}
}

func (s *Store) ListExpenses(_ context.Context, f storage.ExpenseFilter) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.expenses, matchExpense(f)), nil
}

func (s *Store) SumExpenses(_ context.Context, f storage.ExpenseFilter) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	keep := matchExpense(f)
	for _, e := range s.expenses {
		if keep(e) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (s *Store) GetExpense(_ context.Context, userID, expenseID int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[expenseID]
	if !ok || e.UserID != userID {
		return core.Expense{}, core.NotFound("Expense not found")
	}
	return e, nil
}

func (s *Store) CreateExpense(_ context.Context, e *core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[e.CategoryID]; !ok {
		return core.NotFound("Category not found")
	}
	now := s.now().UTC()
	e.ID = s.nextID()
	e.CreatedAt, e.UpdatedAt = now, now
	s.expenses[e.ID] = *e
	return nil
}

func (s *Store) UpdateExpense(_ context.Context, e *core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.expenses[e.ID]
	if !ok || cur.UserID != e.UserID {
		return core.NotFound("Expense not found")
	}
	if _, ok := s.categories[e.CategoryID]; !ok {
		return core.NotFound("Category not found")
	}
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = s.now().UTC()
	s.expenses[e.ID] = *e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, userID, expenseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[expenseID]
	if !ok || e.UserID != userID {
		return core.NotFound("Expense not found")
	}
	delete(s.expenses, expenseID)
	return nil
}

// Transfers

func (s *Store) ListTransfers(_ context.Context, f storage.TransferFilter) ([]core.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := sortedValues(s.transfers, func(t core.Transfer) bool {
		return t.UserID == f.UserID &&
			(f.Month == "" || t.Month == f.Month) &&
			(f.FromCategoryID == 0 || (t.FromCategoryID != nil && *t.FromCategoryID == f.FromCategoryID)) &&
			(f.ToCategoryID == 0 || (t.ToCategoryID != nil && *t.ToCategoryID == f.ToCategoryID))
	})
	for i := range out {
		out[i] = cloneTransfer(out[i])
	}
	return out, nil
}

func (s *Store) GetTransfer(_ context.Context, userID, transferID int64) (core.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[transferID]
	if !ok || t.UserID != userID {
		return core.Transfer{}, core.NotFound("Transfer not found")
	}
	return cloneTransfer(t), nil
}

func (s *Store) CreateTransfer(_ context.Context, t *core.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, side := range []*int64{t.FromCategoryID, t.ToCategoryID} {
		if side == nil {
			continue
		}
		if _, ok := s.categories[*side]; !ok {
			return core.NotFound("Category not found")
		}
	}
	now := s.now().UTC()
	t.ID = s.nextID()
	t.CreatedAt, t.UpdatedAt = now, now
	s.transfers[t.ID] = cloneTransfer(*t)
	return nil
}

func (s *Store) DeleteTransfer(_ context.Context, userID, transferID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[transferID]
	if !ok || t.UserID != userID {
		return core.NotFound("Transfer not found")
	}
	delete(s.transfers, transferID)
	return nil
}
