package services

import (
	"context"
	"fmt"
	"strings"

	"bajeti/internal/core"
)

type CategoryService struct{ *writer }

// CategoryUpdate changes the non-nil fields of a category.
type CategoryUpdate struct {
	Name *string
	Type *core.CategoryType
}

// List returns the user's categories of type typ, or all of them when typ is
// empty.
func (s *CategoryService) List(ctx context.Context, userID int64, typ core.CategoryType) ([]core.Category, error) {
	if typ != "" && !typ.Valid() {
		return nil, core.ErrInvalidCategory
	}
	cats, err := s.store.ListCategories(ctx, userID, typ)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *CategoryService) Get(ctx context.Context, userID, categoryID int64) (core.Category, error) {
	c, err := s.store.GetCategory(ctx, userID, categoryID)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", categoryID, err)
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, userID int64, name string, typ core.CategoryType) (core.Category, error) {
	if typ == "" {
		typ = core.CategoryExpense
	}
	c := core.Category{UserID: userID, Name: strings.TrimSpace(name), Type: typ}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.store.CreateCategory(ctx, &c); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.changed(ctx, userID, nil)
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, userID, categoryID int64, upd CategoryUpdate) (core.Category, error) {
	c, err := s.store.GetCategory(ctx, userID, categoryID)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", categoryID, err)
	}
	if upd.Name != nil {
		c.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Type != nil {
		c.Type = *upd.Type
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.store.UpdateCategory(ctx, &c); err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", categoryID, err)
	}
	s.changed(ctx, userID, nil)
	return c, nil
}

// Delete removes the category with its allocations and expenses. Transfers
// touching it lose that side.
func (s *CategoryService) Delete(ctx context.Context, userID, categoryID int64) error {
	if err := s.store.DeleteCategory(ctx, userID, categoryID); err != nil {
		return fmt.Errorf("delete category %d: %w", categoryID, err)
	}
	s.changed(ctx, userID, nil)
	return nil
}
