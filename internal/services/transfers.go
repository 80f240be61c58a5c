package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bajeti/internal/core"
	"bajeti/internal/storage"
)

// externalSide labels the untracked side of a transfer in ledger events.
const externalSide = "external"

type TransferService struct{ *writer }

// NewTransfer is the input of Create. A nil side is money entering or
// leaving the tracked categories. Empty Month defaults to the current month.
type NewTransfer struct {
	FromCategoryID *int64
	ToCategoryID   *int64
	Amount         decimal.Decimal
	Description    string
	Month          string
}

// List returns the user's transfers, only those of month when it is set.
func (s *TransferService) List(ctx context.Context, userID int64, month string) ([]core.Transfer, error) {
	if month != "" && !core.ValidMonth(month) {
		return nil, core.ErrInvalidMonth
	}
	transfers, err := s.store.ListTransfers(ctx, storage.TransferFilter{UserID: userID, Month: month})
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return transfers, nil
}

func (s *TransferService) Get(ctx context.Context, userID, transferID int64) (core.Transfer, error) {
	t, err := s.store.GetTransfer(ctx, userID, transferID)
	if err != nil {
		return core.Transfer{}, fmt.Errorf("get transfer %d: %w", transferID, err)
	}
	return t, nil
}

func (s *TransferService) Create(ctx context.Context, userID int64, in NewTransfer) (core.Transfer, error) {
	t := core.Transfer{
		UserID:         userID,
		FromCategoryID: in.FromCategoryID,
		ToCategoryID:   in.ToCategoryID,
		Amount:         core.NormalizeAmount(in.Amount),
		Description:    strings.TrimSpace(in.Description),
		Month:          in.Month,
	}
	if t.Month == "" {
		t.Month = s.currentMonth()
	}
	if err := t.Validate(); err != nil {
		return core.Transfer{}, err
	}

	from, err := s.sideName(ctx, userID, t.FromCategoryID)
	if err != nil {
		return core.Transfer{}, err
	}
	to, err := s.sideName(ctx, userID, t.ToCategoryID)
	if err != nil {
		return core.Transfer{}, err
	}
	if err := s.store.CreateTransfer(ctx, &t); err != nil {
		return core.Transfer{}, fmt.Errorf("save transfer: %w", err)
	}

	s.changed(ctx, userID, transferEvent(core.EventTransferCreated, t, from, to))
	return t, nil
}

func (s *TransferService) Delete(ctx context.Context, userID, transferID int64) error {
	t, err := s.store.GetTransfer(ctx, userID, transferID)
	if err != nil {
		return fmt.Errorf("get transfer %d: %w", transferID, err)
	}
	from, _ := s.sideName(ctx, userID, t.FromCategoryID)
	to, _ := s.sideName(ctx, userID, t.ToCategoryID)

	if err := s.store.DeleteTransfer(ctx, userID, transferID); err != nil {
		return fmt.Errorf("delete transfer %d: %w", transferID, err)
	}

	s.changed(ctx, userID, transferEvent(core.EventTransferDeleted, t, from, to))
	return nil
}

// sideName resolves one side of a transfer, which must belong to the user.
func (s *TransferService) sideName(ctx context.Context, userID int64, categoryID *int64) (string, error) {
	if categoryID == nil {
		return externalSide, nil
	}
	c, err := s.store.GetCategory(ctx, userID, *categoryID)
	if err != nil {
		return externalSide, fmt.Errorf("get category %d: %w", *categoryID, err)
	}
	return c.Name, nil
}

func transferEvent(kind string, t core.Transfer, from, to string) *core.LedgerEvent {
	return &core.LedgerEvent{
		Kind:        kind,
		EntityID:    t.ID,
		Category:    from + " -> " + to,
		Amount:      core.FormatAmount(t.Amount),
		Description: t.Description,
		Month:       t.Month,
	}
}
