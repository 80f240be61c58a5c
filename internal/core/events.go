package core

import "time"

// Ledger event kinds.
const (
	EventExpenseCreated  = "expense.created"
	EventExpenseUpdated  = "expense.updated"
	EventExpenseDeleted  = "expense.deleted"
	EventTransferCreated = "transfer.created"
	EventTransferDeleted = "transfer.deleted"
)

// LedgerEvent records one change to a user's money movements. It carries a
// snapshot of the entity so consumers never need to read it back.
type LedgerEvent struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	UserID      int64     `json:"user_id"`
	EntityID    int64     `json:"entity_id"`
	Category    string    `json:"category"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Month       string    `json:"month"`
	OccurredAt  time.Time `json:"occurred_at"`
}
