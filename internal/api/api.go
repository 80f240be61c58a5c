// Package api holds the JSON wire types of the HTTP API, shared by the
// server and its Go client.
//
// Money travels as JSON numbers carrying the exact decimal value. Percentages
// are rounded to two places.
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const percentPlaces = 2

func money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func percent(d decimal.Decimal) json.Number {
	return json.Number(d.Round(percentPlaces).String())
}

// Decimal parses a wire amount. Malformed input yields zero.
func Decimal(n json.Number) decimal.Decimal {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type User struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Budget struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Name      string      `json:"name"`
	Amount    json.Number `json:"amount"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Category struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Allocation struct {
	ID              int64       `json:"id"`
	BudgetID        int64       `json:"budget_id"`
	CategoryID      int64       `json:"category_id"`
	AllocatedAmount json.Number `json:"allocated_amount"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type Expense struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	CategoryID  int64       `json:"category_id"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Month       string      `json:"month"`
	Type        string      `json:"type"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Transfer struct {
	ID             int64       `json:"id"`
	UserID         int64       `json:"user_id"`
	FromCategoryID *int64      `json:"from_category_id"`
	ToCategoryID   *int64      `json:"to_category_id"`
	Amount         json.Number `json:"amount"`
	Description    string      `json:"description"`
	Month          string      `json:"month"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TransferLine is a transfer with the names of its sides. A nil name is the
// external side.
type TransferLine struct {
	Transfer
	FromCategoryName *string `json:"from_category_name"`
	ToCategoryName   *string `json:"to_category_name"`
}

type BudgetOverview struct {
	Budget      OverviewBudget    `json:"budget"`
	Summary     OverviewSummary   `json:"summary"`
	Allocations []AllocationUsage `json:"allocations"`
}

type OverviewBudget struct {
	ID     int64       `json:"id"`
	Name   string      `json:"name"`
	Amount json.Number `json:"amount"`
	Month  string      `json:"month"`
}

type OverviewSummary struct {
	TotalAllocated     json.Number `json:"total_allocated"`
	Unallocated        json.Number `json:"unallocated"`
	TotalSpent         json.Number `json:"total_spent"`
	UtilizationPercent json.Number `json:"utilization_percent"`
}

type AllocationUsage struct {
	AllocationID    int64       `json:"allocation_id"`
	CategoryID      int64       `json:"category_id"`
	CategoryName    string      `json:"category_name"`
	AllocatedAmount json.Number `json:"allocated_amount"`
	UsedAmount      json.Number `json:"used_amount"`
	RemainingAmount json.Number `json:"remaining_amount"`
	PercentUsed     json.Number `json:"percent_used"`
}

type CategoryStats struct {
	ID                int64          `json:"id"`
	Name              string         `json:"name"`
	Type              string         `json:"type"`
	AllocatedAmount   json.Number    `json:"allocated_amount"`
	UserID            int64          `json:"user_id"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	ExpenseCount      int            `json:"expense_count"`
	Balance           json.Number    `json:"balance"`
	Expenses          []Expense      `json:"expenses"`
	Used              json.Number    `json:"used"`
	TransfersIn       []TransferLine `json:"transfers_in"`
	TransfersOut      []TransferLine `json:"transfers_out"`
	TotalTransfersIn  json.Number    `json:"total_transfers_in"`
	TotalTransfersOut json.Number    `json:"total_transfers_out"`
}
