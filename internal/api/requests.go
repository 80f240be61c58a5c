package api

import "github.com/shopspring/decimal"

type RegisterRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	SecurityAnswer string `json:"security_answer"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type ProfileRequest struct {
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Email          string `json:"email,omitempty"`
	SecurityAnswer string `json:"security_answer,omitempty"`
}

type ResetPasswordRequest struct {
	Email          string `json:"email"`
	SecurityAnswer string `json:"security_answer"`
	NewPassword    string `json:"new_password"`
}

// Request bodies use pointers where a missing field means "unchanged".

type BudgetRequest struct {
	Name   *string          `json:"name,omitempty"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

type CategoryRequest struct {
	Name *string `json:"name,omitempty"`
	Type *string `json:"type,omitempty"`
}

type AllocationRequest struct {
	CategoryID      int64           `json:"category_id"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
}

type ExpenseRequest struct {
	CategoryID  *int64           `json:"category_id,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description *string          `json:"description,omitempty"`
	Month       *string          `json:"month,omitempty"`
	Type        *string          `json:"type,omitempty"`
}

type TransferRequest struct {
	FromCategoryID *int64          `json:"from_category_id"`
	ToCategoryID   *int64          `json:"to_category_id"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	Month          string          `json:"month,omitempty"`
}
