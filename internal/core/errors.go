package core

import "errors"

// Error kinds. Every error returned by services wraps exactly one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error carries a client-facing detail message together with its kind.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func (e *Error) Unwrap() error { return e.Kind }

// NotFound returns an ErrNotFound error with the given detail.
func NotFound(detail string) error { return &Error{Kind: ErrNotFound, Detail: detail} }

// Conflict returns an ErrConflict error with the given detail.
func Conflict(detail string) error { return &Error{Kind: ErrConflict, Detail: detail} }

// Invalid returns an ErrValidation error with the given detail.
func Invalid(detail string) error { return &Error{Kind: ErrValidation, Detail: detail} }

// Unauthorized returns an ErrUnauthorized error with the given detail.
func Unauthorized(detail string) error { return &Error{Kind: ErrUnauthorized, Detail: detail} }

// Detail extracts the innermost client-facing message from err, or fallback
// when err carries none.
func Detail(err error, fallback string) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Detail
	}
	return fallback
}

var (
	ErrInvalidMonth       = Invalid("month must match YYYY-MM")
	ErrInvalidAmount      = Invalid("amount must be a positive decimal")
	ErrNegativeAmount     = Invalid("amount cannot be negative")
	ErrEmptyName          = Invalid("name cannot be empty")
	ErrNameTooLong        = Invalid("name too long (max 100 characters)")
	ErrDescriptionTooLong = Invalid("description too long (max 200 characters)")
	ErrInvalidCategory    = Invalid("category type must be expense or savings")
	ErrInvalidExpenseType = Invalid("expense type must be spend or withdrawal")
	ErrTransferSides      = Invalid("transfer needs a source or a destination category")
	ErrTransferSameSide   = Invalid("transfer source and destination must differ")
	ErrInvalidEmail       = Invalid("invalid email address")
	ErrWeakPassword       = Invalid("password must be at least 8 characters")
)
