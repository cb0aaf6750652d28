package types

import "errors"

const (
	ErrInvalidInput  = "Invalid input"
	ErrDatabaseError = "Database error"
	ErrUnauthorized  = "Unauthorized access"
	ErrInternalError = "internal server error"
)

// Validation errors returned by the salary service. Handlers map these to
// 4xx responses with the specific reason; anything else becomes a 500.
var (
	ErrInvalidAmount       = errors.New("salary amount must be positive")
	ErrUnsupportedCurrency = errors.New("unsupported currency code")
	ErrSalaryOutOfBounds   = errors.New("euro salary outside allowed bounds")
	ErrInvalidCommission   = errors.New("commission must be between zero and the allowed maximum")
	ErrRecordNotFound      = errors.New("record not found")
	ErrEmptyReason         = errors.New("change reason must not be empty")
)
