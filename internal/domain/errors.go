package domain

import "errors"

// Business failures are sentinel errors wrapped with %w at the call site
// and matched with errors.Is. Infrastructure errors (database, unexpected
// I/O) propagate as-is and end up as 500s.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPaymentProcessing = errors.New("payment processing failed")
	ErrConfiguration     = errors.New("configuration error")
)
