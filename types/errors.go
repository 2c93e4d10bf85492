package types

import "errors"

// Errors. Every business-rule violation surfaces as one of these, matched
// with errors.Is through any wrapping layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyFulfilled  = errors.New("order already fulfilled")
	ErrAlreadyDecided    = errors.New("purchase request already decided")
	ErrAllergenConflict  = errors.New("item contains a declared allergen")
	ErrItemUnavailable   = errors.New("item unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
	// ErrTransient marks a storage-level timeout or contention failure.
	// Unlike the rest of the taxonomy it is safe to retry.
	ErrTransient = errors.New("transient storage failure")
)
