package domain

import "errors"

// Ledger error taxonomy. Callers classify rejections with errors.Is; the
// settlement engine guarantees that any of these returned from a settlement
// attempt means zero state change.
var (
	// ErrValidation covers malformed orders: non-positive quantity, empty
	// symbol, or an unrecognised side.
	ErrValidation = errors.New("invalid order")

	// ErrUnknownSymbol means the price oracle has no quote for the symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrInsufficientFunds means a buy's total cost exceeds the cash balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares means a sell exceeds the held share count.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrAccountNotFound means the account identifier resolves to nothing.
	ErrAccountNotFound = errors.New("account not found")

	// ErrStorage wraps faults from the durability layer. Settlements that
	// fail with it are fully rolled back; retrying is the caller's decision.
	ErrStorage = errors.New("storage fault")
)
