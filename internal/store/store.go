// Package store defines storage interfaces for the papertrade ledger
// (accounts, positions, the append-only trade log, achievements, and
// clickstream events) and provides SQLite-backed and in-memory
// implementations.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
)

// Tx is the view of one account's ledger state inside a settlement
// transaction. Mutations made through a Tx are applied atomically when the
// enclosing Transact call returns nil and discarded entirely otherwise.
type Tx interface {
	// Account returns the account, or domain.ErrAccountNotFound.
	Account(id string) (*domain.Account, error)

	// UpdateCash sets the account's cash balance.
	UpdateCash(id string, cash decimal.Decimal) error

	// Position returns the position for (account, symbol), or nil when the
	// account holds no shares of the symbol.
	Position(accountID, symbol string) (*domain.Position, error)

	// PutPosition inserts or replaces a position.
	PutPosition(pos *domain.Position) error

	// DeletePosition removes the position for (account, symbol).
	DeletePosition(accountID, symbol string) error

	// AppendTrade appends to the trade log and returns the assigned,
	// strictly increasing sequence number.
	AppendTrade(trade *domain.Trade) (int64, error)

	// CountTrades returns the number of settled trades for the account,
	// including any appended earlier in this transaction.
	CountTrades(accountID string) (int64, error)
}

// Transactor runs a function as a single atomic unit.
type Transactor interface {
	Transact(ctx context.Context, fn func(tx Tx) error) error
}

// AccountStore persists and retrieves accounts.
type AccountStore interface {
	// CreateAccount inserts a new account.
	CreateAccount(ctx context.Context, acct *domain.Account) error

	// GetAccount returns the account, or domain.ErrAccountNotFound.
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
}

// PositionStore reads position snapshots outside a settlement.
type PositionStore interface {
	// GetPosition returns the position, or nil when absent.
	GetPosition(ctx context.Context, accountID, symbol string) (*domain.Position, error)

	// ListPositions returns all open positions for the account, sorted by
	// symbol.
	ListPositions(ctx context.Context, accountID string) ([]domain.Position, error)
}

// TradeStore reads the append-only trade log.
type TradeStore interface {
	// ListTrades returns up to limit trades for the account, newest first.
	// A non-positive limit means no limit.
	ListTrades(ctx context.Context, accountID string, limit int) ([]domain.Trade, error)

	// CountTrades returns the number of settled trades for the account.
	CountTrades(ctx context.Context, accountID string) (int64, error)
}

// AchievementStore persists unlocked achievements per account.
type AchievementStore interface {
	// UnlockAchievement records the achievement and reports whether it was
	// newly unlocked (false when already held).
	UnlockAchievement(ctx context.Context, accountID, name string) (bool, error)

	// ListAchievements returns the unlocked achievement names.
	ListAchievements(ctx context.Context, accountID string) ([]string, error)
}

// EventStore persists clickstream events.
type EventStore interface {
	SaveEvent(ctx context.Context, ev *domain.Event) error
}

// Ledger is the combined surface the settlement engine needs.
type Ledger interface {
	Transactor
	AccountStore
	PositionStore
	TradeStore
}
