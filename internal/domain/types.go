// Package domain defines the core types shared across the papertrade
// platform: accounts, positions, settled trades, and clickstream events.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide normalises a user-supplied action string ("buy", "SELL", ...)
// into a Side. The second return value reports whether the input was valid.
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	}
	return "", false
}

// Platform identifies which front-end variant an account belongs to.
type Platform string

const (
	PlatformGamified    Platform = "gamified"
	PlatformTraditional Platform = "traditional"
)

// Account is one trading session's ledger root. It owns a cash balance,
// zero or more positions, and an ordered trade history. Cash never goes
// negative; debits that would overdraw are rejected upstream.
type Account struct {
	ID          string
	Platform    Platform
	InitialCash decimal.Decimal
	Cash        decimal.Decimal
	CreatedAt   time.Time
}

// Position is the holding for one (account, symbol) pair. A position only
// exists while Shares > 0; selling down to zero deletes it. AvgPrice is the
// quantity-weighted mean of the buy fills behind the currently held shares
// and is never recomputed on a sell.
type Position struct {
	AccountID string
	Symbol    string
	Shares    int64
	AvgPrice  decimal.Decimal
	UpdatedAt time.Time
}

// MarketValue returns the position's value at the given price.
func (p Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(p.Shares))
}

// CostBasis returns Shares * AvgPrice.
func (p Position) CostBasis() decimal.Decimal {
	return p.AvgPrice.Mul(decimal.NewFromInt(p.Shares))
}

// Trade is the immutable record of one settled order. Seq is assigned by the
// trade log on append and is strictly increasing per store, so per-account
// history has a total order even when timestamps collide.
type Trade struct {
	ID         string
	Seq        int64
	AccountID  string
	Symbol     string
	Side       Side
	Shares     int64
	Price      decimal.Decimal
	Total      decimal.Decimal
	ExecutedAt time.Time
}

// Event is a clickstream record. Events are observational only: recording
// them is best-effort and never affects settlement outcomes.
type Event struct {
	AccountID string
	Type      string
	Data      map[string]any
	Page      string
	At        time.Time
}
