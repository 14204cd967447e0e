// Package market supplies price quotes for tradable symbols. The ledger
// treats the oracle as external and read-only: it asks for a price once per
// settlement and never writes back.
package market

import (
	"context"

	"github.com/shopspring/decimal"
)

// Oracle answers price quotes. Implementations must be safe for concurrent
// use. An unknown symbol yields domain.ErrUnknownSymbol.
type Oracle interface {
	// Quote returns the current tradable price for symbol.
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// StockQuote is one row of a market snapshot, shaped for display.
type StockQuote struct {
	Symbol  string
	Name    string
	Price   decimal.Decimal
	Change  decimal.Decimal // vs the listing's base price
	Percent float64
	Volume  string // cosmetic, e.g. "142M"
}

// Lister produces a full market snapshot for the market-data view.
type Lister interface {
	Snapshot() []StockQuote
}
