package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
)

// Position book rules. Buys re-average, sells never do: the average cost of
// the remaining shares is the quantity-weighted mean of the buy fills behind
// them, kept at full decimal precision so repeated re-averaging cannot
// accumulate rounding drift. Rounding happens only when a price is rendered.

// buyInto returns the position that results from adding qty shares at price.
// A nil cur opens a new position at price.
func buyInto(cur *domain.Position, accountID, symbol string, qty int64, price decimal.Decimal, now time.Time) domain.Position {
	if cur == nil {
		return domain.Position{
			AccountID: accountID,
			Symbol:    symbol,
			Shares:    qty,
			AvgPrice:  price,
			UpdatedAt: now,
		}
	}

	oldCost := cur.AvgPrice.Mul(decimal.NewFromInt(cur.Shares))
	addCost := price.Mul(decimal.NewFromInt(qty))
	newShares := cur.Shares + qty

	return domain.Position{
		AccountID: cur.AccountID,
		Symbol:    cur.Symbol,
		Shares:    newShares,
		AvgPrice:  oldCost.Add(addCost).Div(decimal.NewFromInt(newShares)),
		UpdatedAt: now,
	}
}

// sellFrom returns the position remaining after selling qty shares. It fails
// with domain.ErrInsufficientShares when cur is nil or holds fewer than qty.
// A remaining share count of zero means the position must be deleted.
func sellFrom(cur *domain.Position, qty int64, now time.Time) (domain.Position, error) {
	if cur == nil || cur.Shares < qty {
		held := int64(0)
		if cur != nil {
			held = cur.Shares
		}
		return domain.Position{}, fmt.Errorf("%w: have %d, want to sell %d", domain.ErrInsufficientShares, held, qty)
	}

	out := *cur
	out.Shares -= qty
	out.UpdatedAt = now
	return out, nil
}
