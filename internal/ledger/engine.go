// Package ledger implements the account ledger and trade settlement engine:
// the component that owns cash, positions, and trade history for an account
// and guarantees every settlement is atomic, consistent, and
// cost-basis-correct.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
	"papertrade/internal/market"
	"papertrade/internal/store"
)

// Engine settles orders against per-account ledger state. One settlement is
// a single atomic unit over {cash, position, trade log}: a rejection, from
// validation through storage fault, leaves all three exactly as they were.
type Engine struct {
	store  store.Ledger
	oracle market.Oracle
	locks  accountLocks
	log    *slog.Logger
	now    func() time.Time
}

// NewEngine creates an Engine settling against the given store and pricing
// from the given oracle.
func NewEngine(s store.Ledger, oracle market.Oracle, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:  s,
		oracle: oracle,
		log:    log,
		now:    time.Now,
	}
}

// Fill is the outcome of a successful settlement: the appended trade record
// and the account's cash balance after it.
type Fill struct {
	Trade domain.Trade
	Cash  decimal.Decimal
}

// Settle executes one order: validate, price, then atomically apply the
// cash, position, and trade-log effects. On rejection the returned error
// wraps one of the domain sentinels and no state has changed. The price is
// captured from the oracle exactly once, before the account is locked, and
// is never re-queried mid-settlement.
func (e *Engine) Settle(ctx context.Context, accountID, symbol string, side domain.Side, qty int64) (*Fill, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: share count must be a positive integer, got %d", domain.ErrValidation, qty)
	}
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrValidation)
	}
	if side != domain.SideBuy && side != domain.SideSell {
		return nil, fmt.Errorf("%w: side must be BUY or SELL, got %q", domain.ErrValidation, side)
	}

	price, err := e.oracle.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	total := price.Mul(decimal.NewFromInt(qty))

	unlock := e.locks.lock(accountID)
	defer unlock()

	var fill *Fill
	err = e.store.Transact(ctx, func(tx store.Tx) error {
		acct, err := tx.Account(accountID)
		if err != nil {
			return err
		}

		now := e.now()
		var newCash decimal.Decimal

		switch side {
		case domain.SideBuy:
			// Funds check precedes any mutation.
			if total.GreaterThan(acct.Cash) {
				return fmt.Errorf("%w: cost %s exceeds cash %s",
					domain.ErrInsufficientFunds, total.StringFixed(2), acct.Cash.StringFixed(2))
			}
			newCash = acct.Cash.Sub(total)
			if err := tx.UpdateCash(accountID, newCash); err != nil {
				return err
			}
			cur, err := tx.Position(accountID, symbol)
			if err != nil {
				return err
			}
			pos := buyInto(cur, accountID, symbol, qty, price, now)
			if err := tx.PutPosition(&pos); err != nil {
				return err
			}

		case domain.SideSell:
			// Share check precedes any cash mutation.
			cur, err := tx.Position(accountID, symbol)
			if err != nil {
				return err
			}
			remaining, err := sellFrom(cur, qty, now)
			if err != nil {
				return err
			}
			if remaining.Shares == 0 {
				if err := tx.DeletePosition(accountID, symbol); err != nil {
					return err
				}
			} else {
				if err := tx.PutPosition(&remaining); err != nil {
					return err
				}
			}
			newCash = acct.Cash.Add(total)
			if err := tx.UpdateCash(accountID, newCash); err != nil {
				return err
			}
		}

		trade := domain.Trade{
			ID:         uuid.NewString(),
			AccountID:  accountID,
			Symbol:     symbol,
			Side:       side,
			Shares:     qty,
			Price:      price,
			Total:      total,
			ExecutedAt: now,
		}
		seq, err := tx.AppendTrade(&trade)
		if err != nil {
			return err
		}
		trade.Seq = seq

		fill = &Fill{Trade: trade, Cash: newCash}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("trade settled",
		"account", accountID,
		"symbol", symbol,
		"side", string(side),
		"shares", qty,
		"price", price.StringFixed(2),
		"total", total.StringFixed(2),
		"trade_id", fill.Trade.ID)
	return fill, nil
}

// Positions returns a read-only snapshot of the account's open positions.
func (e *Engine) Positions(ctx context.Context, accountID string) ([]domain.Position, error) {
	return e.store.ListPositions(ctx, accountID)
}

// CashBalance returns the account's current cash balance.
func (e *Engine) CashBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	acct, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return acct.Cash, nil
}

// TradeHistory returns up to limit settled trades, newest first.
func (e *Engine) TradeHistory(ctx context.Context, accountID string, limit int) ([]domain.Trade, error) {
	return e.store.ListTrades(ctx, accountID, limit)
}

// TradeCount returns how many trades the account has settled. Callers use it
// to derive facts like "this settlement was the account's first trade".
func (e *Engine) TradeCount(ctx context.Context, accountID string) (int64, error) {
	return e.store.CountTrades(ctx, accountID)
}
