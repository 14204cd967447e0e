package market

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
	"papertrade/internal/util"
)

// Compile-time interface check.
var _ Oracle = (*LiveOracle)(nil)

// LiveOracle quotes real symbols from the Alpaca market-data API. Calls are
// rate limited and retried; the oracle stays read-only, so a slow or failing
// upstream can only reject a settlement, never corrupt one.
type LiveOracle struct {
	client  *marketdata.Client
	limiter *util.RateLimiter
}

// NewLiveOracle creates a LiveOracle with the given credentials and a
// per-minute request budget.
func NewLiveOracle(apiKey, apiSecret string, perMinute int) *LiveOracle {
	return &LiveOracle{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		limiter: util.NewRateLimiter(perMinute),
	}
}

// Quote returns the latest trade price for symbol.
func (o *LiveOracle) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return decimal.Decimal{}, err
	}

	var last *marketdata.Trade
	err := util.Retry(ctx, 3, 250*time.Millisecond, func() error {
		t, err := o.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
		if err != nil {
			return err
		}
		last = t
		return nil
	})
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("latest trade for %s: %w", symbol, err)
	}
	if last == nil || last.Price <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}

	return decimal.NewFromFloat(last.Price).Round(2), nil
}
