// Package httpapi exposes the trading platform over a JSON REST API. Sessions
// are cookie-based: the first request provisions a fresh account with the
// configured starting balance.
package httpapi

import (
	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
	"papertrade/internal/gamify"
	"papertrade/internal/market"
)

// TradeRequest is the body of POST /api/trade.
type TradeRequest struct {
	Symbol string `json:"symbol"`
	Action string `json:"action"`
	Shares int64  `json:"shares"`
}

// TradeResponse reports the outcome of a trade attempt. Rejections use
// Success=false with a user-facing message; the HTTP status stays 200 unless
// storage itself failed.
type TradeResponse struct {
	Success             bool    `json:"success"`
	Message             string  `json:"message"`
	Cash                float64 `json:"cash"`
	AchievementUnlocked string  `json:"achievement_unlocked,omitempty"`
}

// HoldingJSON is one open position valued at the current market price.
type HoldingJSON struct {
	Symbol       string  `json:"symbol"`
	Shares       int64   `json:"shares"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	Value        float64 `json:"value"`
	CostBasis    float64 `json:"cost_basis"`
	GainLoss     float64 `json:"gain_loss"`
	GainLossPct  float64 `json:"gain_loss_pct"`
}

// PortfolioResponse is the full account valuation.
type PortfolioResponse struct {
	Cash           float64       `json:"cash"`
	HoldingsValue  float64       `json:"holdings_value"`
	TotalValue     float64       `json:"total_value"`
	TotalCostBasis float64       `json:"total_cost_basis"`
	GainLoss       float64       `json:"gain_loss"`
	GainLossPct    float64       `json:"gain_loss_pct"`
	Holdings       []HoldingJSON `json:"holdings"`
}

// QuoteJSON is one market listing.
type QuoteJSON struct {
	Symbol  string  `json:"symbol"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Change  float64 `json:"change"`
	Percent float64 `json:"percent"`
	Volume  string  `json:"volume"`
	Bid     float64 `json:"bid,omitempty"`
	Ask     float64 `json:"ask,omitempty"`
}

// TradeJSON is one settled trade, as returned by the history endpoint.
type TradeJSON struct {
	ID         string  `json:"id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Shares     int64   `json:"shares"`
	Price      float64 `json:"price"`
	Total      float64 `json:"total"`
	ExecutedAt string  `json:"executed_at"`
}

// AccountResponse summarises the session account. BuyingPower equals cash;
// there is no margin.
type AccountResponse struct {
	AccountID   string  `json:"account_id"`
	Platform    string  `json:"platform"`
	Cash        float64 `json:"cash"`
	BuyingPower float64 `json:"buying_power"`
	TotalValue  float64 `json:"total_value"`
	InitialCash float64 `json:"initial_cash"`
	CreatedAt   string  `json:"created_at"`
}

// LeaderboardResponse pairs the global board with the caller's stats.
type LeaderboardResponse struct {
	Leaderboard []gamify.LeaderboardEntry `json:"leaderboard"`
	UserStats   gamify.UserStats          `json:"user_stats"`
}

// AchievementsResponse lists the catalog with the caller's unlock state.
type AchievementsResponse struct {
	Achievements []gamify.Achievement `json:"achievements"`
}

// EventRequest is the body of POST /api/events.
type EventRequest struct {
	Type string         `json:"type"`
	Page string         `json:"page,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// money renders a decimal for JSON at cent precision, rounding half to even.
func money(d decimal.Decimal) float64 {
	return d.RoundBank(2).InexactFloat64()
}

func convertTrade(t domain.Trade) TradeJSON {
	return TradeJSON{
		ID:         t.ID,
		Symbol:     t.Symbol,
		Side:       string(t.Side),
		Shares:     t.Shares,
		Price:      money(t.Price),
		Total:      money(t.Total),
		ExecutedAt: t.ExecutedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func convertQuote(q market.StockQuote, withSpread bool) QuoteJSON {
	out := QuoteJSON{
		Symbol:  q.Symbol,
		Name:    q.Name,
		Price:   money(q.Price),
		Change:  money(q.Change),
		Percent: q.Percent,
		Volume:  q.Volume,
	}
	if withSpread {
		// Cosmetic spread of one basis point around the quote.
		spread := q.Price.Mul(decimal.RequireFromString("0.0001"))
		out.Bid = money(q.Price.Sub(spread))
		out.Ask = money(q.Price.Add(spread))
	}
	return out
}
