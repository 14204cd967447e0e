// Package papertrade provides a Go SDK for the papertrade-server API. The
// client keeps a cookie jar, so the session account created on the first
// request is reused for the client's lifetime.
package papertrade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"
)

// Client is a papertrade API client bound to one session account.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new papertrade API client.
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}, nil
}

// TradeResult reports the outcome of a trade attempt. Success is false for
// rejections (unknown symbol, insufficient funds or shares, bad input).
type TradeResult struct {
	Success             bool    `json:"success"`
	Message             string  `json:"message"`
	Cash                float64 `json:"cash"`
	AchievementUnlocked string  `json:"achievement_unlocked,omitempty"`
}

// Holding is one open position valued at the current market price.
type Holding struct {
	Symbol       string  `json:"symbol"`
	Shares       int64   `json:"shares"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	Value        float64 `json:"value"`
	CostBasis    float64 `json:"cost_basis"`
	GainLoss     float64 `json:"gain_loss"`
	GainLossPct  float64 `json:"gain_loss_pct"`
}

// Portfolio is the full account valuation.
type Portfolio struct {
	Cash           float64   `json:"cash"`
	HoldingsValue  float64   `json:"holdings_value"`
	TotalValue     float64   `json:"total_value"`
	TotalCostBasis float64   `json:"total_cost_basis"`
	GainLoss       float64   `json:"gain_loss"`
	GainLossPct    float64   `json:"gain_loss_pct"`
	Holdings       []Holding `json:"holdings"`
}

// Quote is one market listing.
type Quote struct {
	Symbol  string  `json:"symbol"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Change  float64 `json:"change"`
	Percent float64 `json:"percent"`
	Volume  string  `json:"volume"`
	Bid     float64 `json:"bid,omitempty"`
	Ask     float64 `json:"ask,omitempty"`
}

// Trade is one settled trade.
type Trade struct {
	ID         string  `json:"id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Shares     int64   `json:"shares"`
	Price      float64 `json:"price"`
	Total      float64 `json:"total"`
	ExecutedAt string  `json:"executed_at"`
}

// Account summarises the session account.
type Account struct {
	AccountID   string  `json:"account_id"`
	Platform    string  `json:"platform"`
	Cash        float64 `json:"cash"`
	BuyingPower float64 `json:"buying_power"`
	TotalValue  float64 `json:"total_value"`
	InitialCash float64 `json:"initial_cash"`
	CreatedAt   string  `json:"created_at"`
}

// Trade submits an order. Action is "buy" or "sell".
func (c *Client) Trade(ctx context.Context, symbol, action string, shares int64) (*TradeResult, error) {
	body := map[string]any{"symbol": symbol, "action": action, "shares": shares}
	var out TradeResult
	if err := c.do(ctx, http.MethodPost, "/api/trade", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Portfolio retrieves the account valuation.
func (c *Client) Portfolio(ctx context.Context) (*Portfolio, error) {
	var out Portfolio
	if err := c.do(ctx, http.MethodGet, "/api/portfolio", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Market retrieves the current quote board.
func (c *Client) Market(ctx context.Context) ([]Quote, error) {
	var out []Quote
	if err := c.do(ctx, http.MethodGet, "/api/market", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// History retrieves up to limit settled trades, newest first. A zero limit
// requests the full history.
func (c *Client) History(ctx context.Context, limit int) ([]Trade, error) {
	path := "/api/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	} else {
		path += "?limit=0"
	}
	var out []Trade
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Account retrieves session account information.
func (c *Client) Account(ctx context.Context) (*Account, error) {
	var out Account
	if err := c.do(ctx, http.MethodGet, "/api/account", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
