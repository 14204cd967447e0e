package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
	"papertrade/internal/events"
	"papertrade/internal/gamify"
	"papertrade/internal/ledger"
	"papertrade/internal/market"
	"papertrade/internal/store"
)

// fixedMarket is an oracle and lister with static prices.
type fixedMarket struct {
	prices map[string]string
}

func (m *fixedMarket) Quote(_ context.Context, symbol string) (decimal.Decimal, error) {
	p, ok := m.prices[symbol]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}
	return decimal.RequireFromString(p), nil
}

func (m *fixedMarket) Snapshot() []market.StockQuote {
	out := make([]market.StockQuote, 0, len(m.prices))
	for sym, p := range m.prices {
		out = append(out, market.StockQuote{
			Symbol: sym,
			Name:   sym + " Inc.",
			Price:  decimal.RequireFromString(p),
			Volume: "1.0M",
		})
	}
	return out
}

func newTestServer(t *testing.T, platform domain.Platform) (*httptest.Server, *http.Client, *store.MemoryStore) {
	t.Helper()

	st := store.NewMemoryStore()
	mkt := &fixedMarket{prices: map[string]string{"AAPL": "178.50", "GOOGL": "142.30"}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := ledger.NewEngine(st, mkt, log)
	recorder := events.NewRecorder(log, 64, st)

	s := NewServer(engine, st, st, mkt, mkt, recorder,
		platform, decimal.RequireFromString("100000.00"), log)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return ts, &http.Client{Jar: jar}, st
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestSessionProvisionsAccount(t *testing.T) {
	ts, client, _ := newTestServer(t, domain.PlatformGamified)

	resp, err := client.Get(ts.URL + "/api/account")
	if err != nil {
		t.Fatalf("GET /api/account: %v", err)
	}
	acct := decode[AccountResponse](t, resp)

	if acct.Cash != 100000.00 {
		t.Errorf("cash = %v, want 100000.00", acct.Cash)
	}
	if acct.TotalValue != 100000.00 {
		t.Errorf("total value = %v, want 100000.00", acct.TotalValue)
	}
	if acct.Platform != "gamified" {
		t.Errorf("platform = %q, want gamified", acct.Platform)
	}
	if len(acct.AccountID) != 32 {
		t.Errorf("account id %q, want 32 hex chars", acct.AccountID)
	}

	// Same cookie, same account.
	resp, err = client.Get(ts.URL + "/api/account")
	if err != nil {
		t.Fatalf("second GET /api/account: %v", err)
	}
	again := decode[AccountResponse](t, resp)
	if again.AccountID != acct.AccountID {
		t.Errorf("account changed across requests: %s vs %s", again.AccountID, acct.AccountID)
	}
}

func TestTradeBuyUnlocksFirstTrade(t *testing.T) {
	ts, client, _ := newTestServer(t, domain.PlatformGamified)

	resp := postJSON(t, client, ts.URL+"/api/trade", TradeRequest{Symbol: "AAPL", Action: "buy", Shares: 10})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	tr := decode[TradeResponse](t, resp)

	if !tr.Success {
		t.Fatalf("trade rejected: %s", tr.Message)
	}
	if tr.Cash != 98215.00 {
		t.Errorf("cash = %v, want 98215.00", tr.Cash)
	}
	if tr.AchievementUnlocked != gamify.AchFirstTrade {
		t.Errorf("achievement = %q, want %q", tr.AchievementUnlocked, gamify.AchFirstTrade)
	}

	// Second trade does not re-unlock.
	resp = postJSON(t, client, ts.URL+"/api/trade", TradeRequest{Symbol: "AAPL", Action: "buy", Shares: 1})
	tr = decode[TradeResponse](t, resp)
	if tr.AchievementUnlocked != "" {
		t.Errorf("achievement on second trade = %q, want none", tr.AchievementUnlocked)
	}
}

func TestTradeRejections(t *testing.T) {
	ts, client, _ := newTestServer(t, domain.PlatformTraditional)

	cases := []struct {
		name    string
		req     TradeRequest
		message string
	}{
		{"unknown symbol", TradeRequest{Symbol: "XXXX", Action: "buy", Shares: 1},
			"Please select a symbol from the Market Data list"},
		{"insufficient funds", TradeRequest{Symbol: "AAPL", Action: "buy", Shares: 1000000},
			"Insufficient funds"},
		{"insufficient shares", TradeRequest{Symbol: "AAPL", Action: "sell", Shares: 5},
			"Insufficient shares"},
		{"zero shares", TradeRequest{Symbol: "AAPL", Action: "buy", Shares: 0},
			"Shares must be a positive whole number"},
		{"bad action", TradeRequest{Symbol: "AAPL", Action: "hold", Shares: 1},
			"Invalid action"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp := postJSON(t, client, ts.URL+"/api/trade", c.req)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			tr := decode[TradeResponse](t, resp)
			if tr.Success {
				t.Fatal("rejected trade reported success")
			}
			if tr.Message != c.message {
				t.Errorf("message = %q, want %q", tr.Message, c.message)
			}
			if tr.Cash != 100000.00 {
				t.Errorf("cash = %v, want 100000.00 (unchanged)", tr.Cash)
			}
		})
	}
}

func TestPortfolioValuation(t *testing.T) {
	ts, client, _ := newTestServer(t, domain.PlatformTraditional)

	resp := postJSON(t, client, ts.URL+"/api/trade", TradeRequest{Symbol: "AAPL", Action: "buy", Shares: 10})
	if tr := decode[TradeResponse](t, resp); !tr.Success {
		t.Fatalf("setup trade rejected: %s", tr.Message)
	}

	resp, err := client.Get(ts.URL + "/api/portfolio")
	if err != nil {
		t.Fatalf("GET /api/portfolio: %v", err)
	}
	p := decode[PortfolioResponse](t, resp)

	if p.Cash != 98215.00 {
		t.Errorf("cash = %v, want 98215.00", p.Cash)
	}
	if p.HoldingsValue != 1785.00 {
		t.Errorf("holdings value = %v, want 1785.00", p.HoldingsValue)
	}
	if p.TotalValue != 100000.00 {
		t.Errorf("total value = %v, want 100000.00", p.TotalValue)
	}
	if len(p.Holdings) != 1 || p.Holdings[0].Symbol != "AAPL" || p.Holdings[0].Shares != 10 {
		t.Fatalf("holdings = %+v, want 10 AAPL", p.Holdings)
	}
	if p.Holdings[0].GainLoss != 0.00 {
		t.Errorf("gain/loss = %v, want 0.00 at unchanged price", p.Holdings[0].GainLoss)
	}
}

func TestMarketSpreadOnTraditional(t *testing.T) {
	ts, client, _ := newTestServer(t, domain.PlatformTraditional)

	resp, err := client.Get(ts.URL + "/api/market")
	if err != nil {
		t.Fatalf("GET /api/market: %v", err)
	}
	quotes := decode[[]QuoteJSON](t, resp)
	if len(quotes) != 2 {
		t.Fatalf("quotes = %d, want 2", len(quotes))
	}
	for _, q := range quotes {
		if q.Bid == 0 || q.Ask == 0 {
			t.Errorf("%s: bid/ask missing on traditional platform", q.Symbol)
		}
		if q.Bid >= q.Price || q.Ask <= q.Price {
			t.Errorf("%s: bid %v / ask %v do not straddle price %v", q.Symbol, q.Bid, q.Ask, q.Price)
		}
	}
}

func TestMarketNoSpreadOnGamified(t *testing.T) {
	ts, client, _ := newTestServer(t, domain.PlatformGamified)

	resp, err := client.Get(ts.URL + "/api/market")
	if err != nil {
		t.Fatalf("GET /api/market: %v", err)
	}
	quotes := decode[[]QuoteJSON](t, resp)
	for _, q := range quotes {
		if q.Bid != 0 || q.Ask != 0 {
			t.Errorf("%s: unexpected bid/ask on gamified platform", q.Symbol)
		}
	}
}

func TestHistoryLimit(t *testing.T) {
	ts, client, _ := newTestServer(t, domain.PlatformTraditional)

	for i := 0; i < 3; i++ {
		resp := postJSON(t, client, ts.URL+"/api/trade", TradeRequest{Symbol: "AAPL", Action: "buy", Shares: 1})
		if tr := decode[TradeResponse](t, resp); !tr.Success {
			t.Fatalf("setup trade %d rejected: %s", i, tr.Message)
		}
	}

	resp, err := client.Get(ts.URL + "/api/history?limit=2")
	if err != nil {
		t.Fatalf("GET /api/history: %v", err)
	}
	trades := decode[[]TradeJSON](t, resp)
	if len(trades) != 2 {
		t.Errorf("history length = %d, want 2", len(trades))
	}

	resp, err = client.Get(ts.URL + "/api/history?limit=nope")
	if err != nil {
		t.Fatalf("GET /api/history bad limit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", resp.StatusCode)
	}
}

func TestGamifiedEndpoints(t *testing.T) {
	ts, client, _ := newTestServer(t, domain.PlatformGamified)

	resp, err := client.Get(ts.URL + "/api/achievements")
	if err != nil {
		t.Fatalf("GET /api/achievements: %v", err)
	}
	ach := decode[AchievementsResponse](t, resp)
	if len(ach.Achievements) != 6 {
		t.Fatalf("achievements = %d, want 6", len(ach.Achievements))
	}
	for _, a := range ach.Achievements {
		// $100K Portfolio is granted at account creation.
		if want := a.Name == gamify.AchHundredK; a.Unlocked != want {
			t.Errorf("%s unlocked = %v, want %v", a.Name, a.Unlocked, want)
		}
	}

	resp, err = client.Get(ts.URL + "/api/leaderboard")
	if err != nil {
		t.Fatalf("GET /api/leaderboard: %v", err)
	}
	lb := decode[LeaderboardResponse](t, resp)
	if len(lb.Leaderboard) != 10 {
		t.Errorf("leaderboard = %d entries, want 10", len(lb.Leaderboard))
	}
	if lb.UserStats.PortfolioValue != 100000.00 {
		t.Errorf("portfolio value = %v, want 100000.00", lb.UserStats.PortfolioValue)
	}
}

func TestGamifiedEndpointsAbsentOnTraditional(t *testing.T) {
	ts, client, _ := newTestServer(t, domain.PlatformTraditional)

	resp, err := client.Get(ts.URL + "/api/leaderboard")
	if err != nil {
		t.Fatalf("GET /api/leaderboard: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("leaderboard status = %d, want 404", resp.StatusCode)
	}
}

func TestEventsEndpoint(t *testing.T) {
	ts, client, _ := newTestServer(t, domain.PlatformTraditional)

	// Delivery is asynchronous; acceptance is what the endpoint owes.
	resp := postJSON(t, client, ts.URL+"/api/events", EventRequest{Type: "page_view", Page: "/market"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	resp = postJSON(t, client, ts.URL+"/api/events", EventRequest{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty event status = %d, want 400", resp.StatusCode)
	}
}
