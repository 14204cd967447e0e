package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
	"papertrade/internal/events"
	"papertrade/internal/gamify"
	"papertrade/internal/ledger"
	"papertrade/internal/market"
	"papertrade/internal/store"
)

// Server serves the trading platform REST API.
type Server struct {
	engine       *ledger.Engine
	store        store.Ledger
	achievements store.AchievementStore
	oracle       market.Oracle
	lister       market.Lister
	recorder     *events.Recorder
	platform     domain.Platform
	startingCash decimal.Decimal
	log          *slog.Logger
	now          func() time.Time
}

// NewServer creates the API server for one platform variant.
func NewServer(
	engine *ledger.Engine,
	st store.Ledger,
	achievements store.AchievementStore,
	oracle market.Oracle,
	lister market.Lister,
	recorder *events.Recorder,
	platform domain.Platform,
	startingCash decimal.Decimal,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		engine:       engine,
		store:        st,
		achievements: achievements,
		oracle:       oracle,
		lister:       lister,
		recorder:     recorder,
		platform:     platform,
		startingCash: startingCash,
		log:          log,
		now:          time.Now,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/trade", s.withSession(s.handleTrade))
	mux.HandleFunc("GET /api/portfolio", s.withSession(s.handlePortfolio))
	mux.HandleFunc("GET /api/market", s.withSession(s.handleMarket))
	mux.HandleFunc("GET /api/history", s.withSession(s.handleHistory))
	mux.HandleFunc("GET /api/account", s.withSession(s.handleAccount))
	mux.HandleFunc("POST /api/events", s.withSession(s.handleEvents))

	if s.platform == domain.PlatformGamified {
		mux.HandleFunc("GET /api/leaderboard", s.withSession(s.handleLeaderboard))
		mux.HandleFunc("GET /api/achievements", s.withSession(s.handleAchievements))
	}
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// rejectionMessage maps a settlement error to the user-facing message shown
// in the trade panel.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownSymbol):
		return "Please select a symbol from the Market Data list"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "Insufficient funds"
	case errors.Is(err, domain.ErrInsufficientShares):
		return "Insufficient shares"
	case errors.Is(err, domain.ErrValidation):
		return "Shares must be a positive whole number"
	default:
		return "Trade could not be completed"
	}
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	account := accountID(r)

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.record(domain.Event{
		AccountID: account,
		Type:      events.TypeTradeAttempt,
		Data: map[string]any{
			"symbol": req.Symbol,
			"action": req.Action,
			"shares": req.Shares,
		},
	})

	side, ok := domain.ParseSide(req.Action)
	if !ok {
		s.writeRejection(w, r, account, "Invalid action")
		return
	}

	// First-trade status must be read before the settlement appends to the
	// log.
	firstTrade := false
	if s.platform == domain.PlatformGamified {
		n, err := s.engine.TradeCount(r.Context(), account)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "trade could not be completed")
			return
		}
		firstTrade = n == 0
	}

	fill, err := s.engine.Settle(r.Context(), account, req.Symbol, side, req.Shares)
	if err != nil {
		if errors.Is(err, domain.ErrStorage) || errors.Is(err, domain.ErrAccountNotFound) {
			s.log.Error("settlement failed", "account", account, "error", err)
			writeError(w, http.StatusInternalServerError, "trade could not be completed")
			return
		}
		s.writeRejection(w, r, account, rejectionMessage(err))
		return
	}

	s.record(domain.Event{
		AccountID: account,
		Type:      events.TypeTradeCompleted,
		Data: map[string]any{
			"symbol": fill.Trade.Symbol,
			"action": string(fill.Trade.Side),
			"shares": fill.Trade.Shares,
			"price":  money(fill.Trade.Price),
		},
	})

	resp := TradeResponse{
		Success: true,
		Message: tradeMessage(fill.Trade),
		Cash:    money(fill.Cash),
	}
	if firstTrade {
		newly, err := s.achievements.UnlockAchievement(r.Context(), account, gamify.AchFirstTrade)
		if err != nil {
			s.log.Warn("unlocking achievement", "account", account, "error", err)
		} else if newly {
			resp.AchievementUnlocked = gamify.AchFirstTrade
		}
	}
	writeJSON(w, resp)
}

func tradeMessage(t domain.Trade) string {
	verb := "Bought"
	if t.Side == domain.SideSell {
		verb = "Sold"
	}
	return fmt.Sprintf("%s %d shares of %s at $%s", verb, t.Shares, t.Symbol, t.Price.StringFixed(2))
}

// writeRejection reports a rejected trade. Rejections are normal outcomes, so
// the status stays 200 and the current cash balance rides along.
func (s *Server) writeRejection(w http.ResponseWriter, r *http.Request, account, msg string) {
	cash, err := s.engine.CashBalance(r.Context(), account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "trade could not be completed")
		return
	}
	writeJSON(w, TradeResponse{Success: false, Message: msg, Cash: money(cash)})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	account := accountID(r)

	cash, err := s.engine.CashBalance(r.Context(), account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "portfolio unavailable")
		return
	}
	positions, err := s.engine.Positions(r.Context(), account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "portfolio unavailable")
		return
	}

	holdings := make([]HoldingJSON, 0, len(positions))
	holdingsValue := decimal.Zero
	costBasis := decimal.Zero
	for _, pos := range positions {
		price, err := s.oracle.Quote(r.Context(), pos.Symbol)
		if err != nil {
			// Symbol delisted from the feed; value it at cost.
			price = pos.AvgPrice
		}
		value := pos.MarketValue(price)
		cost := pos.CostBasis()
		gain := value.Sub(cost)
		pct := 0.0
		if !cost.IsZero() {
			pct = gain.Div(cost).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
		holdings = append(holdings, HoldingJSON{
			Symbol:       pos.Symbol,
			Shares:       pos.Shares,
			AvgPrice:     money(pos.AvgPrice),
			CurrentPrice: money(price),
			Value:        money(value),
			CostBasis:    money(cost),
			GainLoss:     money(gain),
			GainLossPct:  pct,
		})
		holdingsValue = holdingsValue.Add(value)
		costBasis = costBasis.Add(cost)
	}

	total := cash.Add(holdingsValue)
	gain := holdingsValue.Sub(costBasis)
	pct := 0.0
	if !costBasis.IsZero() {
		pct = gain.Div(costBasis).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	writeJSON(w, PortfolioResponse{
		Cash:           money(cash),
		HoldingsValue:  money(holdingsValue),
		TotalValue:     money(total),
		TotalCostBasis: money(costBasis),
		GainLoss:       money(gain),
		GainLossPct:    pct,
		Holdings:       holdings,
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	withSpread := s.platform == domain.PlatformTraditional
	snapshot := s.lister.Snapshot()
	quotes := make([]QuoteJSON, 0, len(snapshot))
	for _, q := range snapshot {
		quotes = append(quotes, convertQuote(q, withSpread))
	}
	writeJSON(w, quotes)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	account := accountID(r)

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	trades, err := s.engine.TradeHistory(r.Context(), account, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}

	out := make([]TradeJSON, 0, len(trades))
	for _, t := range trades {
		out = append(out, convertTrade(t))
	}
	writeJSON(w, out)
}

// totalValue returns cash plus holdings at current prices. A symbol the
// oracle no longer quotes is valued at cost.
func (s *Server) totalValue(r *http.Request, account string) (decimal.Decimal, error) {
	cash, err := s.engine.CashBalance(r.Context(), account)
	if err != nil {
		return decimal.Decimal{}, err
	}
	positions, err := s.engine.Positions(r.Context(), account)
	if err != nil {
		return decimal.Decimal{}, err
	}
	value := cash
	for _, pos := range positions {
		price, err := s.oracle.Quote(r.Context(), pos.Symbol)
		if err != nil {
			price = pos.AvgPrice
		}
		value = value.Add(pos.MarketValue(price))
	}
	return value, nil
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.store.GetAccount(r.Context(), accountID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "account unavailable")
		return
	}
	value, err := s.totalValue(r, acct.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "account unavailable")
		return
	}
	writeJSON(w, AccountResponse{
		AccountID:   acct.ID,
		Platform:    string(acct.Platform),
		Cash:        money(acct.Cash),
		BuyingPower: money(acct.Cash),
		TotalValue:  money(value),
		InitialCash: money(acct.InitialCash),
		CreatedAt:   acct.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	value, err := s.totalValue(r, accountID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "leaderboard unavailable")
		return
	}
	writeJSON(w, LeaderboardResponse{
		Leaderboard: gamify.Leaderboard(),
		UserStats:   gamify.StatsFor(value, s.startingCash),
	})
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	unlocked, err := s.achievements.ListAchievements(r.Context(), accountID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "achievements unavailable")
		return
	}
	writeJSON(w, AchievementsResponse{Achievements: gamify.Catalog(unlocked)})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type == "" {
		writeError(w, http.StatusBadRequest, "invalid event")
		return
	}

	s.record(domain.Event{
		AccountID: accountID(r),
		Type:      req.Type,
		Data:      req.Data,
		Page:      req.Page,
	})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) record(ev domain.Event) {
	if s.recorder != nil {
		s.recorder.Record(ev)
	}
}
