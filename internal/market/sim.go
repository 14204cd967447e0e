package market

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
)

// Compile-time interface checks.
var _ Oracle = (*Simulator)(nil)
var _ Lister = (*Simulator)(nil)

// Volatility buckets a listing's per-tick price range.
type Volatility string

const (
	VolatilityLow    Volatility = "low"    // ±1% per tick
	VolatilityMedium Volatility = "medium" // ±2% per tick
	VolatilityHigh   Volatility = "high"   // ±5% per tick
)

// listing seeds one simulated stock.
type listing struct {
	symbol     string
	name       string
	basePrice  string
	volatility Volatility
}

// defaultListings is the simulated universe: 20 large caps with a fixed
// base price each.
var defaultListings = []listing{
	{"AAPL", "Apple Inc.", "178.50", VolatilityMedium},
	{"MSFT", "Microsoft Corporation", "378.50", VolatilityMedium},
	{"GOOGL", "Alphabet Inc.", "142.00", VolatilityMedium},
	{"AMZN", "Amazon.com Inc.", "151.25", VolatilityMedium},
	{"META", "Meta Platforms Inc.", "352.75", VolatilityMedium},
	{"TSLA", "Tesla Inc.", "242.50", VolatilityHigh},
	{"NVDA", "NVIDIA Corporation", "478.00", VolatilityHigh},
	{"AMD", "Advanced Micro Devices", "138.25", VolatilityHigh},
	{"JPM", "JPMorgan Chase & Co.", "158.75", VolatilityLow},
	{"BAC", "Bank of America Corp.", "33.50", VolatilityLow},
	{"WMT", "Walmart Inc.", "168.25", VolatilityLow},
	{"PG", "Procter & Gamble Co.", "155.50", VolatilityLow},
	{"JNJ", "Johnson & Johnson", "157.75", VolatilityLow},
	{"DIS", "The Walt Disney Company", "96.50", VolatilityMedium},
	{"NKE", "Nike Inc.", "108.75", VolatilityMedium},
	{"NFLX", "Netflix Inc.", "442.50", VolatilityHigh},
	{"COST", "Costco Wholesale Corp.", "588.25", VolatilityLow},
	{"V", "Visa Inc.", "258.50", VolatilityLow},
	{"MA", "Mastercard Inc.", "412.75", VolatilityLow},
	{"PEP", "PepsiCo Inc.", "172.50", VolatilityLow},
}

type simStock struct {
	name       string
	base       decimal.Decimal
	price      decimal.Decimal
	volatility Volatility
}

// Simulator is a random-walk price oracle over a fixed stock universe.
// Every tick moves each price to base*(1±range) for its volatility bucket,
// rounded to 2 digits, so prices wander around the base rather than drift.
type Simulator struct {
	mu      sync.RWMutex
	rng     *rand.Rand
	stocks  map[string]*simStock
	symbols []string // sorted, fixed at construction
}

// NewSimulator creates a Simulator over the default universe. A zero seed
// derives one from the clock.
func NewSimulator(seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Simulator{
		rng:    rand.New(rand.NewSource(seed)),
		stocks: make(map[string]*simStock, len(defaultListings)),
	}
	for _, l := range defaultListings {
		base := decimal.RequireFromString(l.basePrice)
		s.stocks[l.symbol] = &simStock{
			name:       l.name,
			base:       base,
			price:      base,
			volatility: l.volatility,
		}
		s.symbols = append(s.symbols, l.symbol)
	}
	sort.Strings(s.symbols)
	return s
}

// tickRange returns the symmetric per-tick move limit for a bucket.
func tickRange(v Volatility) float64 {
	switch v {
	case VolatilityHigh:
		return 0.05
	case VolatilityMedium:
		return 0.02
	default:
		return 0.01
	}
}

// Tick advances every price one random-walk step.
func (s *Simulator) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.stocks {
		limit := tickRange(st.volatility)
		pct := (s.rng.Float64()*2 - 1) * limit
		next := st.base.InexactFloat64() * (1 + pct)
		st.price = decimal.NewFromFloat(next).Round(2)
	}
}

// Run ticks prices on the given interval until the context is cancelled.
func (s *Simulator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Quote returns the current price for symbol, or domain.ErrUnknownSymbol.
func (s *Simulator) Quote(_ context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stocks[symbol]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}
	return st.price, nil
}

// Snapshot returns the whole universe sorted by symbol, with change and
// percent computed against each listing's base price.
func (s *Simulator) Snapshot() []StockQuote {
	s.mu.Lock()
	defer s.mu.Unlock()

	quotes := make([]StockQuote, 0, len(s.symbols))
	for _, sym := range s.symbols {
		st := s.stocks[sym]
		change := st.price.Sub(st.base)
		percent := 0.0
		if st.base.IsPositive() {
			percent = change.Div(st.base).InexactFloat64() * 100
		}
		quotes = append(quotes, StockQuote{
			Symbol:  sym,
			Name:    st.name,
			Price:   st.price,
			Change:  change,
			Percent: percent,
			Volume:  fmt.Sprintf("%dM", 10+s.rng.Intn(241)),
		})
	}
	return quotes
}
