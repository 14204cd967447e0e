package market

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
)

func TestSimulatorQuoteKnownSymbol(t *testing.T) {
	s := NewSimulator(1)
	ctx := context.Background()

	price, err := s.Quote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Quote(AAPL): %v", err)
	}
	if want := decimal.RequireFromString("178.50"); !price.Equal(want) {
		t.Errorf("pre-tick Quote(AAPL) = %s, want base %s", price, want)
	}
}

func TestSimulatorQuoteUnknownSymbol(t *testing.T) {
	s := NewSimulator(1)

	_, err := s.Quote(context.Background(), "XXXX")
	if !errors.Is(err, domain.ErrUnknownSymbol) {
		t.Errorf("Quote(XXXX) error = %v, want ErrUnknownSymbol", err)
	}
}

func TestSimulatorTickStaysInVolatilityRange(t *testing.T) {
	s := NewSimulator(7)
	ctx := context.Background()

	bounds := map[string]float64{
		"JPM":  0.01, // low
		"AAPL": 0.02, // medium
		"TSLA": 0.05, // high
	}
	bases := map[string]decimal.Decimal{}
	for sym := range bounds {
		p, err := s.Quote(ctx, sym)
		if err != nil {
			t.Fatalf("Quote(%s): %v", sym, err)
		}
		bases[sym] = p
	}

	for i := 0; i < 50; i++ {
		s.Tick()
		for sym, limit := range bounds {
			p, err := s.Quote(ctx, sym)
			if err != nil {
				t.Fatalf("Quote(%s): %v", sym, err)
			}
			base := bases[sym].InexactFloat64()
			// Round-to-cent can push a hair past the raw bound.
			lo, hi := base*(1-limit)-0.01, base*(1+limit)+0.01
			got := p.InexactFloat64()
			if got < lo || got > hi {
				t.Fatalf("tick %d: %s price %v outside [%v, %v]", i, sym, got, lo, hi)
			}
			if p.Exponent() < -2 {
				t.Fatalf("%s price %s has more than 2 decimal places", sym, p)
			}
		}
	}
}

func TestSimulatorSnapshot(t *testing.T) {
	s := NewSimulator(3)
	s.Tick()

	quotes := s.Snapshot()
	if len(quotes) != 20 {
		t.Fatalf("Snapshot returned %d quotes, want 20", len(quotes))
	}

	for i := 1; i < len(quotes); i++ {
		if quotes[i-1].Symbol >= quotes[i].Symbol {
			t.Fatalf("Snapshot not sorted: %s before %s", quotes[i-1].Symbol, quotes[i].Symbol)
		}
	}

	for _, q := range quotes {
		if q.Name == "" {
			t.Errorf("%s: empty company name", q.Symbol)
		}
		if !q.Price.IsPositive() {
			t.Errorf("%s: non-positive price %s", q.Symbol, q.Price)
		}
		if q.Volume == "" {
			t.Errorf("%s: empty volume", q.Symbol)
		}
	}
}

func TestSimulatorDeterministicWithSeed(t *testing.T) {
	a, b := NewSimulator(99), NewSimulator(99)
	a.Tick()
	b.Tick()

	pa, _ := a.Quote(context.Background(), "NVDA")
	pb, _ := b.Quote(context.Background(), "NVDA")
	if !pa.Equal(pb) {
		t.Errorf("same seed diverged: %s vs %s", pa, pb)
	}
}
