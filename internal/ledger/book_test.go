package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
)

func TestBuyIntoOpensPosition(t *testing.T) {
	now := time.Now()
	pos := buyInto(nil, "acct-1", "AAPL", 10, decimal.RequireFromString("178.50"), now)

	if pos.Shares != 10 {
		t.Errorf("Shares = %d, want 10", pos.Shares)
	}
	if want := decimal.RequireFromString("178.50"); !pos.AvgPrice.Equal(want) {
		t.Errorf("AvgPrice = %s, want %s", pos.AvgPrice, want)
	}
}

func TestBuyIntoWeightedAverage(t *testing.T) {
	now := time.Now()
	first := buyInto(nil, "acct-1", "AAPL", 10, decimal.RequireFromString("178.50"), now)
	second := buyInto(&first, "acct-1", "AAPL", 5, decimal.RequireFromString("181.50"), now)

	if second.Shares != 15 {
		t.Errorf("Shares = %d, want 15", second.Shares)
	}
	// (10*178.50 + 5*181.50) / 15 = 179.50, exact.
	if want := decimal.RequireFromString("179.50"); !second.AvgPrice.Equal(want) {
		t.Errorf("AvgPrice = %s, want %s", second.AvgPrice, want)
	}
}

func TestBuyIntoNoRoundingDrift(t *testing.T) {
	now := time.Now()
	// Three buys whose weighted mean is not representable in 2 digits at
	// intermediate steps: 1@10.00, 1@10.01, 1@10.01 → avg 10.006666...
	pos := buyInto(nil, "acct-1", "PG", 1, decimal.RequireFromString("10.00"), now)
	pos = buyInto(&pos, "acct-1", "PG", 1, decimal.RequireFromString("10.01"), now)
	pos = buyInto(&pos, "acct-1", "PG", 1, decimal.RequireFromString("10.01"), now)

	// Total cost must be recoverable exactly to the cent.
	total := pos.AvgPrice.Mul(decimal.NewFromInt(pos.Shares)).Round(2)
	if want := decimal.RequireFromString("30.02"); !total.Equal(want) {
		t.Errorf("recovered cost = %s, want %s", total, want)
	}
}

func TestSellFromKeepsAverage(t *testing.T) {
	now := time.Now()
	pos := domain.Position{
		AccountID: "acct-1", Symbol: "AAPL", Shares: 15,
		AvgPrice: decimal.RequireFromString("179.50"), UpdatedAt: now,
	}

	remaining, err := sellFrom(&pos, 5, now)
	if err != nil {
		t.Fatalf("sellFrom: %v", err)
	}
	if remaining.Shares != 10 {
		t.Errorf("Shares = %d, want 10", remaining.Shares)
	}
	if !remaining.AvgPrice.Equal(pos.AvgPrice) {
		t.Errorf("AvgPrice changed on sell: %s, want %s", remaining.AvgPrice, pos.AvgPrice)
	}
}

func TestSellFromToZero(t *testing.T) {
	now := time.Now()
	pos := domain.Position{
		AccountID: "acct-1", Symbol: "AAPL", Shares: 15,
		AvgPrice: decimal.RequireFromString("179.50"), UpdatedAt: now,
	}

	remaining, err := sellFrom(&pos, 15, now)
	if err != nil {
		t.Fatalf("sellFrom: %v", err)
	}
	if remaining.Shares != 0 {
		t.Errorf("Shares = %d, want 0 (position to be deleted)", remaining.Shares)
	}
}

func TestSellFromInsufficient(t *testing.T) {
	now := time.Now()
	pos := domain.Position{
		AccountID: "acct-1", Symbol: "AAPL", Shares: 15,
		AvgPrice: decimal.RequireFromString("179.50"), UpdatedAt: now,
	}

	if _, err := sellFrom(&pos, 20, now); !errors.Is(err, domain.ErrInsufficientShares) {
		t.Errorf("oversell error = %v, want ErrInsufficientShares", err)
	}
	if _, err := sellFrom(nil, 1, now); !errors.Is(err, domain.ErrInsufficientShares) {
		t.Errorf("sell with no position error = %v, want ErrInsufficientShares", err)
	}
}
