package gamify

import "github.com/shopspring/decimal"

// LeaderboardEntry is one row of the global leaderboard.
type LeaderboardEntry struct {
	Rank   int     `json:"rank"`
	Name   string  `json:"name"`
	Return float64 `json:"return"`
	Trades int     `json:"trades"`
	Badge  string  `json:"badge"`
}

// UserStats summarises the requesting account's standing relative to the
// leaderboard population.
type UserStats struct {
	Rank           int     `json:"rank"`
	TotalUsers     int     `json:"total_users"`
	Streak         int     `json:"streak"`
	Level          string  `json:"level"`
	XP             int     `json:"xp"`
	NextLevelXP    int     `json:"next_level_xp"`
	PortfolioValue float64 `json:"portfolio_value"`
	DailyChange    float64 `json:"daily_change"`
}

// Top-10 board. Curated rather than computed: the simulated population
// exists to give new accounts something to climb toward.
var board = []LeaderboardEntry{
	{Rank: 1, Name: "TradeMaster_99", Return: 147.3, Trades: 45, Badge: "🏆"},
	{Rank: 2, Name: "BullMarket_King", Return: 132.8, Trades: 38, Badge: "🥈"},
	{Rank: 3, Name: "DiamondHands_Pro", Return: 128.5, Trades: 31, Badge: "🥉"},
	{Rank: 4, Name: "MoonShot_Trader", Return: 119.2, Trades: 28, Badge: "⭐"},
	{Rank: 5, Name: "StockWhiz_AI", Return: 115.7, Trades: 25, Badge: ""},
	{Rank: 6, Name: "RocketTrader_X", Return: 108.3, Trades: 22, Badge: ""},
	{Rank: 7, Name: "Alpha_Seeker", Return: 102.5, Trades: 20, Badge: ""},
	{Rank: 8, Name: "Market_Maven", Return: 98.7, Trades: 18, Badge: ""},
	{Rank: 9, Name: "Trade_Genius", Return: 94.3, Trades: 15, Badge: ""},
	{Rank: 10, Name: "Portfolio_Pro", Return: 89.1, Trades: 12, Badge: ""},
}

// Leaderboard returns the top-10 board.
func Leaderboard() []LeaderboardEntry {
	out := make([]LeaderboardEntry, len(board))
	copy(out, board)
	return out
}

// StatsFor derives the account's leaderboard stats from its current
// portfolio value. Daily change is measured against the standard starting
// balance.
func StatsFor(portfolioValue, startingCash decimal.Decimal) UserStats {
	change := decimal.Zero
	if !startingCash.IsZero() {
		change = portfolioValue.Sub(startingCash).
			Div(startingCash).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	return UserStats{
		Rank:           100,
		TotalUsers:     12453,
		Level:          "Beginner",
		XP:             0,
		NextLevelXP:    1000,
		PortfolioValue: portfolioValue.Round(2).InexactFloat64(),
		DailyChange:    change.InexactFloat64(),
	}
}
