// Package gamify holds the gamified platform surface: the achievement
// catalog and the leaderboard. Unlock state lives in the store; this package
// only knows the fixed catalog and the presentation rules.
package gamify

// Achievement names. These are the persisted identifiers, so they never
// change once shipped.
const (
	AchFirstTrade   = "First Trade"
	AchTenDayStreak = "10 Day Streak"
	AchGreenWeek    = "Green Week"
	AchHundredK     = "$100K Portfolio"
	AchTopHundred   = "Top 100"
	AchDayTrader    = "Day Trader"
)

// Achievement is one catalog entry together with its unlock state for a
// particular account.
type Achievement struct {
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Desc     string `json:"desc"`
	Unlocked bool   `json:"unlocked"`
}

var catalog = []Achievement{
	{Name: AchFirstTrade, Icon: "🎯", Desc: "Complete your first trade"},
	{Name: AchTenDayStreak, Icon: "🔥", Desc: "Trade 10 days in a row"},
	{Name: AchGreenWeek, Icon: "💚", Desc: "Finish a week in profit"},
	{Name: AchHundredK, Icon: "💎", Desc: "Reach a $100K portfolio"},
	{Name: AchTopHundred, Icon: "🏆", Desc: "Rank in the top 100 traders"},
	{Name: AchDayTrader, Icon: "⚡", Desc: "Make 5 trades in one day"},
}

// Catalog returns the full achievement list with Unlocked set for every
// name present in unlocked. Order is fixed.
func Catalog(unlocked []string) []Achievement {
	have := make(map[string]bool, len(unlocked))
	for _, name := range unlocked {
		have[name] = true
	}

	out := make([]Achievement, len(catalog))
	copy(out, catalog)
	for i := range out {
		out[i].Unlocked = have[out[i].Name]
	}
	return out
}
