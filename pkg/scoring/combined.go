package scoring

// Weights of each trailing window in the combined leaderboard score
const (
	WeeklyWeight  = 0.45
	MonthlyWeight = 0.30
	YearlyWeight  = 0.20
	AllTimeWeight = 0.05
)

// EngagementBonusRatio is the share of a delta score awarded when a tracked post grows
const EngagementBonusRatio = 0.25

// PeriodTotals are independently summed point totals for trailing windows
type PeriodTotals struct {
	Weekly  int `json:"weekly"`
	Monthly int `json:"monthly"`
	Yearly  int `json:"yearly"`
	AllTime int `json:"alltime"`
}

// CombinedMSP blends the four period totals into one ranking number.
// It rounds half up so repeated renders of the same totals never flap.
func CombinedMSP(p PeriodTotals) int {
	v := float64(p.Weekly)*WeeklyWeight +
		float64(p.Monthly)*MonthlyWeight +
		float64(p.Yearly)*YearlyWeight +
		float64(p.AllTime)*AllTimeWeight
	if v < 0 {
		return 0
	}
	return roundHalfUp(v)
}

// EngagementBonus returns the points awarded when a tracked post is observed again
// with larger counters. Only the per-counter growth from prev to curr is scored, with
// every other field of in kept as is, and a quarter of that score is awarded.
func EngagementBonus(in Input, prev, curr Engagement) int {
	delta := curr.Delta(prev)
	if delta.IsZero() {
		return 0
	}
	in.Engagement = delta
	return roundHalfUp(float64(CalculateMSP(in)) * EngagementBonusRatio)
}
