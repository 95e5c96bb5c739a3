package scoring

import "fmt"

// Tier is an author's reward tier. Tiers are assigned outside this package.
type Tier int

const (
	TierBronze Tier = iota + 1
	TierSilver
	TierGold
	TierPlatinum
	TierDiamond
)

var tierMultipliers = map[Tier]float64{
	TierBronze:   1.0,
	TierSilver:   1.5,
	TierGold:     2.0,
	TierPlatinum: 2.5,
	TierDiamond:  3.0,
}

// Multiplier returns the tier's score multiplier; unknown tiers count as bronze
func (t Tier) Multiplier() float64 {
	if m, ok := tierMultipliers[t]; ok {
		return m
	}
	return 1.0
}

func (t Tier) String() string {
	switch t {
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	case TierPlatinum:
		return "platinum"
	case TierDiamond:
		return "diamond"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}
