package riot

import "fmt"

// Tier order for comparison (higher index = higher rank)
var TierOrder = map[string]int{
	"IRON":        0,
	"BRONZE":      1,
	"SILVER":      2,
	"GOLD":        3,
	"PLATINUM":    4,
	"EMERALD":     5,
	"DIAMOND":     6,
	"MASTER":      7,
	"GRANDMASTER": 8,
	"CHALLENGER":  9,
}

// Division order (higher index = higher rank within tier)
var DivisionOrder = map[string]int{
	"IV":  0,
	"III": 1,
	"II":  2,
	"I":   3,
}

// DivisionedTiers are the tiers the league-v4 entries endpoint pages by division.
// Master and above are single leagues with no divisions.
var DivisionedTiers = []string{"IRON", "BRONZE", "SILVER", "GOLD", "PLATINUM", "EMERALD", "DIAMOND"}

// Divisions in the order the ladder is usually walked
var Divisions = []string{"I", "II", "III", "IV"}

// Bracket is one tier/division pair of the ranked ladder
type Bracket struct {
	Tier     string
	Division string
}

// String renders the rank as "GOLD I"
func (b Bracket) String() string {
	return b.Tier + " " + b.Division
}

// Brackets returns tiers x divisions in the given list order
func Brackets(tiers, divisions []string) []Bracket {
	out := make([]Bracket, 0, len(tiers)*len(divisions))
	for _, tier := range tiers {
		for _, division := range divisions {
			out = append(out, Bracket{Tier: tier, Division: division})
		}
	}
	return out
}

// IsDivisionedTier reports whether tier is one of IRON..DIAMOND
func IsDivisionedTier(tier string) bool {
	idx, ok := TierOrder[tier]
	return ok && idx < TierOrder["MASTER"]
}

// ValidateBracketLists checks configured tiers and divisions before a walk
func ValidateBracketLists(tiers, divisions []string) error {
	if len(tiers) == 0 {
		return fmt.Errorf("no tiers configured")
	}
	if len(divisions) == 0 {
		return fmt.Errorf("no divisions configured")
	}
	seen := make(map[string]bool, len(tiers))
	for _, tier := range tiers {
		if !IsDivisionedTier(tier) {
			return fmt.Errorf("unsupported tier %q (expected one of %v)", tier, DivisionedTiers)
		}
		// Each tier owns one output file
		if seen[tier] {
			return fmt.Errorf("tier %q listed twice", tier)
		}
		seen[tier] = true
	}
	for _, division := range divisions {
		if _, ok := DivisionOrder[division]; !ok {
			return fmt.Errorf("unsupported division %q (expected one of %v)", division, Divisions)
		}
	}
	return nil
}
