package outlier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Profile names an analogy table.
type Profile string

const (
	// ProfileGeneral is used for provider, HCPCS and mismatch z-scores.
	ProfileGeneral Profile = "general"
	// ProfileFederal is used for state per-capita outliers.
	ProfileFederal Profile = "federal"
)

// ParseProfile validates a profile name.
func ParseProfile(name string) (Profile, error) {
	switch p := Profile(name); p {
	case ProfileGeneral, ProfileFederal:
		return p, nil
	default:
		return "", fmt.Errorf("unknown analogy profile %q", name)
	}
}

// Analogy describes how rare a z-score is in human terms.
type Analogy struct {
	Probability     string  `json:"probability"`
	Analogy         string  `json:"analogy"`
	Severity        string  `json:"severity"`
	Color           string  `json:"color,omitempty"`
	TailProbability float64 `json:"tailProbability"`
}

// tier matches |z| against min; inclusive selects >= instead of >.
type tier struct {
	min       float64
	inclusive bool
	analogy   Analogy
}

func (t tier) matches(absZ float64) bool {
	if t.inclusive {
		return absZ >= t.min
	}
	return absZ > t.min
}

// Ordered highest first; the last entry of each table is the fallback.
var generalTiers = []tier{
	{6, true, Analogy{Probability: "1 in 500 million", Analogy: "Rarer than being struck by lightning twice in one year", Color: "bg-purple-900 text-white", Severity: "astronomical"}},
	{5, true, Analogy{Probability: "1 in 3.5 million", Analogy: "Like winning a state lottery jackpot", Color: "bg-red-900 text-white", Severity: "astronomical"}},
	{4.5, true, Analogy{Probability: "1 in 300,000", Analogy: "Odds of being struck by lightning in your lifetime", Color: "bg-red-700 text-white", Severity: "extreme"}},
	{4, true, Analogy{Probability: "1 in 31,574", Analogy: "Finding a four-leaf clover on your first try", Color: "bg-red-600 text-white", Severity: "extreme"}},
	{3.5, true, Analogy{Probability: "1 in 4,300", Analogy: "Being dealt a flush in poker on the first hand", Color: "bg-orange-600 text-white", Severity: "extreme"}},
	{3, true, Analogy{Probability: "1 in 741", Analogy: "Rolling the same number on a die five times in a row", Color: "bg-orange-500 text-black", Severity: "high"}},
	{math.Inf(-1), true, Analogy{Probability: "1 in 44", Analogy: "Above 2 standard deviations", Color: "bg-yellow-400 text-black", Severity: "high"}},
}

var federalTiers = []tier{
	{4, false, Analogy{Probability: "1 in 31,560", Analogy: "A specific person being struck by lightning in a given year", Severity: "extreme"}},
	{3, false, Analogy{Probability: "1 in 741", Analogy: "Rolling six 6's in a row on a fair die", Severity: "very high"}},
	{2.5, false, Analogy{Probability: "1 in 161", Analogy: "Drawing 4 aces from a shuffled deck in the first 4 cards", Severity: "high"}},
	{2, false, Analogy{Probability: "1 in 44", Analogy: "Flipping heads 5 times in a row", Severity: "notable"}},
	{math.Inf(-1), true, Analogy{Probability: "1 in 10", Analogy: "Rolling a 1 on a 10-sided die", Severity: "moderate"}},
}

var standardNormal = distuv.Normal{Mu: 0, Sigma: 1}

// AnalogyFor returns the analogy of z under profile p. Unknown profiles use
// the general table.
func AnalogyFor(p Profile, z float64) Analogy {
	tiers := generalTiers
	if p == ProfileFederal {
		tiers = federalTiers
	}

	absZ := math.Abs(z)
	var a Analogy
	for _, t := range tiers {
		if t.matches(absZ) {
			a = t.analogy
			break
		}
	}
	a.TailProbability = TailProbability(z)
	return a
}

// TailProbability is the two-sided standard normal tail P(|Z| >= |z|).
func TailProbability(z float64) float64 {
	return 2 * standardNormal.Survival(math.Abs(z))
}
