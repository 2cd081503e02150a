package analysis

import (
	"math"
	"sort"

	"github.com/COG-GTM/devin-hhs/refdata"
)

// Efficiency categories cross FMAP quartile with per-capita spending
// quartile. States outside the corner cells are MIDDLE.
const (
	HighFMAPHighSpend = "HIGH_FMAP_HIGH_SPEND"
	HighFMAPLowSpend  = "HIGH_FMAP_LOW_SPEND"
	LowFMAPHighSpend  = "LOW_FMAP_HIGH_SPEND"
	LowFMAPLowSpend   = "LOW_FMAP_LOW_SPEND"
	EfficiencyMiddle  = "MIDDLE"

	topSpenderLimit = 10
)

type StateEfficiency struct {
	State            string  `json:"state"`
	StateName        string  `json:"stateName"`
	FMAP             float64 `json:"fmapRate"`
	PerCapita        float64 `json:"perCapita"`
	TotalSpending    float64 `json:"totalSpending"`
	ExpansionStatus  string  `json:"expansionStatus"`
	FMAPQuartile     int     `json:"fmapQuartile"`
	SpendingQuartile int     `json:"spendingQuartile"`
	Category         string  `json:"efficiencyCategory"`
}

type EfficiencyGroup struct {
	Category     string   `json:"efficiencyCategory"`
	States       int      `json:"states"`
	AvgPerCapita float64  `json:"avgPerCapita"`
	StateList    []string `json:"stateList"`
}

// EfficiencyAnalysis relates federal match to spending per resident.
type EfficiencyAnalysis struct {
	ExpansionAvgPerCapita    float64 `json:"expansionAvgPerCapita"`
	NonExpansionAvgPerCapita float64 `json:"nonExpansionAvgPerCapita"`
	// ExpansionPremium is how much more expansion states spend per
	// resident, in whole percent. Nil without non-expansion spending.
	ExpansionPremium *float64          `json:"expansionPremium"`
	Categories       []EfficiencyGroup `json:"efficiencyCategories"`
	// TopSpenders are the high-spend corner states by per-capita spending.
	TopSpenders []StateEfficiency `json:"topSpenders"`
	AllStates   []StateEfficiency `json:"allStates"`
}

// ntileSizes returns the group sizes NTILE(k) produces for n rows: the
// first n%k groups get one extra member.
func ntileSizes(n, k int) []int {
	sizes := make([]int, k)
	for i := range sizes {
		sizes[i] = n / k
		if i < n%k {
			sizes[i]++
		}
	}
	return sizes
}

// quartiles assigns each index its 1-based quartile after ordering by less.
func quartiles(n int, less func(a, b int) bool) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return less(idx[a], idx[b]) })

	q := make([]int, n)
	start := 0
	for g, size := range ntileSizes(n, 4) {
		for _, i := range idx[start : start+size] {
			q[i] = g + 1
		}
		start += size
	}
	return q
}

func efficiencyCategory(fmapQ, spendQ int) string {
	switch {
	case fmapQ == 4 && spendQ == 4:
		return HighFMAPHighSpend
	case fmapQ == 4 && spendQ == 1:
		return HighFMAPLowSpend
	case fmapQ == 1 && spendQ == 4:
		return LowFMAPHighSpend
	case fmapQ == 1 && spendQ == 1:
		return LowFMAPLowSpend
	default:
		return EfficiencyMiddle
	}
}

// Efficiency cross-tabulates FMAP quartile against per-capita spending
// quartile over states with both an FMAP row and a per-capita figure.
func Efficiency(fmap []refdata.FMAP, states []StateRow) EfficiencyAnalysis {
	fs, ss := joined(fmap, states)
	byCode := func(a, b int) bool { return fs[a].StateCode < fs[b].StateCode }
	fq := quartiles(len(fs), func(a, b int) bool {
		if fs[a].FY2024 != fs[b].FY2024 {
			return fs[a].FY2024 < fs[b].FY2024
		}
		return byCode(a, b)
	})
	sq := quartiles(len(ss), func(a, b int) bool {
		if *ss[a].PerCapita != *ss[b].PerCapita {
			return *ss[a].PerCapita < *ss[b].PerCapita
		}
		return byCode(a, b)
	})

	out := EfficiencyAnalysis{
		Categories:  []EfficiencyGroup{},
		TopSpenders: []StateEfficiency{},
		AllStates:   make([]StateEfficiency, len(fs)),
	}
	var expSum, nonSum float64
	var expN, nonN int
	for i, f := range fs {
		pc := *ss[i].PerCapita
		out.AllStates[i] = StateEfficiency{
			State:            f.StateCode,
			StateName:        ss[i].StateName,
			FMAP:             f.FY2024,
			PerCapita:        round2(pc),
			TotalSpending:    ss[i].Spending,
			ExpansionStatus:  f.ExpansionStatus,
			FMAPQuartile:     fq[i],
			SpendingQuartile: sq[i],
			Category:         efficiencyCategory(fq[i], sq[i]),
		}
		if f.Expanded() {
			expSum += pc
			expN++
		} else {
			nonSum += pc
			nonN++
		}
	}
	sort.SliceStable(out.AllStates, func(a, b int) bool {
		return out.AllStates[a].PerCapita > out.AllStates[b].PerCapita
	})

	if expN > 0 {
		out.ExpansionAvgPerCapita = math.Round(expSum / float64(expN))
	}
	if nonN > 0 {
		out.NonExpansionAvgPerCapita = math.Round(nonSum / float64(nonN))
	}
	if r, ok := Ratio(out.ExpansionAvgPerCapita, out.NonExpansionAvgPerCapita); ok && expN > 0 {
		p := math.Round((r - 1) * 100)
		out.ExpansionPremium = &p
	}

	groups := map[string]*EfficiencyGroup{}
	pcSum := map[string]float64{}
	for _, s := range out.AllStates {
		if s.Category == EfficiencyMiddle {
			continue
		}
		g, ok := groups[s.Category]
		if !ok {
			g = &EfficiencyGroup{Category: s.Category, StateList: []string{}}
			groups[s.Category] = g
		}
		g.States++
		g.StateList = append(g.StateList, s.StateName)
		pcSum[s.Category] += s.PerCapita

		if (s.Category == HighFMAPHighSpend || s.Category == LowFMAPHighSpend) && len(out.TopSpenders) < topSpenderLimit {
			out.TopSpenders = append(out.TopSpenders, s)
		}
	}
	for cat, g := range groups {
		g.AvgPerCapita = math.Round(pcSum[cat] / float64(g.States))
		out.Categories = append(out.Categories, *g)
	}
	sort.Slice(out.Categories, func(i, j int) bool { return out.Categories[i].Category < out.Categories[j].Category })
	return out
}
