package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/COG-GTM/devin-hhs/money"
	"github.com/COG-GTM/devin-hhs/refdata"
)

// FMAPFloor is the statutory minimum federal match.
const FMAPFloor = 50.0

type Insight struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Finding     string `json:"finding"`
	Implication string `json:"implication"`
	Severity    string `json:"severity"`
}

type KeyMetric struct {
	Label   string `json:"label"`
	Value   string `json:"value"`
	Context string `json:"context"`
}

// ExpansionGroup aggregates the states sharing one expansion status.
type ExpansionGroup struct {
	ExpansionStatus string       `json:"expansionStatus"`
	States          int          `json:"states"`
	AvgFMAP         float64      `json:"avgFmap"`
	AvgPerCapita    float64      `json:"avgPerCapita"`
	TotalSpending   money.Amount `json:"totalSpending"`
}

// FMAPQuartile is one of four equal-count groups of states ordered by FMAP.
type FMAPQuartile struct {
	Quartile            int          `json:"quartile"`
	Label               string       `json:"label"`
	States              []string     `json:"states"`
	AvgFMAP             float64      `json:"avgFmap"`
	AvgPerCapita        float64      `json:"avgPerCapita"`
	TotalSpending       money.Amount `json:"totalSpending"`
	AvgFederalPerCapita float64      `json:"avgFederalPerCapita"`
}

// FederalReport is the FMAP overview of all jurisdictions.
type FederalReport struct {
	Summary            string             `json:"summary"`
	Insights           []Insight          `json:"insights"`
	KeyMetrics         []KeyMetric        `json:"keyMetrics"`
	PolicyImplications []string           `json:"policyImplications"`
	Expansion          []ExpansionGroup   `json:"expansionAnalysis"`
	Quartiles          []FMAPQuartile     `json:"fmapQuartiles"`
	Efficiency         EfficiencyAnalysis `json:"efficiency"`
	// FMAPSpendingCorrelation is the Pearson correlation between FY2024
	// FMAP and per-capita spending, nil with fewer than two states.
	FMAPSpendingCorrelation *float64     `json:"fmapSpendingCorrelation"`
	TotalSpending           money.Amount `json:"totalSpending"`
	FederalDollars          money.Amount `json:"federalDollars"`
	StateDollars            money.Amount `json:"stateDollars"`
	Methodology             string       `json:"methodology"`
	GeneratedAt             time.Time    `json:"generatedAt"`
}

var quartileLabels = [4]string{
	"Low FMAP (50-58%)",
	"Medium-Low (58-65%)",
	"Medium-High (65-70%)",
	"High FMAP (70-79%)",
}

const federalMethodology = "Analysis based on CMS Federal Medical Assistance Percentage (FMAP) rates for FY2022-2024, " +
	"state Medicaid expansion status as of 2024, and state Medicaid spending with Census 2020 population. " +
	"FMAP rates determine the federal share of most Medicaid expenditures, with rates recalculated annually " +
	"based on state per-capita income relative to national averages."

// FederalAnalysis derives the FMAP overview from the joined state rows and
// the FMAP table. It returns nil when fmap is empty.
func FederalAnalysis(fmap []refdata.FMAP, states []StateRow, now time.Time) *FederalReport {
	if len(fmap) == 0 {
		return nil
	}

	var expansion, nonExpansion []refdata.FMAP
	highest, lowest, biggest := fmap[0], fmap[0], fmap[0]
	var atFloor []string
	var fmapSum float64
	for _, f := range fmap {
		if f.Expanded() {
			expansion = append(expansion, f)
		} else {
			nonExpansion = append(nonExpansion, f)
		}
		if f.FY2024 > highest.FY2024 {
			highest = f
		}
		if f.FY2024 < lowest.FY2024 {
			lowest = f
		}
		if f.FY2024-f.FY2022 > biggest.FY2024-biggest.FY2022 {
			biggest = f
		}
		if f.FY2024 == FMAPFloor {
			atFloor = append(atFloor, f.StateCode)
		}
		fmapSum += f.FY2024
	}
	avgExp := meanFMAP(expansion)
	avgNon := meanFMAP(nonExpansion)
	gap := avgExp - avgNon
	avgFMAP := fmapSum / float64(len(fmap))

	r := &FederalReport{
		Summary: fmt.Sprintf("Analysis of %d states and territories reveals significant variation in Federal Medical "+
			"Assistance Percentage (FMAP) rates, ranging from %g%% to %g%%. %d states have expanded Medicaid under "+
			"the ACA, with an average FMAP of %.1f%%, compared to %.1f%% for non-expansion states.",
			len(fmap), lowest.FY2024, highest.FY2024, len(expansion), avgExp, avgNon),
		Insights: []Insight{
			{
				Category:    "FMAP Distribution",
				Title:       fmt.Sprintf("%d States at Federal Minimum", len(atFloor)),
				Finding:     fmt.Sprintf("%s receive the statutory minimum FMAP of 50%%. These are typically higher-income states where per-capita income exceeds the national average.", strings.Join(atFloor, ", ")),
				Implication: "These states bear a higher share of Medicaid costs relative to federal contribution, potentially affecting program generosity and provider reimbursement rates.",
				Severity:    "notable",
			},
			{
				Category:    "Expansion Impact",
				Title:       fmt.Sprintf("Expansion States Average %.1f%% Higher FMAP", gap),
				Finding:     fmt.Sprintf("States that expanded Medicaid have an average FMAP of %.1f%%, while non-expansion states average %.1f%%. This %.1f percentage point difference reflects the correlation between expansion decisions and state economic factors.", avgExp, avgNon, gap),
				Implication: "Higher FMAP rates in expansion states may indicate that federal matching incentives successfully encouraged expansion in states where the financial benefit was greatest.",
				Severity:    "significant",
			},
			{
				Category:    "Geographic Concentration",
				Title:       fmt.Sprintf("%s Leads at %g%% FMAP", highest.StateName, highest.FY2024),
				Finding:     fmt.Sprintf("%s has the highest FMAP rate at %g%%, meaning the federal government covers nearly %.0f%% of Medicaid costs. This reflects the state's lower per-capita income relative to national averages.", highest.StateName, highest.FY2024, math.Round(highest.FY2024)),
				Implication: "High FMAP states receive proportionally more federal support, which can enable broader coverage but also creates dependency on federal funding decisions.",
				Severity:    "info",
			},
			{
				Category:    "Trend Analysis",
				Title:       fmt.Sprintf("%s Saw Largest FMAP Increase", biggest.StateName),
				Finding:     fmt.Sprintf("From FY2022 to FY2024, %s experienced the largest FMAP increase of %.2f percentage points (%g%% to %g%%).", biggest.StateName, biggest.FY2024-biggest.FY2022, biggest.FY2022, biggest.FY2024),
				Implication: "FMAP changes reflect economic shifts in state per-capita income relative to national averages, affecting state budget planning for Medicaid.",
				Severity:    "info",
			},
			{
				Category:    "Non-Expansion Analysis",
				Title:       fmt.Sprintf("%d States Have Not Expanded Medicaid", len(nonExpansion)),
				Finding:     fmt.Sprintf("%s have not adopted Medicaid expansion. These states leave federal matching funds unclaimed and maintain coverage gaps for adults with incomes between 100-138%% of poverty.", strings.Join(stateCodes(nonExpansion), ", ")),
				Implication: "An estimated 2+ million uninsured adults fall into the coverage gap in non-expansion states, with significant implications for healthcare access and outcomes.",
				Severity:    "significant",
			},
		},
		KeyMetrics: []KeyMetric{
			{Label: "Average FMAP", Value: fmt.Sprintf("%.2f%%", avgFMAP), Context: "Federal share of Medicaid costs"},
			{Label: "FMAP Range", Value: fmt.Sprintf("%g%% - %g%%", lowest.FY2024, highest.FY2024), Context: "Lowest to highest rate"},
			{Label: "Expansion Gap", Value: fmt.Sprintf("%.1f%%", gap), Context: "Avg difference in FMAP"},
		},
		PolicyImplications: []string{
			fmt.Sprintf("The %d states at the 50%% FMAP floor account for a disproportionate share of total Medicaid spending, as they include the most populous states.", len(atFloor)),
			"Non-expansion states collectively forgo billions in federal matching funds annually, affecting healthcare access for low-income adults and hospital financial stability.",
			fmt.Sprintf("FMAP formula changes would have outsized impacts on high-rate states like %s (%g%%), where state budgets are heavily dependent on federal Medicaid matching.", highest.StateName, highest.FY2024),
			"The correlation between expansion status and FMAP rates suggests economic factors play a significant role in expansion decisions, beyond political considerations.",
		},
		Methodology: federalMethodology,
		GeneratedAt: now.UTC(),
	}

	r.Expansion = expansionGroups(fmap, states)
	r.Quartiles = fmapQuartiles(fmap, states)
	r.Efficiency = Efficiency(fmap, states)
	r.FMAPSpendingCorrelation = fmapCorrelation(fmap, states)
	r.TotalSpending, r.FederalDollars = federalDollars(fmap, states)
	r.StateDollars = r.TotalSpending.Sub(r.FederalDollars)
	return r
}

func meanFMAP(rows []refdata.FMAP) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, f := range rows {
		sum += f.FY2024
	}
	return sum / float64(len(rows))
}

func stateCodes(rows []refdata.FMAP) []string {
	codes := make([]string, len(rows))
	for i, f := range rows {
		codes[i] = f.StateCode
	}
	return codes
}

// joined pairs FMAP rows with state rows that have a per-capita value.
func joined(fmap []refdata.FMAP, states []StateRow) ([]refdata.FMAP, []StateRow) {
	byCode := make(map[string]StateRow, len(states))
	for _, s := range states {
		byCode[s.State] = s
	}
	var fs []refdata.FMAP
	var ss []StateRow
	for _, f := range fmap {
		s, ok := byCode[f.StateCode]
		if !ok || s.PerCapita == nil {
			continue
		}
		fs = append(fs, f)
		ss = append(ss, s)
	}
	return fs, ss
}

func amountOf(v float64) money.Amount {
	a, err := money.FromFloat(v)
	if err != nil {
		return money.Amount{}
	}
	return a
}

func expansionGroups(fmap []refdata.FMAP, states []StateRow) []ExpansionGroup {
	fs, ss := joined(fmap, states)
	groups := map[string]*ExpansionGroup{}
	perCapitaSum := map[string]float64{}
	fmapSum := map[string]float64{}
	for i, f := range fs {
		g, ok := groups[f.ExpansionStatus]
		if !ok {
			g = &ExpansionGroup{ExpansionStatus: f.ExpansionStatus}
			groups[f.ExpansionStatus] = g
		}
		g.States++
		g.TotalSpending = g.TotalSpending.Add(amountOf(ss[i].Spending))
		perCapitaSum[f.ExpansionStatus] += *ss[i].PerCapita
		fmapSum[f.ExpansionStatus] += f.FY2024
	}

	out := make([]ExpansionGroup, 0, len(groups))
	for status, g := range groups {
		g.AvgPerCapita = round2(perCapitaSum[status] / float64(g.States))
		g.AvgFMAP = round2(fmapSum[status] / float64(g.States))
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpansionStatus < out[j].ExpansionStatus })
	return out
}

// fmapQuartiles splits states into four groups by FMAP the way NTILE(4)
// does.
func fmapQuartiles(fmap []refdata.FMAP, states []StateRow) []FMAPQuartile {
	fs, ss := joined(fmap, states)
	idx := make([]int, len(fs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if fs[idx[a]].FY2024 != fs[idx[b]].FY2024 {
			return fs[idx[a]].FY2024 < fs[idx[b]].FY2024
		}
		return fs[idx[a]].StateCode < fs[idx[b]].StateCode
	})

	out := make([]FMAPQuartile, 0, 4)
	start := 0
	for q, size := range ntileSizes(len(idx), 4) {
		if size == 0 {
			continue
		}
		quart := FMAPQuartile{Quartile: q + 1, Label: quartileLabels[q], States: []string{}}
		var fmapSum, pcSum, fedPCSum float64
		for _, i := range idx[start : start+size] {
			f, s := fs[i], ss[i]
			quart.States = append(quart.States, f.StateCode)
			fmapSum += f.FY2024
			pcSum += *s.PerCapita
			fedPCSum += *s.PerCapita * f.FY2024 / 100
			quart.TotalSpending = quart.TotalSpending.Add(amountOf(s.Spending))
		}
		quart.AvgFMAP = round2(fmapSum / float64(size))
		quart.AvgPerCapita = round2(pcSum / float64(size))
		quart.AvgFederalPerCapita = round2(fedPCSum / float64(size))
		out = append(out, quart)
		start += size
	}
	return out
}

func fmapCorrelation(fmap []refdata.FMAP, states []StateRow) *float64 {
	fs, ss := joined(fmap, states)
	if len(fs) < 2 {
		return nil
	}
	x := make([]float64, len(fs))
	y := make([]float64, len(fs))
	for i := range fs {
		x[i] = fs[i].FY2024
		y[i] = *ss[i].PerCapita
	}
	c := stat.Correlation(x, y, nil)
	if !finite(c) {
		return nil
	}
	c = math.Round(c*1000) / 1000
	return &c
}

// federalDollars returns total spending and the federal share at each
// state's FY2024 FMAP, summed exactly.
func federalDollars(fmap []refdata.FMAP, states []StateRow) (money.Amount, money.Amount) {
	rates := make(map[string]float64, len(fmap))
	for _, f := range fmap {
		rates[f.StateCode] = f.FY2024
	}
	var total, federal money.Amount
	for _, s := range states {
		rate, ok := rates[s.State]
		if !ok {
			rate = defaultFMAP
		}
		spend := amountOf(s.Spending)
		total = total.Add(spend)
		federal = federal.Add(spend.MulPct(rate))
	}
	return total, federal.Round(2)
}
