package analysis

import (
	"math"
	"strconv"

	"github.com/COG-GTM/devin-hhs/outlier"
	"github.com/COG-GTM/devin-hhs/refdata"
)

const (
	defaultFMAP      = 50.0
	defaultExpansion = "N"
	measurePerCapita = "per_capita"
	measurePop       = "population"
)

// StateRow joins a jurisdiction's spending and population with its FMAP.
type StateRow struct {
	State           string   `json:"state"`
	StateName       string   `json:"stateName"`
	Spending        float64  `json:"spending"`
	Population      int64    `json:"population"`
	PerCapita       *float64 `json:"perCapita"`
	FMAP            float64  `json:"fmap"`
	ExpansionStatus string   `json:"expansionStatus"`
}

// JoinStates combines spending rows with FMAP rows by state code. States
// without an FMAP row get the statutory 50% floor and are treated as
// non-expansion. A recorded per-capita figure is kept; otherwise it is
// derived, and left nil for a zero population.
func JoinStates(spending []refdata.StateSpending, fmap []refdata.FMAP, stateName func(string) string) []StateRow {
	byCode := make(map[string]refdata.FMAP, len(fmap))
	for _, f := range fmap {
		byCode[f.StateCode] = f
	}

	rows := make([]StateRow, 0, len(spending))
	for _, s := range spending {
		row := StateRow{
			State:           s.State,
			StateName:       s.State,
			Spending:        s.Spending,
			Population:      s.Population,
			FMAP:            defaultFMAP,
			ExpansionStatus: defaultExpansion,
		}
		if stateName != nil {
			row.StateName = stateName(s.State)
		}
		if f, ok := byCode[s.State]; ok {
			row.FMAP = f.FY2024
			row.ExpansionStatus = f.ExpansionStatus
		}

		switch {
		case s.PerCapita > 0 && finite(s.PerCapita):
			pc := s.PerCapita
			row.PerCapita = &pc
		default:
			if pc, ok := Ratio(s.Spending, float64(s.Population)); ok {
				row.PerCapita = &pc
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// StateOutlier is one scored jurisdiction.
type StateOutlier struct {
	State           string           `json:"state"`
	StateName       string           `json:"stateName"`
	Spending        float64          `json:"spending"`
	Population      int64            `json:"population"`
	PerCapita       float64          `json:"perCapita"`
	PerCapitaZScore *float64         `json:"perCapitaZScore"`
	FMAP            float64          `json:"fmap"`
	ExpansionStatus string           `json:"expansionStatus"`
	Analogy         *outlier.Analogy `json:"analogy"`
	Analysis        string           `json:"analysis"`
}

// FederalOutlierSummary summarises the state analysis. TopOutlier is the
// highest high outlier and BottomOutlier the lowest low outlier, "N/A" when
// the bucket is empty.
type FederalOutlierSummary struct {
	TotalStates       int     `json:"totalStates"`
	NationalPerCapita float64 `json:"nationalPerCapita"`
	StandardDeviation float64 `json:"standardDeviation"`
	HighOutliers      int     `json:"highOutliers"`
	LowOutliers       int     `json:"lowOutliers"`
	TopOutlier        string  `json:"topOutlier"`
	BottomOutlier     string  `json:"bottomOutlier"`
}

// StateAnalysis is the per-capita outlier report over jurisdictions.
type StateAnalysis struct {
	Summary      FederalOutlierSummary `json:"summary"`
	HighOutliers []StateOutlier        `json:"highOutliers"`
	LowOutliers  []StateOutlier        `json:"lowOutliers"`
	AllStates    []StateOutlier        `json:"allStates"`
	Excluded     []string              `json:"excluded"`
	Census       refdata.CensusInfo    `json:"census"`
}

// AnalyzeStates scores per-capita spending. Jurisdictions at or below the
// population floor are excluded from the statistics and the report.
func AnalyzeStates(rows []StateRow, cfg DomainConfig, narrator outlier.Narrator) StateAnalysis {
	entities := make([]outlier.Entity, len(rows))
	byCode := make(map[string]StateRow, len(rows))
	for i, r := range rows {
		e := outlier.Entity{
			ID:       r.State,
			Measures: map[string]float64{measurePop: float64(r.Population)},
			Tags: map[string]string{
				"state":     r.State,
				"expansion": r.ExpansionStatus,
				"fmap":      strconv.FormatFloat(r.FMAP, 'f', -1, 64),
			},
		}
		if r.PerCapita != nil {
			e.Measures[measurePerCapita] = *r.PerCapita
		}
		entities[i] = e
		byCode[r.State] = r
	}

	report := outlier.Analyze(entities, outlier.Config{
		Name:       "states",
		Include:    above(measurePop, cfg.Floor),
		MeasureKey: measurePerCapita,
		Thresholds: cfg.Thresholds,
		Profile:    cfg.Profile,
		Narrator:   narrator,
	})

	result := StateAnalysis{
		HighOutliers: []StateOutlier{},
		LowOutliers:  []StateOutlier{},
		AllStates:    make([]StateOutlier, 0, len(report.AllScored)),
		Excluded:     report.Excluded,
		Census:       refdata.CensusMetadata,
	}
	if cfg.Thresholds != DefaultStateConfig().Thresholds {
		result.Census.ZScoreThreshold = stateThresholdText(cfg.Thresholds)
	}

	for _, s := range report.AllScored {
		r := byCode[s.ID]
		so := StateOutlier{
			State:           r.State,
			StateName:       r.StateName,
			Spending:        r.Spending,
			Population:      r.Population,
			PerCapita:       s.Value,
			PerCapitaZScore: s.ZScore,
			FMAP:            r.FMAP,
			ExpansionStatus: r.ExpansionStatus,
			Analysis:        s.Analysis,
		}
		if z, ok := s.Z(); ok {
			a := outlier.AnalogyFor(cfg.Profile, z)
			so.Analogy = &a
		}
		result.AllStates = append(result.AllStates, so)

		switch s.Bucket() {
		case outlier.BucketHigh:
			result.HighOutliers = append(result.HighOutliers, so)
		case outlier.BucketLow:
			result.LowOutliers = append(result.LowOutliers, so)
		}
	}

	result.Summary = FederalOutlierSummary{
		TotalStates:       report.Summary.TotalEntities,
		NationalPerCapita: report.Population.Mean,
		StandardDeviation: report.Population.StdDev,
		HighOutliers:      len(result.HighOutliers),
		LowOutliers:       len(result.LowOutliers),
		TopOutlier:        "N/A",
		BottomOutlier:     "N/A",
	}
	if n := len(result.HighOutliers); n > 0 {
		result.Summary.TopOutlier = result.HighOutliers[0].State
	}
	if n := len(result.LowOutliers); n > 0 {
		result.Summary.BottomOutlier = result.LowOutliers[n-1].State
	}
	return result
}

func stateThresholdText(t outlier.Thresholds) string {
	high := "High outliers: z > " + strconv.FormatFloat(t.High, 'f', 1, 64)
	if math.IsInf(t.Low, -1) {
		return high
	}
	return high + ", Low outliers: z < " + strconv.FormatFloat(t.Low, 'f', 1, 64)
}
