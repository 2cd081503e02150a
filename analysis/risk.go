package analysis

import (
	"math"
	"sort"

	"github.com/COG-GTM/devin-hhs/outlier"
	"github.com/COG-GTM/devin-hhs/refdata"
)

const (
	measureClaimsPerBene = "claims_per_beneficiary"
	measureCostPerBene   = "cost_per_beneficiary"
)

// Code diversity flags.
const (
	DiversitySingleCode = "SINGLE_CODE"
	DiversityLow        = "LOW_DIVERSITY"
	DiversityNormal     = "NORMAL"
)

// RiskConfig parameterises ProviderRiskScores.
type RiskConfig struct {
	// Floor is the exclusive minimum total claims a provider needs to be
	// scored at all.
	Floor float64
	// MaxIntensity excludes providers with this many claims per beneficiary
	// or more from the statistics. They are still scored.
	MaxIntensity float64
	// Limit caps the number of providers listed; 0 lists all.
	Limit int
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{Floor: 100, MaxIntensity: 1000, Limit: 100}
}

// RiskScore is one provider's multi-factor billing profile.
type RiskScore struct {
	NPI                  string   `json:"npi"`
	Name                 string   `json:"name"`
	TotalClaims          int64    `json:"totalClaims"`
	Beneficiaries        int64    `json:"beneficiaries"`
	TotalPaid            float64  `json:"totalPaid"`
	UniqueCodes          int64    `json:"uniqueCodes"`
	ClaimsPerBeneficiary *float64 `json:"claimsPerBeneficiary"`
	CostPerBeneficiary   *float64 `json:"costPerBeneficiary"`
	CostPerClaim         *float64 `json:"costPerClaim"`
	ZClaimsIntensity     *float64 `json:"zClaimsIntensity"`
	ZCostPerBeneficiary  *float64 `json:"zCostPerBeneficiary"`
	ZCostPerClaim        *float64 `json:"zCostPerClaim"`
	// CompositeRiskScore is the mean of the three absolute z-scores, nil
	// unless all three are defined.
	CompositeRiskScore *float64 `json:"compositeRiskScore"`
	CodeDiversity      string   `json:"codeDiversity"`
}

type RiskReport struct {
	Populations map[string]outlier.Summary `json:"populations"`
	// Scored counts providers above the claims floor; StatsExcluded counts
	// those left out of the statistics for extreme intensity.
	Scored        int         `json:"scored"`
	StatsExcluded int         `json:"statsExcluded"`
	Providers     []RiskScore `json:"providers"`
}

// CodeDiversity classifies how many distinct procedure codes a provider
// bills. A provider billing a single code may be a mill.
func CodeDiversity(uniqueCodes int64) string {
	switch {
	case uniqueCodes == 1:
		return DiversitySingleCode
	case uniqueCodes <= 3:
		return DiversityLow
	default:
		return DiversityNormal
	}
}

type riskEntry struct {
	score     RiskScore
	composite float64
	defined   bool
}

// ProviderRiskScores scores providers on claims per beneficiary, cost per
// beneficiary and cost per claim, ordered by composite score, highest
// first. Providers without a composite score come last in input order.
func ProviderRiskScores(rows []ProviderAggregate, cfg RiskConfig, ds *refdata.Dataset) RiskReport {
	entities := make([]outlier.Entity, len(rows))
	for i, r := range rows {
		e := outlier.Entity{
			ID:       r.NPI,
			Measures: map[string]float64{measureClaims: float64(r.TotalClaims)},
		}
		if v, ok := Ratio(float64(r.TotalClaims), float64(r.Beneficiaries)); ok {
			e.Measures[measureClaimsPerBene] = v
		}
		if v, ok := Ratio(r.TotalSpending, float64(r.Beneficiaries)); ok {
			e.Measures[measureCostPerBene] = v
		}
		if v, ok := Ratio(r.TotalSpending, float64(r.TotalClaims)); ok {
			e.Measures[measureAvgPerClaim] = v
		}
		entities[i] = e
	}

	floor := above(measureClaims, cfg.Floor)
	inStats := func(e outlier.Entity) bool {
		v, ok := e.Measure(measureClaimsPerBene)
		return floor(e) && ok && v < cfg.MaxIntensity
	}

	measures := [3]string{measureClaimsPerBene, measureCostPerBene, measureAvgPerClaim}
	var stats [3]outlier.Summary
	report := RiskReport{Populations: make(map[string]outlier.Summary, len(measures))}
	for i, m := range measures {
		_, stats[i] = outlier.ScoreMeasure(entities, m, inStats)
		report.Populations[m] = outlier.Summary{
			Mean:   round2(stats[i].Mean),
			StdDev: round2(stats[i].StdDev),
			Count:  stats[i].Count,
		}
	}

	entries := make([]riskEntry, 0, len(rows))
	for i, r := range rows {
		e := entities[i]
		if !floor(e) {
			continue
		}
		report.Scored++
		if !inStats(e) {
			report.StatsExcluded++
		}

		var (
			z       [3]*float64
			sum     float64
			defined = true
		)
		for j, m := range measures {
			v, ok := e.Measure(m)
			if !ok {
				defined = false
				continue
			}
			zj, ok := outlier.ZScore(v, stats[j])
			if !ok {
				defined = false
				continue
			}
			z[j] = roundedPtr(zj, true)
			sum += math.Abs(zj)
		}

		entry := riskEntry{
			score: RiskScore{
				NPI:                  r.NPI,
				Name:                 ds.ProviderName(r.NPI),
				TotalClaims:          r.TotalClaims,
				Beneficiaries:        r.Beneficiaries,
				TotalPaid:            r.TotalSpending,
				UniqueCodes:          r.UniqueCodes,
				ClaimsPerBeneficiary: roundedPtr(Ratio(float64(r.TotalClaims), float64(r.Beneficiaries))),
				CostPerBeneficiary:   roundedPtr(Ratio(r.TotalSpending, float64(r.Beneficiaries))),
				CostPerClaim:         roundedPtr(Ratio(r.TotalSpending, float64(r.TotalClaims))),
				ZClaimsIntensity:     z[0],
				ZCostPerBeneficiary:  z[1],
				ZCostPerClaim:        z[2],
				CodeDiversity:        CodeDiversity(r.UniqueCodes),
			},
			composite: sum / 3,
			defined:   defined,
		}
		if defined {
			entry.score.CompositeRiskScore = roundedPtr(entry.composite, true)
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.defined != b.defined {
			return a.defined
		}
		return a.defined && a.composite > b.composite
	})
	if cfg.Limit > 0 && len(entries) > cfg.Limit {
		entries = entries[:cfg.Limit]
	}

	report.Providers = make([]RiskScore, len(entries))
	for i, e := range entries {
		report.Providers[i] = e.score
	}
	return report
}
