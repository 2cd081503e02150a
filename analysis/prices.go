package analysis

import (
	"sort"

	"github.com/COG-GTM/devin-hhs/refdata"
)

// DefaultMinPriceProviders is the number of billing providers a code needs
// before its price spread is reported.
const DefaultMinPriceProviders = 10

// PriceVariance is the spread of paid per claim for one procedure code.
type PriceVariance struct {
	Code       string  `json:"code"`
	Definition string  `json:"definition"`
	Providers  int64   `json:"providers"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
	AvgPrice   float64 `json:"avgPrice"`
	// PriceRatio is max over min price, nil when the minimum is 0.
	PriceRatio *float64 `json:"priceRatio"`
	// CoefficientOfVariation is the standard deviation as a percentage of
	// the mean, nil when the mean is 0.
	CoefficientOfVariation *float64 `json:"coefficientOfVariation"`
}

// AnalyzePriceVariance reports codes billed by at least minProviders
// providers, ordered by price ratio, highest first. Codes without a ratio
// come last.
func AnalyzePriceVariance(rows []HCPCSPriceAggregate, minProviders int64, ds *refdata.Dataset) []PriceVariance {
	type entry struct {
		pv    PriceVariance
		ratio float64
		ok    bool
	}
	entries := make([]entry, 0, len(rows))
	for _, r := range rows {
		if r.Providers < minProviders {
			continue
		}
		ratio, ok := Ratio(r.MaxPrice, r.MinPrice)
		cv, cvOK := Ratio(r.StdDevPrice, r.AvgPrice)
		entries = append(entries, entry{
			pv: PriceVariance{
				Code:                   r.Code,
				Definition:             ds.HCPCSDefinition(r.Code),
				Providers:              r.Providers,
				MinPrice:               round2(r.MinPrice),
				MaxPrice:               round2(r.MaxPrice),
				AvgPrice:               round2(r.AvgPrice),
				PriceRatio:             roundedPtr(ratio, ok),
				CoefficientOfVariation: roundedPtr(cv*100, cvOK),
			},
			ratio: ratio,
			ok:    ok,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.ok && a.ratio > b.ratio
	})

	out := make([]PriceVariance, len(entries))
	for i, e := range entries {
		out[i] = e.pv
	}
	return out
}
