package analysis

import (
	"sort"

	"github.com/COG-GTM/devin-hhs/refdata"
)

// Ranking sort keys.
const (
	SortPaid          = "paid"
	SortClaims        = "claims"
	SortBeneficiaries = "beneficiaries"
)

const (
	DefaultRankingLimit = 50
	MaxRankingLimit     = 500
)

type RankedProvider struct {
	Rank          int     `json:"rank"`
	NPI           string  `json:"npi"`
	Name          string  `json:"name"`
	TotalPaid     float64 `json:"totalPaid"`
	TotalClaims   int64   `json:"totalClaims"`
	Beneficiaries int64   `json:"beneficiaries"`
}

// RankingPage is one page of a provider ranking.
type RankingPage struct {
	Data  []RankedProvider `json:"data"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Total int              `json:"total"`
	Sort  string           `json:"sort"`
}

// Rankings orders providers by the sort key, descending, and returns the
// requested page. Unknown keys rank by paid amount; page and limit are
// clamped to valid values. Ties are broken by NPI.
func Rankings(rows []ProviderAggregate, sortKey string, page, limit int, ds *refdata.Dataset) RankingPage {
	var key func(ProviderAggregate) float64
	switch sortKey {
	case SortClaims:
		key = func(p ProviderAggregate) float64 { return float64(p.TotalClaims) }
	case SortBeneficiaries:
		key = func(p ProviderAggregate) float64 { return float64(p.Beneficiaries) }
	default:
		sortKey = SortPaid
		key = func(p ProviderAggregate) float64 { return p.TotalSpending }
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultRankingLimit
	}
	if limit > MaxRankingLimit {
		limit = MaxRankingLimit
	}

	sorted := append([]ProviderAggregate(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := key(sorted[i]), key(sorted[j])
		if ki != kj {
			return ki > kj
		}
		return sorted[i].NPI < sorted[j].NPI
	})

	result := RankingPage{Data: []RankedProvider{}, Page: page, Limit: limit, Total: len(sorted), Sort: sortKey}
	if page-1 >= (len(sorted)+limit-1)/limit {
		return result
	}
	start := (page - 1) * limit
	end := min(start+limit, len(sorted))
	for i, p := range sorted[start:end] {
		result.Data = append(result.Data, RankedProvider{
			Rank:          start + i + 1,
			NPI:           p.NPI,
			Name:          ds.ProviderName(p.NPI),
			TotalPaid:     p.TotalSpending,
			TotalClaims:   p.TotalClaims,
			Beneficiaries: p.Beneficiaries,
		})
	}
	return result
}
