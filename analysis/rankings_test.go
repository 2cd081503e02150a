package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankingRows() []ProviderAggregate {
	return []ProviderAggregate{
		{NPI: "1000000003", TotalSpending: 300, TotalClaims: 10, Beneficiaries: 9},
		{NPI: "1000000001", TotalSpending: 100, TotalClaims: 30, Beneficiaries: 1},
		{NPI: "1000000002", TotalSpending: 200, TotalClaims: 30, Beneficiaries: 5},
		{NPI: "1417262056", TotalSpending: 900, TotalClaims: 5, Beneficiaries: 2},
	}
}

func npis(page RankingPage) []string {
	out := make([]string, len(page.Data))
	for i, r := range page.Data {
		out[i] = r.NPI
	}
	return out
}

func TestRankingsSortKeys(t *testing.T) {
	tests := []struct {
		sort string
		want []string
	}{
		{SortPaid, []string{"1417262056", "1000000003", "1000000002", "1000000001"}},
		{SortClaims, []string{"1000000001", "1000000002", "1000000003", "1417262056"}},
		{SortBeneficiaries, []string{"1000000003", "1000000002", "1417262056", "1000000001"}},
		{"bogus", []string{"1417262056", "1000000003", "1000000002", "1000000001"}},
	}
	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			page := Rankings(rankingRows(), tt.sort, 1, 10, ds)
			assert.Equal(t, tt.want, npis(page))
			assert.Equal(t, 4, page.Total)
		})
	}
}

func TestRankingsPagination(t *testing.T) {
	page := Rankings(rankingRows(), SortPaid, 2, 3, ds)
	require.Len(t, page.Data, 1)
	assert.Equal(t, 4, page.Data[0].Rank)
	assert.Equal(t, "1000000001", page.Data[0].NPI)

	empty := Rankings(rankingRows(), SortPaid, 99, 3, ds)
	assert.Empty(t, empty.Data)
	assert.NotNil(t, empty.Data)

	clamped := Rankings(rankingRows(), "", 0, 0, ds)
	assert.Equal(t, 1, clamped.Page)
	assert.Equal(t, DefaultRankingLimit, clamped.Limit)
	assert.Equal(t, SortPaid, clamped.Sort)
	assert.Equal(t, "PUBLIC PARTNERSHIPS LLC", clamped.Data[0].Name)

	assert.Equal(t, MaxRankingLimit, Rankings(nil, SortPaid, 1, 1_000_000, ds).Limit)
}
