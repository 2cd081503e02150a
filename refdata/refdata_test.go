package refdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ds, err := Load()
	require.NoError(t, err)

	assert.Len(t, ds.FMAP(), 51)
	assert.Len(t, ds.StateSpending(), 51)
	assert.Len(t, ds.TopHCPCS(), 25)
	assert.Len(t, ds.Sources(), 6)

	ms, ok := ds.FMAPFor("MS")
	require.True(t, ok)
	assert.Equal(t, 78.82, ms.FY2024)
	assert.False(t, ms.Expanded())

	_, ok = ds.FMAPFor("PR")
	assert.False(t, ok)
}

func TestAccessorsReturnCopies(t *testing.T) {
	ds := MustLoad()
	rows := ds.FMAP()
	rows[0].FY2024 = 0

	again := ds.FMAP()
	assert.NotZero(t, again[0].FY2024)
}

func TestLookups(t *testing.T) {
	ds := MustLoad()

	assert.Equal(t, "Puerto Rico", ds.StateName("PR"))
	assert.Equal(t, "ZZ", ds.StateName("ZZ"))
	assert.Contains(t, ds.StateCodes(), "GU")

	assert.Equal(t, "Personal care services, per 15 min", ds.HCPCSDefinition("T1019"))
	assert.Equal(t, "Procedure code", ds.HCPCSDefinition("ZZZZZ"))

	assert.Equal(t, "PUBLIC PARTNERSHIPS LLC", ds.ProviderName("1417262056"))
	assert.Equal(t, "Provider 1234567890", ds.ProviderName("1234567890"))
	info, ok := ds.ProviderInfo("1699725143")
	require.True(t, ok)
	assert.Equal(t, "CO", info.State)

	src, ok := ds.Source("nppes")
	require.True(t, ok)
	assert.Equal(t, "https://npiregistry.cms.hhs.gov/", src.URL)
	assert.Len(t, ds.SourcesByType("POPULATION"), 1)
	assert.Empty(t, ds.SourcesByType("weather"))
}

func TestHCPCSCategory(t *testing.T) {
	tests := map[string]string{
		"99213": "Evaluation & Management",
		"90837": "Medicine/Vaccines",
		"80053": "Lab/Pathology",
		"71046": "Radiology/Imaging",
		"92507": "Medicine",
		"D0120": "Dental",
		"V2020": "Vision",
		"A0425": "Ambulance/Transport",
		"E0570": "DME Equipment",
		"0001A": "Temporary/New Codes",
		"T1019": "Other",
		"":      "Other",
	}
	for code, want := range tests {
		assert.Equal(t, want, HCPCSCategory(code), code)
	}
}
