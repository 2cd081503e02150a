package narrative

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/COG-GTM/devin-hhs/outlier"
)

func stateInput(code, expansion, fmap string, perCapita float64, bucket outlier.Bucket, z float64) outlier.NarrativeInput {
	return outlier.NarrativeInput{
		Entity: outlier.Entity{
			ID:   code,
			Tags: map[string]string{"state": code, "expansion": expansion, "fmap": fmap},
		},
		Value:      perCapita,
		ZScore:     z,
		Defined:    true,
		Bucket:     bucket,
		Population: outlier.Summary{Mean: 2000, StdDev: 500, Count: 50},
	}
}

func TestDefaultRules(t *testing.T) {
	rules, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name string
		in   outlier.NarrativeInput
		want string
	}{
		{
			name: "high state with expansion",
			in:   stateInput("NY", "Y", "50", 3500, outlier.BucketHigh, 3),
			want: "High cost of living and generous benefit packages drive up per-beneficiary costs. " +
				"Medicaid expansion has increased coverage, adding more beneficiaries.",
		},
		{
			name: "high fmap",
			in:   stateInput("NM", "Y", "73.26", 3400, outlier.BucketHigh, 2.8),
			want: "High poverty rate combined with Medicaid expansion coverage. " +
				"Medicaid expansion has increased coverage, adding more beneficiaries. " +
				"High FMAP (73.26%) means federal government covers most costs, potentially reducing state cost controls.",
		},
		{
			name: "low non-expansion",
			in:   stateInput("TX", "N", "60.37", 1000, outlier.BucketLow, -2),
			want: "Has NOT expanded Medicaid, limiting coverage to fewer residents. " +
				"Large population dilutes per-capita figures; total spending is still substantial.",
		},
		{
			name: "low rules ignore high bucket",
			in:   stateInput("UT", "Y", "65", 3100, outlier.BucketHigh, 2.2),
			want: "Medicaid expansion has increased coverage, adding more beneficiaries.",
		},
		{
			name: "fallback",
			in:   stateInput("OH", "Y", "64", 2500, outlier.BucketNone, 1),
			want: "Spending is 25% above the national average of $2000 per person.",
		},
		{
			name: "fallback below",
			in:   stateInput("OH", "Y", "64", 1500, outlier.BucketNone, -1),
			want: "Spending is 25% below the national average of $2000 per person.",
		},
		{
			name: "fallback at the mean",
			in:   stateInput("OH", "Y", "64", 2000, outlier.BucketNone, 0),
			want: "Spending is 0% below the national average of $2000 per person.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rules.Narrate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMalformedNumberNeverMatches(t *testing.T) {
	rules, err := Default()
	require.NoError(t, err)

	got, err := rules.Narrate(stateInput("OH", "?", "n/a", 3000, outlier.BucketHigh, 2))
	require.NoError(t, err)
	assert.Equal(t, "Spending is 50% above the national average of $2000 per person.", got)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"missing fallback": "groups: []",
		"bad template":     "fallback: \"{{.Nope\"",
		"bad bucket":       "fallback: x\ngroups:\n  - name: g\n    rules:\n      - when: {bucket: sideways}\n        text: y\n",
		"not yaml":         "fallback: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestFirstMatchWinsWithinGroup(t *testing.T) {
	doc := `
fallback: none
groups:
  - name: g
    rules:
      - when: {tag: state, in: [CA]}
        text: first
      - when: {tag: state}
        text: second
`
	rules, err := Parse([]byte(doc))
	require.NoError(t, err)

	got, err := rules.Narrate(stateInput("CA", "Y", "50", 1, outlier.BucketNone, 0))
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, err = rules.Narrate(stateInput("OR", "Y", "50", 1, outlier.BucketNone, 0))
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestRenderErrorSurfacesToEngine(t *testing.T) {
	doc := `
fallback: ok
groups:
  - name: g
    rules:
      - when: {tag: state}
        text: "{{index .Tags 1}}"
`
	rules, err := Parse([]byte(doc))
	require.NoError(t, err)

	_, err = rules.Narrate(stateInput("CA", "Y", "50", 1, outlier.BucketNone, 0))
	require.Error(t, err)

	report := outlier.Analyze([]outlier.Entity{
		{ID: "CA", Measures: map[string]float64{"pc": 100}, Tags: map[string]string{"state": "CA"}},
		{ID: "OR", Measures: map[string]float64{"pc": 300}, Tags: map[string]string{"state": "OR"}},
	}, outlier.Config{MeasureKey: "pc", Thresholds: outlier.HighOnly(2), Narrator: rules})
	for _, s := range report.AllScored {
		assert.Contains(t, s.Analysis, "the average of 200")
	}
}
