package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time { return time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC) }

func reportInputs() Inputs {
	in := Inputs{Providers: providerRows()}
	for i := 0; i < 19; i++ {
		in.HCPCS = append(in.HCPCS, HCPCSAggregate{Code: fmt.Sprintf("H%04d", i), TotalSpending: 10, TotalClaims: 1000})
		in.Mismatches = append(in.Mismatches, MismatchAggregate{
			BillingNPI: "1710176151", ServicingNPI: fmt.Sprintf("13000000%02d", i), Spending: 10, Claims: 1000,
		})
	}
	return in
}

func TestBuildOutlierReport(t *testing.T) {
	cfg := DefaultReportConfig()
	cfg.Now = fixedClock

	r, err := BuildOutlierReport(context.Background(), reportInputs(), cfg, ds)
	require.NoError(t, err)

	assert.Equal(t, fixedClock(), r.Metadata.ComputedAt)
	assert.Equal(t, 1, r.Metadata.ProviderCount)
	assert.Zero(t, r.Metadata.HCPCSCount)
	assert.Zero(t, r.Metadata.MismatchCount)
	assert.Equal(t, 19, r.Metadata.Populations["hcpcs"].Count)
	assert.Contains(t, r.Metadata.Methodology, "providers: z > 3")
	assert.Contains(t, r.Metadata.Methodology, "cost per claim: z > 3")
	assert.NotNil(t, r.HCPCSOutliers)

	assert.Equal(t, 1, r.Metadata.CostCount)
	assert.Equal(t, 20, r.Metadata.Populations["costPerClaim"].Count)
	require.Len(t, r.CostPerClaimOutliers, 1)
	assert.Equal(t, "1417262056", r.CostPerClaimOutliers[0].NPI)
	assert.Equal(t, 4.36, *r.CostPerClaimOutliers[0].CostZScore)
}

func TestBuildOutlierReportDeterministic(t *testing.T) {
	cfg := DefaultReportConfig()
	cfg.Now = fixedClock

	var outputs []string
	for _i := 0; _i < 3; _i++ {
		r, err := BuildOutlierReport(context.Background(), reportInputs(), cfg, ds)
		require.NoError(t, err)
		b, err := json.Marshal(r)
		require.NoError(t, err)
		outputs = append(outputs, string(b))
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[0], outputs[2])
}

func TestBuildOutlierReportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildOutlierReport(ctx, reportInputs(), DefaultReportConfig(), ds)
	assert.ErrorIs(t, err, context.Canceled)
}
