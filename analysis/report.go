package analysis

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/COG-GTM/devin-hhs/outlier"
	"github.com/COG-GTM/devin-hhs/refdata"
)

// Inputs are the spending aggregates the reports are computed from.
type Inputs struct {
	Providers  []ProviderAggregate
	HCPCS      []HCPCSAggregate
	Mismatches []MismatchAggregate
	// Prices summarises per-row paid-per-claim by procedure code.
	Prices []HCPCSPriceAggregate
}

// ReportConfig holds the per-domain settings of BuildOutlierReport.
type ReportConfig struct {
	Providers    DomainConfig
	CostPerClaim DomainConfig
	HCPCS        DomainConfig
	Mismatches   DomainConfig
	Allow        NPIFilter
	// Now stamps the report. Nil uses time.Now.
	Now func() time.Time
}

// DefaultReportConfig uses DefaultSpendingConfig for every domain.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		Providers:    DefaultSpendingConfig(),
		CostPerClaim: DefaultSpendingConfig(),
		HCPCS:        DefaultSpendingConfig(),
		Mismatches:   DefaultSpendingConfig(),
	}
}

// Metadata describes how an OutlierReport was produced.
type Metadata struct {
	ComputedAt    time.Time                  `json:"computedAt"`
	Methodology   string                     `json:"methodology"`
	ProviderCount int                        `json:"providerCount"`
	CostCount     int                        `json:"costPerClaimCount"`
	HCPCSCount    int                        `json:"hcpcsCount"`
	MismatchCount int                        `json:"mismatchCount"`
	Populations   map[string]outlier.Summary `json:"populations"`
}

// OutlierReport is the provider, procedure code and billing mismatch
// outlier listing. Every list is ordered by the z-score it was flagged on,
// highest first: cost per claim for CostPerClaimOutliers, spending otherwise.
type OutlierReport struct {
	ProviderOutliers     []ProviderOutlier `json:"providerOutliers"`
	CostPerClaimOutliers []ProviderOutlier `json:"costPerClaimOutliers"`
	HCPCSOutliers        []HCPCSOutlier    `json:"hcpcsOutliers"`
	BillingMismatches    []MismatchOutlier `json:"billingMismatches"`
	Metadata             Metadata          `json:"metadata"`
}

// BuildOutlierReport runs the spending analyses concurrently. The
// analyses share no state; ctx only cancels work that has not started.
func BuildOutlierReport(ctx context.Context, in Inputs, cfg ReportConfig, ds *refdata.Dataset) (*OutlierReport, error) {
	var (
		providers  Domain[ProviderOutlier]
		cost       Domain[ProviderOutlier]
		hcpcs      Domain[HCPCSOutlier]
		mismatches Domain[MismatchOutlier]
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		providers = AnalyzeProviders(in.Providers, cfg.Providers, ds, cfg.Allow)
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		cost = AnalyzeProviderCost(in.Providers, cfg.CostPerClaim, ds, cfg.Allow)
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		hcpcs = AnalyzeHCPCS(in.HCPCS, cfg.HCPCS, ds)
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		mismatches = AnalyzeMismatches(in.Mismatches, cfg.Mismatches, ds)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build outlier report: %w", err)
	}

	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}

	return &OutlierReport{
		ProviderOutliers:     providers.Outliers,
		CostPerClaimOutliers: cost.Outliers,
		HCPCSOutliers:        hcpcs.Outliers,
		BillingMismatches:    mismatches.Outliers,
		Metadata: Metadata{
			ComputedAt: now().UTC(),
			Methodology: fmt.Sprintf(
				"Population z-score analysis (providers: %s, cost per claim: %s, HCPCS: %s, billing mismatches: %s; minimum %.0f claims)",
				cfg.Providers.Thresholds, cfg.CostPerClaim.Thresholds, cfg.HCPCS.Thresholds, cfg.Mismatches.Thresholds, cfg.Providers.Floor),
			ProviderCount: len(providers.Outliers),
			CostCount:     len(cost.Outliers),
			HCPCSCount:    len(hcpcs.Outliers),
			MismatchCount: len(mismatches.Outliers),
			Populations: map[string]outlier.Summary{
				"providers":    providers.Population,
				"costPerClaim": cost.Population,
				"hcpcs":        hcpcs.Population,
				"mismatches":   mismatches.Population,
			},
		},
	}, nil
}
