package analysis

import (
	"github.com/COG-GTM/devin-hhs/outlier"
	"github.com/COG-GTM/devin-hhs/refdata"
)

const (
	measureSpending    = "spending"
	measureClaims      = "claims"
	measureAvgPerClaim = "avg_per_claim"
)

// ProviderOutlier is a billing provider whose total spending is unusually
// high.
type ProviderOutlier struct {
	NPI            string          `json:"npi"`
	Name           string          `json:"name"`
	TotalSpending  float64         `json:"totalSpending"`
	TotalClaims    int64           `json:"totalClaims"`
	Beneficiaries  int64           `json:"beneficiaries"`
	AvgPerClaim    *float64        `json:"avgPerClaim"`
	SpendingZScore float64         `json:"spendingZScore"`
	ZScoreLabel    string          `json:"zScoreLabel"`
	CostZScore     *float64        `json:"costZScore"`
	Analogy        outlier.Analogy `json:"analogy"`
}

// HCPCSOutlier is a procedure code whose total spending is unusually high.
type HCPCSOutlier struct {
	Code           string          `json:"code"`
	Definition     string          `json:"definition"`
	Category       string          `json:"category"`
	TotalSpending  float64         `json:"totalSpending"`
	TotalClaims    int64           `json:"totalClaims"`
	AvgPerClaim    *float64        `json:"avgPerClaim"`
	ProviderCount  int64           `json:"providerCount"`
	SpendingZScore float64         `json:"spendingZScore"`
	ZScoreLabel    string          `json:"zScoreLabel"`
	CostZScore     *float64        `json:"costZScore"`
	Analogy        outlier.Analogy `json:"analogy"`
}

// MismatchOutlier is a billing/servicing pair with unusually high spending.
type MismatchOutlier struct {
	BillingNPI     string          `json:"billingNPI"`
	BillingName    string          `json:"billingName"`
	ServicingNPI   string          `json:"servicingNPI"`
	ServicingName  string          `json:"servicingName"`
	Spending       float64         `json:"spending"`
	Claims         int64           `json:"claims"`
	UniqueCodes    int64           `json:"uniqueCodes"`
	SpendingZScore float64         `json:"spendingZScore"`
	ZScoreLabel    string          `json:"zScoreLabel"`
	Analogy        outlier.Analogy `json:"analogy"`
}

// Domain is the outcome of one spending analysis.
type Domain[T any] struct {
	Population outlier.Summary       `json:"population"`
	Summary    outlier.ReportSummary `json:"summary"`
	Outliers   []T                   `json:"outliers"`
}

func spendingEntity(id string, spending float64, claims int64) outlier.Entity {
	e := outlier.Entity{
		ID: id,
		Measures: map[string]float64{
			measureSpending: spending,
			measureClaims:   float64(claims),
		},
	}
	if avg, ok := Ratio(spending, float64(claims)); ok {
		e.Measures[measureAvgPerClaim] = avg
	}
	return e
}

// AnalyzeProviders flags providers by total spending. Cost per claim is
// scored over the same population but does not drive classification.
// A non-nil allow set further restricts the population.
func AnalyzeProviders(rows []ProviderAggregate, cfg DomainConfig, ds *refdata.Dataset, allow NPIFilter) Domain[ProviderOutlier] {
	return analyzeProviders("providers", measureSpending, measureAvgPerClaim, rows, cfg, ds, allow)
}

// AnalyzeProviderCost flags providers by average paid per claim, with total
// spending scored alongside. Outliers are ordered by cost z-score.
func AnalyzeProviderCost(rows []ProviderAggregate, cfg DomainConfig, ds *refdata.Dataset, allow NPIFilter) Domain[ProviderOutlier] {
	return analyzeProviders("costPerClaim", measureAvgPerClaim, measureSpending, rows, cfg, ds, allow)
}

func analyzeProviders(name, measure, secondary string, rows []ProviderAggregate, cfg DomainConfig, ds *refdata.Dataset, allow NPIFilter) Domain[ProviderOutlier] {
	entities := make([]outlier.Entity, len(rows))
	byNPI := make(map[string]ProviderAggregate, len(rows))
	for i, r := range rows {
		entities[i] = spendingEntity(r.NPI, r.TotalSpending, r.TotalClaims)
		byNPI[r.NPI] = r
	}

	floor := above(measureClaims, cfg.Floor)
	include := func(e outlier.Entity) bool {
		return floor(e) && allow.Allows(e.ID)
	}

	report := outlier.Analyze(entities, outlier.Config{
		Name:       name,
		Include:    include,
		MeasureKey: measure,
		Thresholds: cfg.Thresholds,
		Profile:    cfg.Profile,
	})
	other, _ := outlier.ScoreMeasure(entities, secondary, include)

	out := make([]ProviderOutlier, 0, len(report.HighOutliers)+len(report.LowOutliers))
	for _, f := range flagged(report) {
		r := byNPI[f.ID]
		z, _ := f.Z()
		o, hasOther := other[f.ID]

		spendingZ, costZ := z, roundedPtr(o, hasOther)
		if measure == measureAvgPerClaim {
			spendingZ, costZ = o, roundedPtr(z, true)
		}
		out = append(out, ProviderOutlier{
			NPI:            r.NPI,
			Name:           ds.ProviderName(r.NPI),
			TotalSpending:  r.TotalSpending,
			TotalClaims:    r.TotalClaims,
			Beneficiaries:  r.Beneficiaries,
			AvgPerClaim:    roundedPtr(Ratio(r.TotalSpending, float64(r.TotalClaims))),
			SpendingZScore: round2(spendingZ),
			ZScoreLabel:    outlier.FormatZScore(z),
			CostZScore:     costZ,
			Analogy:        f.Analogy,
		})
	}
	return Domain[ProviderOutlier]{Population: report.Population, Summary: report.Summary, Outliers: out}
}

// AnalyzeHCPCS flags procedure codes by total spending.
func AnalyzeHCPCS(rows []HCPCSAggregate, cfg DomainConfig, ds *refdata.Dataset) Domain[HCPCSOutlier] {
	entities := make([]outlier.Entity, len(rows))
	byCode := make(map[string]HCPCSAggregate, len(rows))
	for i, r := range rows {
		entities[i] = spendingEntity(r.Code, r.TotalSpending, r.TotalClaims)
		byCode[r.Code] = r
	}

	include := above(measureClaims, cfg.Floor)
	report := outlier.Analyze(entities, outlier.Config{
		Name:       "hcpcs",
		Include:    include,
		MeasureKey: measureSpending,
		Thresholds: cfg.Thresholds,
		Profile:    cfg.Profile,
	})
	cost, _ := outlier.ScoreMeasure(entities, measureAvgPerClaim, include)

	out := make([]HCPCSOutlier, 0, len(report.HighOutliers)+len(report.LowOutliers))
	for _, f := range flagged(report) {
		r := byCode[f.ID]
		z, _ := f.Z()
		c, hasCost := cost[f.ID]
		out = append(out, HCPCSOutlier{
			Code:           r.Code,
			Definition:     ds.HCPCSDefinition(r.Code),
			Category:       refdata.HCPCSCategory(r.Code),
			TotalSpending:  r.TotalSpending,
			TotalClaims:    r.TotalClaims,
			AvgPerClaim:    roundedPtr(Ratio(r.TotalSpending, float64(r.TotalClaims))),
			ProviderCount:  r.ProviderCount,
			SpendingZScore: round2(z),
			ZScoreLabel:    outlier.FormatZScore(z),
			CostZScore:     roundedPtr(c, hasCost),
			Analogy:        f.Analogy,
		})
	}
	return Domain[HCPCSOutlier]{Population: report.Population, Summary: report.Summary, Outliers: out}
}

// AnalyzeMismatches flags billing/servicing pairs by spending. Pairs where
// the billing and servicing provider are the same are not mismatches and
// never join the population.
func AnalyzeMismatches(rows []MismatchAggregate, cfg DomainConfig, ds *refdata.Dataset) Domain[MismatchOutlier] {
	entities := make([]outlier.Entity, len(rows))
	byID := make(map[string]MismatchAggregate, len(rows))
	for i, r := range rows {
		id := r.BillingNPI + "/" + r.ServicingNPI
		entities[i] = spendingEntity(id, r.Spending, r.Claims)
		entities[i].Tags = map[string]string{"billing": r.BillingNPI, "servicing": r.ServicingNPI}
		byID[id] = r
	}

	floor := above(measureClaims, cfg.Floor)
	report := outlier.Analyze(entities, outlier.Config{
		Name: "mismatches",
		Include: func(e outlier.Entity) bool {
			return e.Tags["billing"] != e.Tags["servicing"] && floor(e)
		},
		MeasureKey: measureSpending,
		Thresholds: cfg.Thresholds,
		Profile:    cfg.Profile,
	})

	out := make([]MismatchOutlier, 0, len(report.HighOutliers)+len(report.LowOutliers))
	for _, f := range flagged(report) {
		r := byID[f.ID]
		z, _ := f.Z()
		out = append(out, MismatchOutlier{
			BillingNPI:     r.BillingNPI,
			BillingName:    ds.ProviderName(r.BillingNPI),
			ServicingNPI:   r.ServicingNPI,
			ServicingName:  ds.ProviderName(r.ServicingNPI),
			Spending:       r.Spending,
			Claims:         r.Claims,
			UniqueCodes:    r.UniqueCodes,
			SpendingZScore: round2(z),
			ZScoreLabel:    outlier.FormatZScore(z),
			Analogy:        f.Analogy,
		})
	}
	return Domain[MismatchOutlier]{Population: report.Population, Summary: report.Summary, Outliers: out}
}

// flagged returns high then low outliers, each in canonical order.
func flagged(r outlier.Report) []outlier.Flagged {
	return append(append([]outlier.Flagged(nil), r.HighOutliers...), r.LowOutliers...)
}
