package analysis

// ProviderAggregate is one billing provider summed over all claims.
type ProviderAggregate struct {
	NPI           string  `json:"npi" parquet:"npi"`
	TotalSpending float64 `json:"totalSpending" parquet:"total_spending"`
	TotalClaims   int64   `json:"totalClaims" parquet:"total_claims"`
	Beneficiaries int64   `json:"beneficiaries" parquet:"beneficiaries"`
	UniqueCodes   int64   `json:"uniqueCodes" parquet:"unique_codes"`
}

// HCPCSAggregate is one procedure code summed over all providers.
type HCPCSAggregate struct {
	Code          string  `json:"code" parquet:"code"`
	TotalSpending float64 `json:"totalSpending" parquet:"total_spending"`
	TotalClaims   int64   `json:"totalClaims" parquet:"total_claims"`
	Beneficiaries int64   `json:"beneficiaries" parquet:"beneficiaries"`
	ProviderCount int64   `json:"providerCount" parquet:"provider_count"`
}

// MismatchAggregate is spending billed by one provider for services
// rendered by a different one.
type MismatchAggregate struct {
	BillingNPI   string  `json:"billingNPI" parquet:"billing_npi"`
	ServicingNPI string  `json:"servicingNPI" parquet:"servicing_npi"`
	Spending     float64 `json:"spending" parquet:"spending"`
	Claims       int64   `json:"claims" parquet:"claims"`
	UniqueCodes  int64   `json:"uniqueCodes" parquet:"unique_codes"`
}

// HCPCSPriceAggregate summarises paid per claim across the individual
// spending rows of one procedure code.
type HCPCSPriceAggregate struct {
	Code      string  `json:"code" parquet:"code"`
	Providers int64   `json:"providers" parquet:"providers"`
	MinPrice  float64 `json:"minPrice" parquet:"min_price"`
	MaxPrice  float64 `json:"maxPrice" parquet:"max_price"`
	AvgPrice  float64 `json:"avgPrice" parquet:"avg_price"`
	// StdDevPrice is the sample standard deviation, 0 for a single row.
	StdDevPrice float64 `json:"stddevPrice" parquet:"stddev_price"`
}

// Ratio divides num by den, reporting false when den is zero.
func Ratio(num, den float64) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

func roundedPtr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	r := round2(v)
	return &r
}
