package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/COG-GTM/devin-hhs/analysis"
	"github.com/COG-GTM/devin-hhs/money"
)

// SpendingRow is one row of medicaid_provider_spending.
type SpendingRow struct {
	BillingNPI    string
	ServicingNPI  string
	HCPCSCode     string
	ClaimMonth    string
	Beneficiaries int64
	Claims        int64
	Paid          money.Amount
}

var spendingColumns = []string{
	"billing_provider_npi",
	"servicing_provider_npi",
	"hcpcs_code",
	"claim_month",
	"total_unique_beneficiaries",
	"total_claims",
	"total_paid",
}

// CopySpendingRows bulk-inserts rows with COPY.
func (q *Queries) CopySpendingRows(ctx context.Context, rows []SpendingRow) (int64, error) {
	n, err := q.db.CopyFrom(ctx, pgx.Identifier{"medicaid_provider_spending"}, spendingColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			paid, err := amountToNumeric(r.Paid)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			return []any{r.BillingNPI, r.ServicingNPI, r.HCPCSCode, r.ClaimMonth, r.Beneficiaries, r.Claims, paid}, nil
		}))
	if err != nil {
		return n, fmt.Errorf("copy spending rows: %w", err)
	}
	return n, nil
}

const providerAggregates = `
SELECT billing_provider_npi,
       SUM(total_paid)::float8,
       SUM(total_claims)::bigint,
       SUM(total_unique_beneficiaries)::bigint,
       COUNT(DISTINCT hcpcs_code)::bigint
FROM medicaid_provider_spending
GROUP BY billing_provider_npi
ORDER BY billing_provider_npi`

// ProviderAggregates sums spending per billing provider and counts the
// distinct codes each one bills.
func (q *Queries) ProviderAggregates(ctx context.Context) ([]analysis.ProviderAggregate, error) {
	rows, err := q.db.Query(ctx, providerAggregates)
	if err != nil {
		return nil, fmt.Errorf("query provider aggregates: %w", err)
	}
	defer rows.Close()
	var items []analysis.ProviderAggregate
	for rows.Next() {
		var i analysis.ProviderAggregate
		if err := rows.Scan(&i.NPI, &i.TotalSpending, &i.TotalClaims, &i.Beneficiaries, &i.UniqueCodes); err != nil {
			return nil, fmt.Errorf("scan provider aggregate: %w", err)
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read provider aggregates: %w", err)
	}
	return items, nil
}

const hcpcsAggregates = `
SELECT hcpcs_code,
       SUM(total_paid)::float8,
       SUM(total_claims)::bigint,
       SUM(total_unique_beneficiaries)::bigint,
       COUNT(DISTINCT billing_provider_npi)::bigint
FROM medicaid_provider_spending
GROUP BY hcpcs_code
ORDER BY hcpcs_code`

// HCPCSAggregates sums spending per procedure code.
func (q *Queries) HCPCSAggregates(ctx context.Context) ([]analysis.HCPCSAggregate, error) {
	rows, err := q.db.Query(ctx, hcpcsAggregates)
	if err != nil {
		return nil, fmt.Errorf("query hcpcs aggregates: %w", err)
	}
	defer rows.Close()
	var items []analysis.HCPCSAggregate
	for rows.Next() {
		var i analysis.HCPCSAggregate
		if err := rows.Scan(&i.Code, &i.TotalSpending, &i.TotalClaims, &i.Beneficiaries, &i.ProviderCount); err != nil {
			return nil, fmt.Errorf("scan hcpcs aggregate: %w", err)
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read hcpcs aggregates: %w", err)
	}
	return items, nil
}

// Prices are per row, so the spread has to be computed where the rows are.
const hcpcsPriceAggregates = `
SELECT hcpcs_code,
       COUNT(DISTINCT billing_provider_npi)::bigint,
       MIN(total_paid / total_claims)::float8,
       MAX(total_paid / total_claims)::float8,
       AVG(total_paid / total_claims)::float8,
       COALESCE(STDDEV_SAMP(total_paid / total_claims), 0)::float8
FROM medicaid_provider_spending
WHERE total_claims > 0
GROUP BY hcpcs_code
ORDER BY hcpcs_code`

// HCPCSPriceAggregates summarises the paid-per-claim price of each
// procedure code across its rows.
func (q *Queries) HCPCSPriceAggregates(ctx context.Context) ([]analysis.HCPCSPriceAggregate, error) {
	rows, err := q.db.Query(ctx, hcpcsPriceAggregates)
	if err != nil {
		return nil, fmt.Errorf("query hcpcs prices: %w", err)
	}
	defer rows.Close()
	var items []analysis.HCPCSPriceAggregate
	for rows.Next() {
		var i analysis.HCPCSPriceAggregate
		if err := rows.Scan(&i.Code, &i.Providers, &i.MinPrice, &i.MaxPrice, &i.AvgPrice, &i.StdDevPrice); err != nil {
			return nil, fmt.Errorf("scan hcpcs price: %w", err)
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read hcpcs prices: %w", err)
	}
	return items, nil
}

const mismatchAggregates = `
SELECT billing_provider_npi,
       servicing_provider_npi,
       SUM(total_paid)::float8,
       SUM(total_claims)::bigint,
       COUNT(DISTINCT hcpcs_code)::bigint
FROM medicaid_provider_spending
WHERE billing_provider_npi <> servicing_provider_npi
GROUP BY billing_provider_npi, servicing_provider_npi
ORDER BY billing_provider_npi, servicing_provider_npi`

// MismatchAggregates sums spending per billing/servicing pair where the
// two providers differ.
func (q *Queries) MismatchAggregates(ctx context.Context) ([]analysis.MismatchAggregate, error) {
	rows, err := q.db.Query(ctx, mismatchAggregates)
	if err != nil {
		return nil, fmt.Errorf("query mismatch aggregates: %w", err)
	}
	defer rows.Close()
	var items []analysis.MismatchAggregate
	for rows.Next() {
		var i analysis.MismatchAggregate
		if err := rows.Scan(&i.BillingNPI, &i.ServicingNPI, &i.Spending, &i.Claims, &i.UniqueCodes); err != nil {
			return nil, fmt.Errorf("scan mismatch aggregate: %w", err)
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read mismatch aggregates: %w", err)
	}
	return items, nil
}

// amountToNumeric converts through text so no precision is lost.
func amountToNumeric(a money.Amount) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(a.String()); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("convert amount %s: %w", a, err)
	}
	return n, nil
}
