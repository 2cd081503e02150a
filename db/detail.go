package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/COG-GTM/devin-hhs/money"
)

// ProviderCode is a billing provider's spending on one procedure code.
type ProviderCode struct {
	HCPCSCode          string       `json:"hcpcsCode"`
	ServicingProviders int64        `json:"servicingProviders"`
	Claims             int64        `json:"claims"`
	Beneficiaries      int64        `json:"beneficiaries"`
	Paid               money.Amount `json:"paid"`
}

// CodeProvider is one billing provider's spending on a procedure code.
type CodeProvider struct {
	BillingNPI    string       `json:"billingNPI"`
	Claims        int64        `json:"claims"`
	Beneficiaries int64        `json:"beneficiaries"`
	Paid          money.Amount `json:"paid"`
}

type MonthlySpending struct {
	Month         string       `json:"month"`
	Claims        int64        `json:"claims"`
	Beneficiaries int64        `json:"beneficiaries"`
	Paid          money.Amount `json:"paid"`
}

const providerByNPI = `
SELECT hcpcs_code,
       COUNT(DISTINCT servicing_provider_npi)::bigint,
       SUM(total_claims)::bigint,
       SUM(total_unique_beneficiaries)::bigint,
       SUM(total_paid)::text
FROM medicaid_provider_spending
WHERE billing_provider_npi = $1
GROUP BY hcpcs_code
ORDER BY SUM(total_paid) DESC, hcpcs_code`

// ProviderByNPI breaks a billing provider's spending down by procedure
// code, largest first. It returns ErrNotFound for an unknown NPI.
func (q *Queries) ProviderByNPI(ctx context.Context, npi string) ([]ProviderCode, error) {
	rows, err := q.db.Query(ctx, providerByNPI, npi)
	if err != nil {
		return nil, fmt.Errorf("query provider %s: %w", npi, err)
	}
	items, err := collect(rows, func(row pgx.CollectableRow) (ProviderCode, error) {
		var i ProviderCode
		var paid string
		if err := row.Scan(&i.HCPCSCode, &i.ServicingProviders, &i.Claims, &i.Beneficiaries, &paid); err != nil {
			return i, err
		}
		amount, err := money.Parse(paid)
		i.Paid = amount
		return i, err
	})
	if err != nil {
		return nil, fmt.Errorf("read provider %s: %w", npi, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("provider %s: %w", npi, ErrNotFound)
	}
	return items, nil
}

const providersByHCPCS = `
SELECT billing_provider_npi,
       SUM(total_claims)::bigint,
       SUM(total_unique_beneficiaries)::bigint,
       SUM(total_paid)::text
FROM medicaid_provider_spending
WHERE hcpcs_code = $1
GROUP BY billing_provider_npi
ORDER BY SUM(total_paid) DESC, billing_provider_npi
LIMIT $2`

// ProvidersByHCPCS returns the top billing providers for a procedure
// code. It returns ErrNotFound for an unknown code.
func (q *Queries) ProvidersByHCPCS(ctx context.Context, code string, limit int) ([]CodeProvider, error) {
	rows, err := q.db.Query(ctx, providersByHCPCS, code, limit)
	if err != nil {
		return nil, fmt.Errorf("query hcpcs %s: %w", code, err)
	}
	items, err := collect(rows, func(row pgx.CollectableRow) (CodeProvider, error) {
		var i CodeProvider
		var paid string
		if err := row.Scan(&i.BillingNPI, &i.Claims, &i.Beneficiaries, &paid); err != nil {
			return i, err
		}
		amount, err := money.Parse(paid)
		i.Paid = amount
		return i, err
	})
	if err != nil {
		return nil, fmt.Errorf("read hcpcs %s: %w", code, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("hcpcs %s: %w", code, ErrNotFound)
	}
	return items, nil
}

const monthlyByNPI = `
SELECT claim_month,
       SUM(total_claims)::bigint,
       SUM(total_unique_beneficiaries)::bigint,
       SUM(total_paid)::text
FROM medicaid_provider_spending
WHERE billing_provider_npi = $1
GROUP BY claim_month
ORDER BY claim_month`

const monthlyByHCPCS = `
SELECT claim_month,
       SUM(total_claims)::bigint,
       SUM(total_unique_beneficiaries)::bigint,
       SUM(total_paid)::text
FROM medicaid_provider_spending
WHERE hcpcs_code = $1
GROUP BY claim_month
ORDER BY claim_month`

// MonthlyByNPI is a billing provider's spending per claim month.
func (q *Queries) MonthlyByNPI(ctx context.Context, npi string) ([]MonthlySpending, error) {
	return q.monthly(ctx, monthlyByNPI, npi)
}

// MonthlyByHCPCS is a procedure code's spending per claim month.
func (q *Queries) MonthlyByHCPCS(ctx context.Context, code string) ([]MonthlySpending, error) {
	return q.monthly(ctx, monthlyByHCPCS, code)
}

func (q *Queries) monthly(ctx context.Context, sql, key string) ([]MonthlySpending, error) {
	rows, err := q.db.Query(ctx, sql, key)
	if err != nil {
		return nil, fmt.Errorf("query monthly spending %s: %w", key, err)
	}
	items, err := collect(rows, func(row pgx.CollectableRow) (MonthlySpending, error) {
		var i MonthlySpending
		var paid string
		if err := row.Scan(&i.Month, &i.Claims, &i.Beneficiaries, &paid); err != nil {
			return i, err
		}
		amount, err := money.Parse(paid)
		i.Paid = amount
		return i, err
	})
	if err != nil {
		return nil, fmt.Errorf("read monthly spending %s: %w", key, err)
	}
	return items, nil
}

// collect is pgx.CollectRows with a non-nil empty result.
func collect[T any](rows pgx.Rows, fn pgx.RowToFunc[T]) ([]T, error) {
	items, err := pgx.CollectRows(rows, fn)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
