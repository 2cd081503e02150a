package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/COG-GTM/devin-hhs/refdata"
)

// TxBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SeedCounts reports the rows present after SeedFederal.
type SeedCounts struct {
	FMAP          int64
	StateSpending int64
	Sources       int64
}

const upsertFMAP = `
INSERT INTO federal_fmap (state_code, state_name, fy2024, fy2023, fy2022, expansion_status)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (state_code) DO UPDATE SET
    state_name = EXCLUDED.state_name,
    fy2024 = EXCLUDED.fy2024,
    fy2023 = EXCLUDED.fy2023,
    fy2022 = EXCLUDED.fy2022,
    expansion_status = EXCLUDED.expansion_status`

const upsertStateSpending = `
INSERT INTO federal_state_spending (state_code, total_spending, population, per_capita)
VALUES ($1, $2, $3, $4)
ON CONFLICT (state_code) DO UPDATE SET
    total_spending = EXCLUDED.total_spending,
    population = EXCLUDED.population,
    per_capita = EXCLUDED.per_capita`

const upsertSource = `
INSERT INTO data_sources (source_key, source_name, source_url, description, data_type, last_updated, coverage)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (source_key) DO UPDATE SET
    source_name = EXCLUDED.source_name,
    source_url = EXCLUDED.source_url,
    description = EXCLUDED.description,
    data_type = EXCLUDED.data_type,
    last_updated = EXCLUDED.last_updated,
    coverage = EXCLUDED.coverage`

// SeedFederal upserts the FMAP, state spending and data source reference
// tables in one transaction. Running it twice leaves the same rows.
func SeedFederal(ctx context.Context, b TxBeginner, ds *refdata.Dataset) (SeedCounts, error) {
	var counts SeedCounts
	err := pgx.BeginFunc(ctx, b, func(tx pgx.Tx) error {
		for _, f := range ds.FMAP() {
			if _, err := tx.Exec(ctx, upsertFMAP, f.StateCode, f.StateName, f.FY2024, f.FY2023, f.FY2022, f.ExpansionStatus); err != nil {
				return fmt.Errorf("upsert fmap %s: %w", f.StateCode, err)
			}
		}
		for _, s := range ds.StateSpending() {
			if _, err := tx.Exec(ctx, upsertStateSpending, s.State, s.Spending, s.Population, s.PerCapita); err != nil {
				return fmt.Errorf("upsert state spending %s: %w", s.State, err)
			}
		}
		for _, s := range ds.Sources() {
			if _, err := tx.Exec(ctx, upsertSource, s.ID, s.Name, s.URL, s.Description, s.DataType, s.LastUpdated, s.Coverage); err != nil {
				return fmt.Errorf("upsert source %s: %w", s.ID, err)
			}
		}

		for table, n := range map[string]*int64{
			"federal_fmap":           &counts.FMAP,
			"federal_state_spending": &counts.StateSpending,
			"data_sources":           &counts.Sources,
		} {
			if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(n); err != nil {
				return fmt.Errorf("count %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return SeedCounts{}, fmt.Errorf("seed federal data: %w", err)
	}
	return counts, nil
}

const listFMAP = `
SELECT state_code, state_name, fy2024::float8, fy2023::float8, fy2022::float8, expansion_status
FROM federal_fmap
ORDER BY state_code`

// FMAP lists the stored FMAP rates by state code.
func (q *Queries) FMAP(ctx context.Context) ([]refdata.FMAP, error) {
	rows, err := q.db.Query(ctx, listFMAP)
	if err != nil {
		return nil, fmt.Errorf("query fmap: %w", err)
	}
	items, err := collect(rows, func(row pgx.CollectableRow) (refdata.FMAP, error) {
		var i refdata.FMAP
		err := row.Scan(&i.StateCode, &i.StateName, &i.FY2024, &i.FY2023, &i.FY2022, &i.ExpansionStatus)
		return i, err
	})
	if err != nil {
		return nil, fmt.Errorf("read fmap: %w", err)
	}
	return items, nil
}

const listStateSpending = `
SELECT state_code, total_spending::float8, population::bigint, per_capita::float8
FROM federal_state_spending
ORDER BY total_spending DESC, state_code`

// StateSpending lists stored state totals, largest first.
func (q *Queries) StateSpending(ctx context.Context) ([]refdata.StateSpending, error) {
	rows, err := q.db.Query(ctx, listStateSpending)
	if err != nil {
		return nil, fmt.Errorf("query state spending: %w", err)
	}
	items, err := collect(rows, func(row pgx.CollectableRow) (refdata.StateSpending, error) {
		var i refdata.StateSpending
		err := row.Scan(&i.State, &i.Spending, &i.Population, &i.PerCapita)
		return i, err
	})
	if err != nil {
		return nil, fmt.Errorf("read state spending: %w", err)
	}
	return items, nil
}

const listSources = `
SELECT source_key, source_name, source_url, COALESCE(description, ''), COALESCE(data_type, ''),
       COALESCE(last_updated, ''), COALESCE(coverage, '')
FROM data_sources
ORDER BY id`

func (q *Queries) Sources(ctx context.Context) ([]refdata.Source, error) {
	rows, err := q.db.Query(ctx, listSources)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	items, err := collect(rows, func(row pgx.CollectableRow) (refdata.Source, error) {
		var i refdata.Source
		err := row.Scan(&i.ID, &i.Name, &i.URL, &i.Description, &i.DataType, &i.LastUpdated, &i.Coverage)
		return i, err
	})
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	return items, nil
}
