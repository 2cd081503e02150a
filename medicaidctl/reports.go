package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/COG-GTM/devin-hhs/analysis"
	"github.com/COG-GTM/devin-hhs/db"
	"github.com/COG-GTM/devin-hhs/narrative"
	"github.com/COG-GTM/devin-hhs/refdata"
	"github.com/COG-GTM/devin-hhs/server"
	"github.com/COG-GTM/devin-hhs/snapshot"
)

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database_url is not set (DEVINHHS_DATABASE_URL)")
	}
	return db.Connect(ctx, cfg.DatabaseURL, cfg.MaxConns)
}

// openStore connects when a database is configured. A nil pool means the
// command runs from snapshots and embedded reference data only.
func openStore(ctx context.Context) (*pgxpool.Pool, *db.Queries, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, nil
	}
	pool, err := connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	return pool, db.New(pool), nil
}

func aggregates(ctx context.Context, q *db.Queries) (analysis.Inputs, error) {
	var in analysis.Inputs
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Providers, err = q.ProviderAggregates(ctx)
		return err
	})
	g.Go(func() (err error) {
		in.HCPCS, err = q.HCPCSAggregates(ctx)
		return err
	})
	g.Go(func() (err error) {
		in.Mismatches, err = q.MismatchAggregates(ctx)
		return err
	})
	g.Go(func() (err error) {
		in.Prices, err = q.HCPCSPriceAggregates(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return analysis.Inputs{}, err
	}
	return in, nil
}

// loadInputs prefers the snapshot directory and falls back to the database.
// fromDB skips the snapshot.
func loadInputs(ctx context.Context, q *db.Queries, dir string, fromDB bool) (analysis.Inputs, error) {
	if !fromDB && snapshot.Exists(dir) {
		log.WithField("path", dir).Info("reading aggregates from snapshot")
		return snapshot.Load(dir)
	}
	if q == nil {
		return analysis.Inputs{}, fmt.Errorf("no snapshot in %s and no database configured", dir)
	}
	log.Info("reading aggregates from database")
	return aggregates(ctx, q)
}

// federalData reads the stored FMAP and state spending tables, using the
// embedded reference data when the database is absent or not yet seeded.
func federalData(ctx context.Context, q *db.Queries, ds *refdata.Dataset) ([]refdata.FMAP, []refdata.StateSpending, error) {
	if q == nil {
		return ds.FMAP(), ds.StateSpending(), nil
	}
	fmap, err := q.FMAP(ctx)
	if err != nil {
		return nil, nil, err
	}
	spending, err := q.StateSpending(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(fmap) == 0 || len(spending) == 0 {
		log.Warn("federal tables empty, using embedded reference data (run migrate to seed)")
		return ds.FMAP(), ds.StateSpending(), nil
	}
	return fmap, spending, nil
}

// outlierReport computes the provider, HCPCS and mismatch report.
func outlierReport(ctx context.Context, in analysis.Inputs) (*analysis.OutlierReport, error) {
	rc, err := cfg.ReportConfig()
	if err != nil {
		return nil, err
	}
	return analysis.BuildOutlierReport(ctx, in, rc, ds)
}

// buildReports computes everything the server publishes.
func buildReports(ctx context.Context, q *db.Queries, fromDB bool) (server.Reports, error) {
	start := time.Now()

	in, err := loadInputs(ctx, q, cfg.SnapshotDir, fromDB)
	if err != nil {
		return server.Reports{}, err
	}
	outliers, err := outlierReport(ctx, in)
	if err != nil {
		return server.Reports{}, err
	}

	fmap, spending, err := federalData(ctx, q, ds)
	if err != nil {
		return server.Reports{}, err
	}
	rules, err := narrative.Default()
	if err != nil {
		return server.Reports{}, err
	}
	stateCfg, err := cfg.StateDomain()
	if err != nil {
		return server.Reports{}, err
	}
	states := analysis.JoinStates(spending, fmap, ds.StateName)
	risk := analysis.ProviderRiskScores(in.Providers, cfg.RiskConfig(), ds)

	reports := server.Reports{
		Outliers:      outliers,
		States:        analysis.AnalyzeStates(states, stateCfg, rules),
		Federal:       analysis.FederalAnalysis(fmap, states, time.Now().UTC()),
		Providers:     in.Providers,
		Risk:          &risk,
		PriceVariance: analysis.AnalyzePriceVariance(in.Prices, cfg.PriceMinProviders, ds),
	}
	log.WithFields(logrus.Fields{
		"providers": len(outliers.ProviderOutliers),
		"hcpcs":     len(outliers.HCPCSOutliers),
		"mismatch":  len(outliers.BillingMismatches),
		"cost":      len(outliers.CostPerClaimOutliers),
		"risk":      risk.Scored,
		"prices":    len(reports.PriceVariance),
		"states":    len(reports.States.AllStates),
		"elapsed":   time.Since(start).Round(time.Millisecond),
	}).Info("reports computed")
	return reports, nil
}
