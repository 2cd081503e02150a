package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/COG-GTM/devin-hhs/db"
	"github.com/COG-GTM/devin-hhs/snapshot"
)

var loadTruncate bool

var loadCmd = &cobra.Command{
	Use:   "load <spending.csv>",
	Short: "Bulk load the provider spending CSV into PostgreSQL",
	Long: `Stream the HHS provider spending CSV into medicaid_provider_spending with
COPY. Rows are committed in batches of batch_size.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		q := db.New(pool)
		if err := q.Migrate(ctx); err != nil {
			return err
		}
		if loadTruncate {
			if err := q.Truncate(ctx, "medicaid_provider_spending"); err != nil {
				return err
			}
			log.Info("truncated medicaid_provider_spending")
		}

		reader, err := snapshot.NewSpendingReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		_, err = loadSpending(ctx, pool, reader, cfg.BatchSize, log)
		return err
	},
}

func init() {
	loadCmd.Flags().BoolVar(&loadTruncate, "truncate", false, "empty the spending table before loading")
	rootCmd.AddCommand(loadCmd)
}

type rowReader interface {
	Next() (db.SpendingRow, error)
	RowNum() int64
}

// loadSpending copies rows from r in batches, one transaction per batch.
func loadSpending(ctx context.Context, pool *pgxpool.Pool, r rowReader, batchSize int, log logrus.FieldLogger) (int64, error) {
	var (
		count int64
		q     = db.New(pool)
		batch = make([]db.SpendingRow, 0, batchSize)
	)

	start := time.Now()
	lastLog := start

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		var n int64
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) (err error) {
			n, err = q.WithTx(tx).CopySpendingRows(ctx, batch)
			return err
		})
		if err != nil {
			return fmt.Errorf("commit batch at row %d: %w", r.RowNum(), err)
		}
		count += n
		batch = batch[:0]

		if now := time.Now(); now.Sub(lastLog) >= 5*time.Second {
			log.WithFields(logrus.Fields{
				"rows": count,
				"row":  r.RowNum(),
				"rate": fmt.Sprintf("%.0f rows/s", float64(count)/now.Sub(start).Seconds()),
			}).Info("progress")
			lastLog = now
		}
		return nil
	}

	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, err
		}
		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return count, err
			}
		}
	}
	if err := flush(); err != nil {
		return count, err
	}

	elapsed := time.Since(start)
	log.WithFields(logrus.Fields{
		"rows":    count,
		"elapsed": elapsed.Round(time.Millisecond),
		"rate":    fmt.Sprintf("%.0f rows/s", float64(count)/elapsed.Seconds()),
	}).Info("load complete")
	return count, nil
}
