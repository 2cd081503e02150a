package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/COG-GTM/devin-hhs/db"
	"github.com/COG-GTM/devin-hhs/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write the spending aggregates to Parquet",
	Long: `Aggregate medicaid_provider_spending by provider, procedure code and
billing/servicing pair and write the results to snapshot_dir. compute and
serve read these files instead of querying the database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		in, err := aggregates(ctx, db.New(pool))
		if err != nil {
			return err
		}
		if err := snapshot.Save(cfg.SnapshotDir, in); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"path":       cfg.SnapshotDir,
			"providers":  len(in.Providers),
			"hcpcs":      len(in.HCPCS),
			"mismatches": len(in.Mismatches),
			"prices":     len(in.Prices),
		}).Info("snapshot written")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}
