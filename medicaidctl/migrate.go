package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/COG-GTM/devin-hhs/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and seed the federal reference tables",
	Long: `Apply the embedded schema and upsert the FMAP, state spending and data
source tables from the embedded reference data. Safe to run repeatedly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.New(pool).Migrate(ctx); err != nil {
			return err
		}
		counts, err := db.SeedFederal(ctx, pool, ds)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"fmap":           counts.FMAP,
			"state_spending": counts.StateSpending,
			"sources":        counts.Sources,
		}).Info("federal data seeded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
