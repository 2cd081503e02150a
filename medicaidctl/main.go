package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/COG-GTM/devin-hhs/config"
	"github.com/COG-GTM/devin-hhs/logging"
	"github.com/COG-GTM/devin-hhs/refdata"
)

var (
	configPath string

	cfg *config.Config
	log *logrus.Logger
	ds  *refdata.Dataset
)

var rootCmd = &cobra.Command{
	Use:   "medicaidctl",
	Short: "Medicaid provider spending outlier analysis",
	Long: `medicaidctl loads HHS Medicaid provider spending into PostgreSQL, snapshots
the provider, procedure code and billing mismatch aggregates to Parquet,
computes z-score outlier reports and serves them over HTTP.

Settings come from --config (YAML) and DEVINHHS_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		if log, err = logging.New(cfg.LogLevel); err != nil {
			return err
		}
		if ds, err = refdata.Load(); err != nil {
			return fmt.Errorf("load reference data: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
