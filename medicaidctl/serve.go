package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/COG-GTM/devin-hhs/server"
)

var (
	serveAddr   string
	serveFromDB bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Compute the reports and serve them over HTTP",
	Long: `Compute the outlier, state and federal reports once and serve them from
memory. With a database configured the provider and procedure code detail
routes query it directly; without one they answer 503.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, q, err := openStore(ctx)
		if err != nil {
			return err
		}

		var store server.Store
		if pool != nil {
			defer pool.Close()
			store = q
		}

		reports, err := buildReports(ctx, q, serveFromDB)
		if err != nil {
			return err
		}

		if cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		addr := cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		return server.New(reports, store, ds, log).Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
	serveCmd.Flags().BoolVar(&serveFromDB, "from-db", false, "aggregate from the database even when a snapshot exists")
	rootCmd.AddCommand(serveCmd)
}
