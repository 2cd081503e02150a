package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/COG-GTM/devin-hhs/analysis"
	"github.com/COG-GTM/devin-hhs/money"
)

var (
	computeFromDB bool
	computeTop    int
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute the outlier report and write it to output_path",
	Long: `Score providers, procedure codes and billing/servicing pairs by total
spending and write the outlier report as JSON. Aggregates come from the
Parquet snapshot when one exists, otherwise from the database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, q, err := openStore(ctx)
		if err != nil {
			return err
		}
		if pool != nil {
			defer pool.Close()
		}

		in, err := loadInputs(ctx, q, cfg.SnapshotDir, computeFromDB)
		if err != nil {
			return err
		}
		report, err := outlierReport(ctx, in)
		if err != nil {
			return err
		}
		if err := writeJSON(cfg.OutputPath, report); err != nil {
			return err
		}
		log.WithField("path", cfg.OutputPath).Info("outlier report written")

		printTop(cmd.OutOrStdout(), report, computeTop)
		return nil
	},
}

func init() {
	computeCmd.Flags().BoolVar(&computeFromDB, "from-db", false, "aggregate from the database even when a snapshot exists")
	computeCmd.Flags().IntVar(&computeTop, "top", 10, "rows to print per table")
	rootCmd.AddCommand(computeCmd)
}

// writeJSON writes v indented to path via a temporary file in the same
// directory.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func billions(v float64) string {
	a, err := money.FromFloat(v)
	if err != nil {
		return "n/a"
	}
	return "$" + a.Billions(3) + "B"
}

func printTop(w io.Writer, r *analysis.OutlierReport, n int) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	n = max(n, 0)
	m := r.Metadata
	fmt.Fprintf(w, "\n%s %d providers, %d codes, %d billing mismatches, %d cost per claim flagged\n",
		cyan("Outliers:"), m.ProviderCount, m.HCPCSCount, m.MismatchCount, m.CostCount)

	fmt.Fprintf(w, "\n%s\n", cyan("Top providers by spending z-score"))
	for i, p := range r.ProviderOutliers[:min(n, len(r.ProviderOutliers))] {
		fmt.Fprintf(w, "  %2d. %s  %-40s z=%s  %s  %s\n",
			i+1, p.NPI, truncate(p.Name, 40), red(fmt.Sprintf("%.2f", p.SpendingZScore)),
			billions(p.TotalSpending), gray(p.Analogy.Probability))
	}

	fmt.Fprintf(w, "\n%s\n", cyan("Top providers by cost per claim z-score"))
	for i, p := range r.CostPerClaimOutliers[:min(n, len(r.CostPerClaimOutliers))] {
		avg := "n/a"
		if p.AvgPerClaim != nil {
			avg = fmt.Sprintf("$%.2f/claim", *p.AvgPerClaim)
		}
		fmt.Fprintf(w, "  %2d. %s  %-40s z=%s  %s\n",
			i+1, p.NPI, truncate(p.Name, 40), red(fmt.Sprintf("%.2f", *p.CostZScore)), avg)
	}

	fmt.Fprintf(w, "\n%s\n", cyan("Top procedure codes by spending z-score"))
	for i, h := range r.HCPCSOutliers[:min(n, len(r.HCPCSOutliers))] {
		fmt.Fprintf(w, "  %2d. %-6s %-40s z=%s  %s\n",
			i+1, h.Code, truncate(h.Definition, 40), red(fmt.Sprintf("%.2f", h.SpendingZScore)),
			billions(h.TotalSpending))
	}

	fmt.Fprintf(w, "\n%s\n", cyan("Top billing/servicing mismatches"))
	for i, b := range r.BillingMismatches[:min(n, len(r.BillingMismatches))] {
		fmt.Fprintf(w, "  %2d. %s -> %s  z=%s  %s\n",
			i+1, b.BillingNPI, b.ServicingNPI, red(fmt.Sprintf("%.2f", b.SpendingZScore)),
			billions(b.Spending))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
