package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/horizons/internal/catalog"
	"github.com/TimurManjosov/horizons/internal/cli"
	"github.com/TimurManjosov/horizons/internal/store"
)

var (
	runMetricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full compatibility experiment",
	Long: `Test the control case and then every catalog package against the
candidate versions, and persist the complete report once at the end.

Examples:
  horizons run
  horizons run --engine go --catalog my-catalog.yaml
  horizons run --search-mode linear --format json
  horizons run --metrics-addr :9090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		c, err := catalog.Resolve(s.cfg.Engine, s.cfg.CatalogPath)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		st, err := store.NewStore(ctx, store.Options{
			Type:       s.cfg.StoreType,
			ReportPath: s.cfg.ReportPath,
			DSN:        s.cfg.DatabaseDSN,
		})
		if err != nil {
			return fmt.Errorf("failed to open report store: %w", err)
		}
		defer st.Close()

		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		serveMetrics(metricsCtx, s, runMetricsAddr)

		exp, err := newExperiment(s, st)
		if err != nil {
			return err
		}
		report, err := exp.Run(ctx, c.Packages, c.Versions)
		if err != nil {
			return fmt.Errorf("experiment failed: %w", err)
		}

		if !quiet {
			return cli.PrintReport(cmd.OutOrStdout(), &report, s.format)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address while running")
}
