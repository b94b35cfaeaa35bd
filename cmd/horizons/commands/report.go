package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/horizons/internal/cli"
	"github.com/TimurManjosov/horizons/internal/probe"
	"github.com/TimurManjosov/horizons/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Read stored experiment reports",
}

var reportShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a stored report (the latest when no id is given)",
	Long: `Render a stored report.

Examples:
  horizons report show
  horizons report show 1b4e28ba-2fa1-11d2-883f-0016d3cca427 --format yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		var report *probe.Report
		if len(args) == 1 {
			report, err = st.Get(ctx, args[0])
		} else {
			report, err = st.Latest(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to load report: %w", err)
		}
		return cli.PrintReport(cmd.OutOrStdout(), report, s.format)
	},
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		summaries, err := st.List(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list reports: %w", err)
		}
		if len(summaries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No reports found")
			return nil
		}
		return cli.PrintSummaries(cmd.OutOrStdout(), summaries, s.format)
	},
}

func openStore() (*settings, store.Store, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.NewStore(context.Background(), store.Options{
		Type:       s.cfg.StoreType,
		ReportPath: s.cfg.ReportPath,
		DSN:        s.cfg.DatabaseDSN,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open report store: %w", err)
	}
	return s, st, nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportListCmd)
}
