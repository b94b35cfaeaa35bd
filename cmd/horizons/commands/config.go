package commands

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/horizons/internal/cli"
	"github.com/TimurManjosov/horizons/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after .env, environment and flags are applied.
Database passwords are masked.

Example:
  horizons config show --engine go`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		return cli.PrintValue(cmd.OutOrStdout(), configView(s.cfg), s.format)
	},
}

// configView keys settings by the environment variable that sets them.
func configView(cfg *config.Config) map[string]string {
	return map[string]string{
		"HORIZONS_ENGINE":            cfg.Engine,
		"HORIZONS_CATALOG":           cfg.CatalogPath,
		"HORIZONS_REPORT_PATH":       cfg.ReportPath,
		"HORIZONS_STORE_TYPE":        cfg.StoreType,
		"DB_DSN":                     redactDSN(cfg.DatabaseDSN),
		"HORIZONS_SEARCH_MODE":       cfg.SearchMode,
		"HORIZONS_RUNTIME_TIMEOUT":   cfg.RuntimeTimeout.String(),
		"HORIZONS_INSTALL_TIMEOUT":   cfg.InstallTimeout.String(),
		"HORIZONS_PROVISION_TIMEOUT": cfg.ProvisionTimeout.String(),
		"HORIZONS_WORKSPACE_ROOT":    cfg.WorkspaceRoot,
		"NVM_DIR":                    cfg.NVMDir,
		"GOPATH":                     cfg.GOPATH,
		"UV_PATH":                    cfg.UVPath,
		"HORIZONS_LOG_LEVEL":         cfg.LogLevel,
		"HORIZONS_LOG_FORMAT":        cfg.LogFormat,
		"APP_HTTP_ADDR":              cfg.HTTPAddr,
		"METRICS_ADDR":               cfg.MetricsAddr,
	}
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}
