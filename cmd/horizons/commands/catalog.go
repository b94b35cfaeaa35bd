package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/horizons/internal/catalog"
	"github.com/TimurManjosov/horizons/internal/cli"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and create package catalogs",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the effective catalog",
	Long: `Show the packages and candidate versions an experiment would use.

Examples:
  horizons catalog list
  horizons catalog list --engine go --format yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		c, err := catalog.Resolve(s.cfg.Engine, s.cfg.CatalogPath)
		if err != nil {
			return err
		}
		return cli.PrintCatalog(cmd.OutOrStdout(), c, s.format)
	},
}

var catalogInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the built-in catalog to a YAML file",
	Long: `Write the built-in catalog for the selected engine so it can be edited
and passed back with --catalog.

Examples:
  horizons catalog init
  horizons catalog init go-catalog.yaml --engine go`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		target := "catalog.yaml"
		if len(args) == 1 {
			target = args[0]
		}
		if err := catalog.Init(target, s.cfg.Engine); err != nil {
			return fmt.Errorf("failed to initialize catalog: %w", err)
		}

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog file created at: %s\n", target)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogInitCmd)
}
