package commands

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/horizons/internal/catalog"
	"github.com/TimurManjosov/horizons/internal/cli"
	"github.com/TimurManjosov/horizons/internal/store"
)

var (
	probeOutput string
)

var probeCmd = &cobra.Command{
	Use:   "probe <package>",
	Short: "Find the oldest compatible version of a single package",
	Long: `Run one compatibility search for a single package and write the result
to result-<name>.json. Packages missing from the catalog are tested anyway,
as not declaring an engine constraint.

Examples:
  horizons probe express
  horizons probe github.com/google/uuid --engine go
  horizons probe koa --output koa.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		c, err := catalog.Resolve(s.cfg.Engine, s.cfg.CatalogPath)
		if err != nil {
			return err
		}
		pkg, known := c.Lookup(args[0])
		if !known {
			s.logger.Warn().Str("package", pkg.Name).Msg("package not in catalog, testing without a declared engine constraint")
		}

		output := probeOutput
		if output == "" {
			output = resultFileName(pkg.Name)
		}
		sink := store.NewFileStore(output)

		exp, err := newExperiment(s, sink)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		report, err := exp.RunPackage(ctx, pkg, c.Versions)
		if err != nil {
			return fmt.Errorf("probe failed: %w", err)
		}

		if !quiet {
			if err := cli.PrintReport(cmd.OutOrStdout(), &report, s.format); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Result written to %s\n", sink.Path())
		}
		return nil
	},
}

// resultFileName names the artifact after the last path element of a package:
// "github.com/go-chi/chi/v5" and "@scope/chi" both become result-chi.json.
func resultFileName(name string) string {
	base := path.Base(name)
	if isMajorSuffix(base) {
		base = path.Base(path.Dir(name))
	}
	return "result-" + base + ".json"
}

func isMajorSuffix(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	return strings.Trim(s[1:], "0123456789") == ""
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().StringVarP(&probeOutput, "output", "o", "", "Result file (default result-<name>.json)")
}
