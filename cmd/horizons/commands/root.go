package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/TimurManjosov/horizons/internal/catalog"
	"github.com/TimurManjosov/horizons/internal/cli"
	"github.com/TimurManjosov/horizons/internal/config"
	"github.com/TimurManjosov/horizons/internal/logging"
)

var (
	// Global flags
	engine      string
	catalogPath string
	format      string
	searchMode  string
	quiet       bool
	verbose     bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "horizons",
	Short: "Find the oldest runtime versions popular packages still work on",
	Long: `Horizons installs and exercises packages against a range of runtime
versions (Node.js via nvm, Go via golang.org/dl, Python via uv) and reports the oldest version
each package actually works on, separating declared engine constraints from
real runtime failures.

Examples:
  horizons run
  horizons run --engine go --search-mode linear
  horizons probe express
  horizons catalog list --format yaml
  horizons report show --format json`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&engine, "engine", "", "Runtime engine (node, go, python); overrides HORIZONS_ENGINE, defaults to the --catalog file's engine")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Catalog YAML file; overrides HORIZONS_CATALOG")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&searchMode, "search-mode", "", "Search mode (binary, linear); overrides HORIZONS_SEARCH_MODE")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

// settings is the validated configuration every command starts from.
type settings struct {
	cfg    *config.Config
	logger zerolog.Logger
	format cli.OutputFormat
}

func loadSettings() (*settings, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	applyFlags(cfg)
	if err := inferEngine(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	out, err := cli.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return &settings{cfg: cfg, logger: logger, format: out}, nil
}

// applyFlags lets command-line flags win over environment and .env values.
func applyFlags(cfg *config.Config) {
	if engine != "" {
		cfg.Engine = engine
		cfg.EngineExplicit = true
	}
	if catalogPath != "" {
		cfg.CatalogPath = catalogPath
	}
	if searchMode != "" {
		cfg.SearchMode = searchMode
	}
	switch {
	case verbose:
		cfg.LogLevel = "debug"
	case quiet:
		cfg.LogLevel = "warn"
	}
}

// inferEngine takes the engine from the catalog file unless one was chosen
// with --engine or HORIZONS_ENGINE. A missing file is left to the command.
func inferEngine(cfg *config.Config) error {
	if cfg.EngineExplicit || cfg.CatalogPath == "" {
		return nil
	}
	c, err := catalog.Load(cfg.CatalogPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	cfg.Engine = c.Engine
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM so running trials are killed.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
