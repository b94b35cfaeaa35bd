// Package cli renders reports, listings and catalogs for the horizons command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/horizons/internal/catalog"
	"github.com/TimurManjosov/horizons/internal/probe"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// PrintReport outputs a report in the specified format
func PrintReport(w io.Writer, report *probe.Report, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, report)
	case FormatYAML:
		return printYAML(w, report)
	case FormatTable:
		return printReportTable(w, report)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintSummaries outputs stored report summaries in the specified format
func PrintSummaries(w io.Writer, summaries []probe.Summary, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]probe.Summary{"reports": summaries})
	case FormatYAML:
		return printYAML(w, summaries)
	case FormatTable:
		return printSummaryTable(w, summaries)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintCatalog outputs a catalog in the specified format
func PrintCatalog(w io.Writer, c catalog.Catalog, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, c)
	case FormatYAML:
		return printYAML(w, c)
	case FormatTable:
		return printCatalogTable(w, c)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintValue outputs any value as json or yaml; table falls back to yaml.
func PrintValue(w io.Writer, v any, format OutputFormat) error {
	if format == FormatJSON {
		return printJSON(w, v)
	}
	return printYAML(w, v)
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printReportTable(w io.Writer, report *probe.Report) error {
	fmt.Fprintf(w, "Report %s (%s, %s search)\n", report.ID, report.Engine, report.SearchMode)

	table := tablewriter.NewWriter(w)
	table.Header("Package", "Resolved", "Declares", "Oldest", "Newest", "Trials", "Engine Restriction")

	for _, res := range report.Results {
		restriction := ""
		if res.FirstDeclaredConstraintMessage != nil {
			restriction = truncate(*res.FirstDeclaredConstraintMessage, 40)
		}
		resolved := ""
		if res.ResolvedVersion != nil {
			resolved = *res.ResolvedVersion
		}
		trials := strconv.Itoa(len(res.Trials))
		if n := len(res.MonotonicityViolations); n > 0 {
			trials = fmt.Sprintf("%s (%d non-monotonic)", trials, n)
		}

		table.Append(
			res.PackageName,
			resolved,
			strconv.FormatBool(res.DeclaresEngineConstraint),
			versionOrNone(res.OldestCompatibleVersion),
			versionOrNone(res.NewestTestedVersion),
			trials,
			restriction,
		)
	}

	return table.Render()
}

func printSummaryTable(w io.Writer, summaries []probe.Summary) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Engine", "Packages", "Compatible", "Started At", "Duration")

	for _, s := range summaries {
		table.Append(
			s.ID,
			s.Engine,
			strconv.Itoa(s.Packages),
			strconv.Itoa(s.Compatible),
			s.StartedAt.Format("2006-01-02 15:04"),
			s.FinishedAt.Sub(s.StartedAt).Round(1e9).String(),
		)
	}

	return table.Render()
}

func printCatalogTable(w io.Writer, c catalog.Catalog) error {
	fmt.Fprintf(w, "Engine: %s\nVersions:", c.Engine)
	for _, v := range c.Versions {
		fmt.Fprintf(w, " %s", v)
	}
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.Header("Package", "Import", "Spec", "Declares Constraint")
	for _, p := range c.Packages {
		table.Append(p.Name, p.ImportPath(), p.Spec, strconv.FormatBool(p.DeclaresEngineConstraint))
	}
	return table.Render()
}

func versionOrNone(v *probe.Version) string {
	if v == nil {
		return "NONE"
	}
	return string(*v)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
