package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aqasim81/database-schema-engine/internal/analyzer"
	"github.com/aqasim81/database-schema-engine/internal/analyzer/rules"
)

// errCriticalSeverityFindings is returned when --fail-on-critical is set and
// critical findings exist.
var errCriticalSeverityFindings = errors.New("critical severity findings detected")

// errUnknownFormat is returned for output formats analyze does not render.
var errUnknownFormat = errors.New("unknown output format")

var analyzeCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "analyze [migrations-dir]",
	Short: "Lint migrations for locking and data-loss hazards",
	Long: `Analyze migration scripts with the PostgreSQL parser and report
operations that lock tables, rewrite them, or destroy data, together
with safer alternatives. No database connection is needed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	analyzeCmd.Flags().String("format", "", "output format (text, json)")
	analyzeCmd.Flags().Bool("fail-on-critical", false, "exit non-zero when critical findings exist")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	dir := AppConfig.MigrationsDir
	if len(args) > 0 {
		dir = args[0]
	}

	sorted, err := loadAndSortMigrations(dir, cmd.OutOrStdout())
	if err != nil || sorted == nil {
		return err
	}

	a := analyzer.New(
		analyzer.WithRegistry(rules.NewDefaultRegistry()),
		analyzer.WithPGVersion(AppConfig.TargetPGVersion),
	)

	results, err := a.AnalyzeAll(sorted)
	if err != nil {
		return fmt.Errorf("analyzing migrations: %w", err)
	}

	format := AppConfig.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}

	var hasCritical bool

	switch format {
	case "", "text":
		hasCritical = printAnalysisText(cmd.OutOrStdout(), results)
	case "json":
		hasCritical, err = printAnalysisJSON(cmd.OutOrStdout(), results)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	failOnCritical, _ := cmd.Flags().GetBool("fail-on-critical")
	if failOnCritical && hasCritical {
		return errCriticalSeverityFindings
	}

	return nil
}

func printAnalysisText(out io.Writer, results []analyzer.AnalysisResult) bool {
	totalFindings := 0
	hasCritical := false

	for _, r := range results {
		if len(r.Findings) == 0 {
			continue
		}

		fmt.Fprintf(out, "\n=== %s ===\n", r.MigrationName)

		for _, f := range r.Findings {
			fmt.Fprintf(out, "  [%s] %s\n", f.Severity, f.Message)
			fmt.Fprintf(out, "    Table: %s\n", f.Table)
			fmt.Fprintf(out, "    Rule:  %s\n", f.Rule)

			if f.Statement != "" {
				fmt.Fprintf(out, "    SQL:   %s\n", f.Statement)
			}

			fmt.Fprintf(out, "    Fix:   %s\n\n", f.Suggestion)
		}

		totalFindings += len(r.Findings)

		if r.HasCritical() {
			hasCritical = true
		}
	}

	if totalFindings == 0 {
		fmt.Fprintln(out, "No hazardous operations detected.")
	} else {
		fmt.Fprintf(out, "Found %d finding(s) across %d migration(s).\n",
			totalFindings, countMigrationsWithFindings(results))
	}

	return hasCritical
}

func printAnalysisJSON(out io.Writer, results []analyzer.AnalysisResult) (bool, error) {
	hasCritical := false

	for i := range results {
		if results[i].HasCritical() {
			hasCritical = true
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(results); err != nil {
		return false, fmt.Errorf("encoding analysis results: %w", err)
	}

	return hasCritical, nil
}

func countMigrationsWithFindings(results []analyzer.AnalysisResult) int {
	count := 0

	for _, r := range results {
		if len(r.Findings) > 0 {
			count++
		}
	}

	return count
}
