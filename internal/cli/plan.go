package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aqasim81/database-schema-engine/internal/analyzer"
	"github.com/aqasim81/database-schema-engine/internal/analyzer/rules"
	"github.com/aqasim81/database-schema-engine/internal/dialect"
	"github.com/aqasim81/database-schema-engine/internal/engine"
	"github.com/aqasim81/database-schema-engine/internal/migration"
)

var planCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "plan",
	Short: "Show what apply would execute",
	Long: `Compare the local migration history with the ledger and list every
migration with its state. Pending migrations are linted so hazards show
up before anything runs.`,
	RunE: runPlan,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	planCmd.Flags().Bool("pending-only", false, "hide migrations that are already applied")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	pendingOnly, _ := cmd.Flags().GetBool("pending-only")

	sorted, err := loadAndSortMigrations(cfg.MigrationsDir, cmd.OutOrStdout())
	if err != nil || sorted == nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := connectDB(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer pool.Close()

	eng := engine.New(pool, dialect.NewPostgres(), cfg.MigrationsDir)

	diag, err := eng.DiagnoseMigrationHistory(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// States an apply cannot fix are reported instead of planned.
	switch h := diag.History.(type) {
	case engine.MigrationsDirectoryIsBehind:
		fmt.Fprintf(out, "The ledger holds migrations missing locally: %s\n",
			strings.Join(h.UnpersistedMigrationNames, ", "))
		fmt.Fprintln(out, "Apply would refuse this state; run \"schema-engine diagnose\" for details.")

		return nil
	case engine.HistoriesDiverge:
		fmt.Fprintf(out, "Local and applied histories diverge after %q.\n", h.LastCommonMigrationName)
		fmt.Fprintln(out, "Apply would refuse this state; run \"schema-engine diagnose\" for details.")

		return nil
	}

	pending := toNameSet(nil)
	if h, ok := diag.History.(engine.DatabaseIsBehind); ok {
		pending = toNameSet(h.UnappliedMigrationNames)
	}

	failed := toNameSet(diag.FailedMigrationNames)
	edited := toNameSet(diag.EditedMigrationNames)

	fmt.Fprintf(out, "\nPlan for %s:\n", cfg.MigrationsDir)

	var pendingMigrations []migration.Migration

	splitter := dialect.NewPostgres()

	for _, m := range sorted {
		switch {
		case failed[m.Name]:
			fmt.Fprintf(out, "  [failed]  %s  roll back before applying\n", m.Name)
		case edited[m.Name]:
			fmt.Fprintf(out, "  [edited]  %s  checksum differs from the ledger\n", m.Name)
		case pending[m.Name]:
			statements, splitErr := splitter.SplitStatements(m.Script)
			if splitErr != nil {
				return fmt.Errorf("splitting migration %s: %w", m.Name, splitErr)
			}

			fmt.Fprintf(out, "  [pending] %s  %d statement(s)\n", m.Name, len(statements))
			pendingMigrations = append(pendingMigrations, m)
		case !pendingOnly:
			fmt.Fprintf(out, "  [applied] %s\n", m.Name)
		}
	}

	if len(pendingMigrations) == 0 {
		fmt.Fprintln(out, "\nDatabase is up to date; nothing to apply.")

		return nil
	}

	a := analyzer.New(
		analyzer.WithRegistry(rules.NewDefaultRegistry()),
		analyzer.WithPGVersion(cfg.TargetPGVersion),
	)

	results, err := a.AnalyzeAll(pendingMigrations)
	if err != nil {
		return fmt.Errorf("analyzing migrations: %w", err)
	}

	printAnalysisText(out, results)

	fmt.Fprintf(out, "\n%d migration(s) would be applied.\n", len(pendingMigrations))

	return nil
}

func toNameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}

	return set
}
