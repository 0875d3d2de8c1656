package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aqasim81/database-schema-engine/internal/dialect"
	"github.com/aqasim81/database-schema-engine/internal/engine"
)

var diagnoseCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "diagnose",
	Short: "Compare the migrations directory with the ledger",
	Long: `Compare the local migration history with the records in the ledger
and report failed migrations, scripts edited after being applied, and
how the two histories relate. Diagnose never changes anything.`,
	RunE: runDiagnose,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
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

	printDiagnosis(cmd.OutOrStdout(), diag)

	return nil
}

func printDiagnosis(out io.Writer, diag *engine.DiagnoseResult) {
	if !diag.HasMigrationsTable {
		fmt.Fprintln(out, "The ledger table does not exist yet; the first apply creates it.")
	}

	switch h := diag.History.(type) {
	case nil:
		fmt.Fprintln(out, "Applied history matches the migrations directory.")
	case engine.DatabaseIsBehind:
		fmt.Fprintf(out, "Database is behind: %d migration(s) not applied yet:\n", len(h.UnappliedMigrationNames))

		for _, name := range h.UnappliedMigrationNames {
			fmt.Fprintf(out, "  %s\n", name)
		}
	case engine.MigrationsDirectoryIsBehind:
		fmt.Fprintf(out, "Migrations directory is behind: %d applied migration(s) missing locally:\n",
			len(h.UnpersistedMigrationNames))

		for _, name := range h.UnpersistedMigrationNames {
			fmt.Fprintf(out, "  %s\n", name)
		}
	case engine.HistoriesDiverge:
		fmt.Fprintf(out, "Histories diverge after %q.\n", h.LastCommonMigrationName)
		fmt.Fprintf(out, "  not applied:     %s\n", strings.Join(h.UnappliedMigrationNames, ", "))
		fmt.Fprintf(out, "  missing locally: %s\n", strings.Join(h.UnpersistedMigrationNames, ", "))
	}

	for _, name := range diag.FailedMigrationNames {
		fmt.Fprintf(out, "failed: %s (acknowledge with \"schema-engine rollback %s\")\n", name, name)
	}

	for _, name := range diag.EditedMigrationNames {
		fmt.Fprintf(out, "edited after apply: %s\n", name)
	}
}
