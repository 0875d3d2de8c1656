package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/database-schema-engine/internal/dialect"
	"github.com/aqasim81/database-schema-engine/internal/engine"
)

var baselineCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "baseline",
	Short: "Record migrations as applied without running them",
	Long: `Adopt an already-populated database by recording the local migration
history as applied, without executing any SQL. This only works against
an empty ledger. With --migration, record just that one migration; any
failed records for it are cleaned up first.`,
	RunE: runBaseline,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	baselineCmd.Flags().String("migration", "", "record a single migration instead of the whole history")
	rootCmd.AddCommand(baselineCmd)
}

func runBaseline(cmd *cobra.Command, _ []string) error {
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

	out := cmd.OutOrStdout()

	if name, _ := cmd.Flags().GetString("migration"); name != "" {
		if err := eng.MarkMigrationApplied(ctx, name); err != nil {
			return err
		}

		fmt.Fprintf(out, "Recorded %s as applied.\n", name)

		return nil
	}

	if err := eng.BaselineInitialize(ctx); err != nil {
		return err
	}

	fmt.Fprintln(out, "Recorded the local migration history as applied.")

	return nil
}
