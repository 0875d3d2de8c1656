package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/database-schema-engine/internal/dialect"
	"github.com/aqasim81/database-schema-engine/internal/engine"
)

var rollbackCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "rollback <migration-name>",
	Short: "Mark a failed migration as rolled back",
	Long: `Mark a failed migration as rolled back after its partial effects have
been undone manually. The next apply runs it again from the start.
Migrations that finished successfully cannot be rolled back this way.`,
	Args: cobra.ExactArgs(1),
	RunE: runRollback,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern
	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
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

	if err := eng.MarkMigrationRolledBack(ctx, args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as rolled back; the next apply will run it again.\n", args[0])

	return nil
}
