package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/aqasim81/database-schema-engine/internal/analyzer"
	"github.com/aqasim81/database-schema-engine/internal/analyzer/rules"
	"github.com/aqasim81/database-schema-engine/internal/config"
	"github.com/aqasim81/database-schema-engine/internal/database"
	"github.com/aqasim81/database-schema-engine/internal/dialect"
	"github.com/aqasim81/database-schema-engine/internal/engine"
	"github.com/aqasim81/database-schema-engine/internal/executor"
	"github.com/aqasim81/database-schema-engine/internal/migration"
)

// errCriticalFindings is returned when apply is blocked by critical findings.
var errCriticalFindings = errors.New("apply aborted: critical findings detected (use --force to override)")

var applyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "apply",
	Short: "Apply pending migrations",
	Long: `Apply pending migrations in history order under the engine's advisory
lock. The ledger is checked against the migrations directory first, and
scripts are linted for hazards; critical findings block the run unless
--force is given.`,
	RunE: runApply,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	applyCmd.Flags().Bool("dry-run", false, "validate and report without executing")
	applyCmd.Flags().Bool("force", false, "apply even when critical findings exist")
	applyCmd.Flags().Duration("lock-timeout", 0, "override lock timeout (e.g., 10s, 1m)")
	applyCmd.Flags().Duration("statement-timeout", 0, "override statement timeout (e.g., 30s, 5m)")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")
	verbose, _ := cmd.Flags().GetBool("verbose")

	lockTimeout := cfg.LockTimeout
	if cmd.Flags().Changed("lock-timeout") {
		lockTimeout, _ = cmd.Flags().GetDuration("lock-timeout")
	}

	stmtTimeout := cfg.StatementTimeout
	if cmd.Flags().Changed("statement-timeout") {
		stmtTimeout, _ = cmd.Flags().GetDuration("statement-timeout")
	}

	sorted, err := loadAndSortMigrations(cfg.MigrationsDir, cmd.OutOrStdout())
	if err != nil || sorted == nil {
		return err
	}

	if !force && !dryRun {
		if blocked, analyzeErr := checkCriticalFindings(cmd, sorted, cfg); analyzeErr != nil {
			return analyzeErr
		} else if blocked {
			return errCriticalFindings
		}
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

	return executeMigrations(ctx, cmd.OutOrStdout(), pool, cfg.MigrationsDir, applyOpts{
		lockTimeout: lockTimeout,
		stmtTimeout: stmtTimeout,
		dryRun:      dryRun,
		verbose:     verbose,
	})
}

type applyOpts struct {
	lockTimeout time.Duration
	stmtTimeout time.Duration
	dryRun      bool
	verbose     bool
}

func loadAndSortMigrations(dir string, out io.Writer) ([]migration.Migration, error) {
	migrations, err := migration.LoadFromDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	if len(migrations) == 0 {
		fmt.Fprintln(out, "No migration files found.")
		return nil, nil //nolint:nilnil // nil,nil signals "no migrations, no error"
	}

	return migration.Sort(migrations), nil
}

func connectDB(ctx context.Context, cfg *config.Config, out io.Writer) (*pgxpool.Pool, error) {
	fmt.Fprintf(out, "Connecting to %s\n", config.RedactURL(cfg.DatabaseURL))

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return pool, nil
}

func executeMigrations(
	ctx context.Context,
	out io.Writer,
	pool *pgxpool.Pool,
	migrationsDir string,
	opts applyOpts,
) error {
	skipped := 0

	progress := executor.Progress{
		MigrationStarted: func(name string, statements int) {
			fmt.Fprintf(out, "  Applying %s (%d statement(s)) ... ", name, statements)
		},
		MigrationApplied: func(_ string, duration time.Duration) {
			fmt.Fprintf(out, "done (%s)\n", duration.Truncate(time.Millisecond))
		},
		MigrationSkipped: func(string) {
			skipped++
		},
		MigrationFailed: func(_ string, _ int, err error) {
			fmt.Fprintf(out, "FAILED\n")
			fmt.Fprintf(out, "    %v\n", err)
		},
	}

	if opts.verbose {
		progress.StatementApplied = func(_ string, applied, total int) {
			fmt.Fprintf(out, "[%d/%d] ", applied, total)
		}
	}

	eng := engine.New(pool, dialect.NewPostgres(), migrationsDir,
		engine.WithExecutorOptions(
			executor.WithLockTimeout(opts.lockTimeout),
			executor.WithStatementTimeout(opts.stmtTimeout),
			executor.WithDryRun(opts.dryRun),
			executor.WithProgress(progress),
		),
	)

	if opts.dryRun {
		fmt.Fprintln(out, "\n--- DRY RUN (no changes will be made) ---")
	}

	result, err := eng.Apply(ctx)
	if err != nil {
		return err
	}

	if opts.dryRun {
		fmt.Fprintf(out, "\nDry run complete: %d migration(s) checked, nothing executed.\n", skipped)
	} else {
		fmt.Fprintf(out, "\nApply complete: %d applied, %d skipped.\n",
			len(result.AppliedMigrationNames), skipped)
	}

	return nil
}

// checkCriticalFindings runs the analyzer over the given migrations and
// reports whether critical findings should block execution.
func checkCriticalFindings(cmd *cobra.Command, sorted []migration.Migration, cfg *config.Config) (bool, error) {
	a := analyzer.New(
		analyzer.WithRegistry(rules.NewDefaultRegistry()),
		analyzer.WithPGVersion(cfg.TargetPGVersion),
	)

	results, err := a.AnalyzeAll(sorted)
	if err != nil {
		return false, fmt.Errorf("analyzing migrations: %w", err)
	}

	hasCritical := printAnalysisText(cmd.OutOrStdout(), results)

	return hasCritical, nil
}
