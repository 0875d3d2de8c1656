package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	// Drivers for the non-postgres providers; sql.Open in pushStatements
	// looks them up by name.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/aqasim81/database-schema-engine/internal/config"
	"github.com/aqasim81/database-schema-engine/internal/database"
	"github.com/aqasim81/database-schema-engine/internal/dialect"
	"github.com/aqasim81/database-schema-engine/internal/migration"
)

// errPushBlocked is returned when push is blocked by critical findings.
var errPushBlocked = errors.New("push aborted: critical findings detected (use --force to override)")

var pushCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "push <script.sql>",
	Short: "Run a SQL script directly, without ledger records",
	Long: `Execute a SQL script statement by statement against the database,
bypassing the migration history and the ledger. Postgres scripts are
linted first and critical findings block unless --force is given. The
provider comes from the migrations lockfile, then --provider, then the
configured default.`,
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	pushCmd.Flags().Bool("force", false, "run even when critical findings exist")
	pushCmd.Flags().String("provider", "", "database provider (postgres, mysql, sqlite)")
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	script := strings.TrimSpace(string(data))
	if script == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Script is empty; nothing to run.")

		return nil
	}

	provider, err := resolveProvider(cmd, cfg.MigrationsDir, cfg.Provider)
	if err != nil {
		return err
	}

	d, err := dialect.ByName(provider)
	if err != nil {
		return err
	}

	// ByName accepts aliases like "postgresql"; use the canonical name from
	// here on.
	provider = d.Name()

	force, _ := cmd.Flags().GetBool("force")

	// The lint rules parse postgres SQL; other providers skip the gate.
	if provider == "postgres" && !force {
		m := migration.Migration{Name: filepath.Base(args[0]), Script: script}

		blocked, analyzeErr := checkCriticalFindings(cmd, []migration.Migration{m}, cfg)
		if analyzeErr != nil {
			return analyzeErr
		}

		if blocked {
			return errPushBlocked
		}
	}

	statements, err := d.SplitStatements(script)
	if err != nil {
		return fmt.Errorf("splitting script: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	executed, err := pushStatements(ctx, cmd, provider, statements)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Push complete: %d statement(s) executed.\n", executed)

	return nil
}

// resolveProvider picks the provider from the lockfile, letting --provider
// name one for directories that are not pinned yet. A pinned lockfile and a
// conflicting flag is an error, not a silent override. The configured
// default only matters when neither source names a provider.
func resolveProvider(cmd *cobra.Command, migrationsDir, fallback string) (string, error) {
	lf, err := migration.ReadLockfile(migrationsDir)
	if err != nil {
		return "", err
	}

	flag, _ := cmd.Flags().GetString("provider")

	if lf.Provider != "" {
		if flag != "" && !strings.EqualFold(flag, lf.Provider) {
			return "", fmt.Errorf("%w: lockfile pins %q, flag says %q",
				migration.ErrProviderMismatch, lf.Provider, flag)
		}

		return lf.Provider, nil
	}

	if flag != "" {
		return flag, nil
	}

	return fallback, nil
}

// pushStatements executes statements one at a time. Postgres runs on a pgx
// pool under the engine's advisory lock; mysql and sqlite run on a
// database/sql handle registered by the driver imports above.
func pushStatements(ctx context.Context, cmd *cobra.Command, provider string, statements []string) (int, error) {
	cfg := AppConfig
	out := cmd.OutOrStdout()

	if provider == "postgres" {
		pool, err := connectDB(ctx, cfg, out)
		if err != nil {
			return 0, err
		}
		defer pool.Close()

		lock, err := database.TryAcquireLock(ctx, pool)
		if err != nil {
			return 0, err
		}
		defer lock.Release(ctx) //nolint:errcheck // closing the pool releases it regardless

		for i, stmt := range statements {
			if _, err := pool.Exec(ctx, stmt); err != nil {
				return i, fmt.Errorf("executing statement %d: %w", i, err)
			}
		}

		return len(statements), nil
	}

	driver := "mysql"
	if provider == "sqlite" {
		driver = "sqlite3"
	}

	fmt.Fprintf(out, "Connecting to %s\n", config.RedactURL(cfg.DatabaseURL))

	db, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		return 0, fmt.Errorf("opening %s database: %w", provider, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("connecting to database: %w", err)
	}

	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return i, fmt.Errorf("executing statement %d: %w", i, err)
		}
	}

	return len(statements), nil
}
