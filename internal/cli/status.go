package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/database-schema-engine/internal/migration"
	"github.com/aqasim81/database-schema-engine/internal/tracker"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show applied, failed, and pending migrations",
	Long: `Read the ledger and report every recorded migration run together
with the number of local migrations that have not been applied yet.`,
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	statusCmd.Flags().String("format", "", "output format (text, json)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	// A missing migrations directory is an empty local history; status
	// still shows what the ledger holds.
	local, err := migration.LoadFromDir(cfg.MigrationsDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading migrations: %w", err)
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

	ledger := tracker.New(pool)

	has, err := ledger.HasTable(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	var records []tracker.Record

	if has {
		records, err = ledger.ListRecords(ctx)
		if err != nil {
			return err
		}
	}

	format := cfg.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}

	switch format {
	case "", "text":
		printStatusText(out, has, records, local)
	case "json":
		return printStatusJSON(out, records, local)
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	return nil
}

func printStatusText(out io.Writer, hasTable bool, records []tracker.Record, local []migration.Migration) {
	if !hasTable {
		fmt.Fprintln(out, "No migrations have been applied (the ledger table does not exist yet).")

		if n := len(local); n > 0 {
			fmt.Fprintf(out, "%d migration(s) pending.\n", n)
		}

		return
	}

	applied := 0

	for _, r := range records {
		switch {
		case r.Succeeded():
			fmt.Fprintf(out, "  %-12s %s  %s\n", "applied", r.MigrationName, r.FinishedAt.Format(time.RFC3339))
			applied++
		case r.RolledBack():
			fmt.Fprintf(out, "  %-12s %s  %s\n", "rolled back", r.MigrationName, r.RolledBackAt.Format(time.RFC3339))
		case r.Failed():
			fmt.Fprintf(out, "  %-12s %s  after %d step(s)\n", "failed", r.MigrationName, r.AppliedStepsCount)
		}
	}

	fmt.Fprintf(out, "\n%d applied, %d pending.\n", applied, countPending(records, local))
}

// statusRecord is the JSON view of one ledger record.
type statusRecord struct {
	Name         string     `json:"name"`
	State        string     `json:"state"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	RolledBackAt *time.Time `json:"rolled_back_at,omitempty"`
	AppliedSteps int32      `json:"applied_steps"`
}

func printStatusJSON(out io.Writer, records []tracker.Record, local []migration.Migration) error {
	view := struct {
		Records []statusRecord `json:"records"`
		Pending int            `json:"pending"`
	}{
		Records: make([]statusRecord, 0, len(records)),
		Pending: countPending(records, local),
	}

	for _, r := range records {
		view.Records = append(view.Records, statusRecord{
			Name:         r.MigrationName,
			State:        recordStateLabel(r),
			StartedAt:    r.StartedAt,
			FinishedAt:   r.FinishedAt,
			RolledBackAt: r.RolledBackAt,
			AppliedSteps: r.AppliedStepsCount,
		})
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}

	return nil
}

func recordStateLabel(r tracker.Record) string {
	switch {
	case r.Succeeded():
		return "applied"
	case r.RolledBack():
		return "rolled back"
	default:
		return "failed"
	}
}

// countPending counts local migrations without a succeeded ledger record.
func countPending(records []tracker.Record, local []migration.Migration) int {
	succeeded := make(map[string]bool, len(records))

	for _, r := range records {
		if r.Succeeded() {
			succeeded[r.MigrationName] = true
		}
	}

	pending := 0

	for _, m := range local {
		if !succeeded[m.Name] {
			pending++
		}
	}

	return pending
}
