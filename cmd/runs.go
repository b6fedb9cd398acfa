package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/propwise/internal/db"
	"github.com/ziadkadry99/propwise/internal/runs"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List past ingestion runs",
	Long: `Lists recent ingestion runs from the local ledger, or shows one run with the
URLs that failed to load. With --prune, deletes runs older than the given age
instead; the latest run is always kept.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	runsCmd.Flags().Bool("json", false, "output as JSON")
	runsCmd.Flags().Duration("prune", 0, "delete runs older than this age (e.g. 720h)")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	pruneAge, _ := cmd.Flags().GetDuration("prune")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()
	store := runs.NewStore(database)
	ctx := context.Background()

	if cmd.Flags().Changed("prune") {
		n, err := pruneRuns(ctx, store, pruneAge, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d run(s) older than %s.\n", n, pruneAge)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if len(args) == 1 {
		run, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return enc.Encode(run)
		}
		printRun(*run)
		for _, f := range run.Failures {
			fmt.Printf("    %s %s: %s\n", boldYellow("!"), f.URL, f.Error)
		}
		return nil
	}

	list, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		if list == nil {
			list = []runs.Run{}
		}
		return enc.Encode(list)
	}
	if len(list) == 0 {
		fmt.Println("No ingestion runs yet. Run `propwise ingest URL...` first.")
		return nil
	}
	for _, r := range list {
		printRun(r)
	}
	return nil
}

// pruneRuns deletes runs that started more than maxAge before now.
func pruneRuns(ctx context.Context, store *runs.Store, maxAge time.Duration, now time.Time) (int64, error) {
	if maxAge < 0 {
		return 0, fmt.Errorf("prune age must not be negative, got %s", maxAge)
	}
	return store.DeleteBefore(ctx, now.Add(-maxAge))
}

func printRun(r runs.Run) {
	status := string(r.Status)
	switch r.Status {
	case runs.StatusDone:
		status = boldGreen(status)
	case runs.StatusFailed:
		status = boldYellow(status)
	}

	took := "-"
	if r.FinishedAt != nil {
		took = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
	}
	fmt.Printf("%s  %s  %s  docs=%d chunks=%d  took=%s\n",
		r.StartedAt.Local().Format(time.DateTime), r.ID[:8], status, r.Documents, r.Chunks, took)
	fmt.Printf("    %s\n", strings.Join(r.URLs, ", "))
	if r.Error != "" {
		fmt.Printf("    error: %s\n", r.Error)
	}
}
