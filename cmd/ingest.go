package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/propwise/internal/progress"
	"github.com/ziadkadry99/propwise/internal/rag"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest URL [URL...]",
	Short: "Fetch pages and index them for questions",
	Long: `Fetches every URL, splits the page text into chunks, embeds them and
replaces the vector database contents with the result. URLs that cannot be
loaded are reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("json", false, "print progress events as JSON lines")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	var onLoad func(done, total int, url string)
	if verbose && !jsonOutput {
		onLoad = func(done, total int, url string) {
			fmt.Fprintf(os.Stderr, "  loaded %d/%d %s\n", done, total, url)
		}
	}

	a, err := openApp(onLoad)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var emit func(rag.Event)
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		emit = func(ev rag.Event) { enc.Encode(ev) }
	} else {
		emit = progress.Milestones(progress.NewReporter())
	}

	res, err := a.pipeline.Ingest(ctx, args, emit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return nil
	}

	fmt.Println(boldGreen("✓ ") + "All done! You can now ask questions related to the processed URLs.")
	fmt.Printf("  Documents: %d\n", res.Documents)
	fmt.Printf("  Chunks:    %d\n", res.Chunks)
	if res.RunID != "" {
		fmt.Printf("  Run:       %s\n", res.RunID)
	}
	if verbose && res.Fetcher != "" {
		fmt.Printf("  Fetcher:   %s\n", res.Fetcher)
	}
	if len(res.Failures) > 0 {
		fmt.Printf("\n%d URL(s) could not be loaded:\n", len(res.Failures))
		for _, f := range res.Failures {
			fmt.Printf("  %s %s: %v\n", boldYellow("!"), f.URL, f.Err)
		}
	}
	return nil
}
