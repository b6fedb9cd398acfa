package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/propwise/internal/rag"
	"github.com/ziadkadry99/propwise/internal/vectordb"
)

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Show the indexed chunks closest to a query",
	Long:  `Searches the vector database without calling the answer model. Useful for checking what a question would retrieve.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 0, "maximum number of results (default top_k from config)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

type searchResultJSON struct {
	Rank       int     `json:"rank"`
	Similarity float64 `json:"similarity"`
	Source     string  `json:"source"`
	Title      string  `json:"title,omitempty"`
	Chunk      int     `json:"chunk"`
	Text       string  `json:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.pipeline.Open(ctx); err != nil {
		return err
	}

	results, err := a.pipeline.Search(ctx, strings.Join(args, " "), limit)
	if errors.Is(err, rag.ErrNotInitialized) {
		return errors.New(rag.NotInitializedMessage)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		return printSearchResultsJSON(results)
	}
	fmt.Print(vectordb.FormatResults(results))
	return nil
}

func printSearchResultsJSON(results []vectordb.SearchResult) error {
	out := make([]searchResultJSON, 0, len(results))
	for i, r := range results {
		out = append(out, searchResultJSON{
			Rank:       i + 1,
			Similarity: float64(r.Similarity),
			Source:     r.Record.Metadata.Source,
			Title:      r.Record.Metadata.Title,
			Chunk:      r.Record.Metadata.Index,
			Text:       r.Record.Text,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
