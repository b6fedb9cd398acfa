package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/propwise/internal/rag"
)

var (
	boldGreen  = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	boldYellow = color.New(color.FgYellow, color.Bold).SprintFunc()
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the ingested pages",
	Long:  `Retrieves the chunks closest to the question, asks the configured model to answer from them and lists the source URLs.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().Bool("json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	question := strings.Join(args, " ")

	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.pipeline.Open(ctx); err != nil {
		return err
	}

	ans, err := a.pipeline.Answer(ctx, question)
	if errors.Is(err, rag.ErrNotInitialized) {
		return errors.New(rag.NotInitializedMessage)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}

	fmt.Println(boldGreen("Answer:"))
	fmt.Println(strings.TrimSpace(ans.Text))
	if len(ans.Sources) > 0 {
		fmt.Println()
		fmt.Println(boldCyan("Sources:"))
		for _, src := range ans.Sources {
			fmt.Printf("  %s\n", src)
		}
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "\n%s: %d input / %d output tokens, ~$%.5f\n",
			ans.Usage.Model, ans.Usage.InputTokens, ans.Usage.OutputTokens, ans.Usage.CostUSD)
	}
	return nil
}
