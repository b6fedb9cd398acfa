package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/propwise/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing URL ingestion, question answering and chunk search as tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.pipeline.Open(context.Background()); err != nil {
			// The store may not exist yet; ingest_urls will create it.
			fmt.Fprintf(os.Stderr, "Warning: could not open vector store: %v\n", err)
		}

		mcpserver.Version = Version
		fmt.Fprintf(os.Stderr, "propwise MCP server started on stdio (state=%s)\n", a.pipeline.State())

		return mcpserver.NewServer(a.pipeline).Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
