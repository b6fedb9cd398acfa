package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/propwise/internal/server"
)

var (
	serverPort     int
	serverAllowAll bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API server",
	Long: `Starts the propwise HTTP server. It streams ingestion progress over
NDJSON and WebSocket, answers questions, searches chunks and lists past
ingestion runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.pipeline.Open(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not open vector store: %v\n", err)
		}

		srv := server.New(server.Config{
			Port:         serverPort,
			AllowAll:     serverAllowAll,
			QueryTimeout: time.Duration(a.cfg.Timeouts.EmbedSecs+a.cfg.Timeouts.GenerateSecs) * time.Second,
		}, a.pipeline, a.ledger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "propwise server %s starting on port %d\n", Version, serverPort)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", a.db.Path())
		fmt.Fprintf(os.Stderr, "  Vector store: %s (%s)\n", a.cfg.VectorStore.Type, a.pipeline.State())

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on")
	serverCmd.Flags().BoolVar(&serverAllowAll, "cors-allow-all", true, "allow requests from any origin")
	rootCmd.AddCommand(serverCmd)
}
