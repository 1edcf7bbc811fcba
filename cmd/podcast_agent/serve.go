package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/podcast-agent/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes the podcast pipeline.

Endpoints:
  POST /run          generate a podcast and return the result
  POST /run/stream   generate a podcast, streaming progress as Server-Sent Events
  GET  /runs         list recorded runs (requires --db-url or DATABASE_URL)
  GET  /runs/{id}    show one recorded run with its script
  GET  /health       liveness probe
  GET  /metrics      Prometheus metrics

The generation flags set the server-wide model, output and polling configuration
and the defaults for --parts and --search.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveFlags generationFlags
	servePort  int
)

func init() {
	addGenerationFlags(serveCmd, &serveFlags)
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(cmd.Flags(), &serveFlags)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(a.serverConfig(servePort), a, a.history())
	return srv.Start(ctx)
}
