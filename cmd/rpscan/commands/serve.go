package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leiwong/rpscan/internal/api"
	"github.com/leiwong/rpscan/internal/api/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve screening results over HTTP",
	Long: `Starts the HTTP API.

Endpoints:
  GET /health
  GET /api/screen?profile=first-pass|strict
  GET /api/rps/{code}

Example:
  rpscan serve
  PORT=9000 rpscan serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	handler := handlers.NewScreenHandler(newUniverseBuilder(cfg, log), newEngine(cfg, log), log)
	router := api.NewRouter(handler, log)
	server := api.New(cfg, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
