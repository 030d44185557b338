package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/derickschaefer/departures/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search controller over a JSON HTTP API",
	Long: `Run an HTTP server that exposes one search controller.

Routes:
  GET    /health
  GET    /api/v1/state
  PUT    /api/v1/origin                {"text": "JFK"}
  PUT    /api/v1/destination           {"text": "LAX"}
  GET    /api/v1/suggestions/:field
  POST   /api/v1/suggestions/:field    {"value": "JFK"}
  DELETE /api/v1/suggestions/:field
  POST   /api/v1/search                {"origin": "JFK", "destination": "LAX", "wait": true}
  POST   /api/v1/selection             {"number": "AA 100"}
  DELETE /api/v1/selection
  POST   /api/v1/logout

The server stops cleanly on SIGINT or SIGTERM.`,
	Example: `  departures serve
  departures serve --addr 127.0.0.1:9000 --debug`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		addr := deps.Config.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctrl := deps.NewController(func() {
			slog.Info("signed out via API")
		})
		ctrl.Start(ctx)

		e := server.New(ctx, ctrl, slog.Default())
		errCh := make(chan error, 1)
		go func() {
			errCh <- e.Start(addr)
		}()
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)
		}

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server: %w", err)
			}
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		ctrl.Wait()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: listen_addr from config, :8080)")
}
