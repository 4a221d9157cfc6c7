package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/cardpress/internal/handlers"
	"github.com/lehigh-university-libraries/cardpress/internal/pipeline"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the card generation HTTP service",
		Long: `Starts the Cardpress HTTP service on the specified port.

Clients upload a records spreadsheet, trigger card generation for their
session, follow progress over a websocket and download the archive or the
composed journal. Every session works in its own directory under work_dir.`,
		Example: `  # Start server on default port 8888
  cardpress serve

  # Start server on custom port
  cardpress serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			engine := pipeline.NewEngine(cfg)
			defer engine.Close()
			if err := engine.Start(cmd.Context()); err != nil {
				return err
			}

			handler := handlers.New(cfg, engine)

			addr := ":" + cfg.Server.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Cardpress service available", "addr", addr, "url", "http://localhost"+addr, "work_dir", cfg.WorkDir)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringP("port", "p", "8888", "Port to listen on")
	a.bind(cmd, "server.port", "port")

	return cmd
}
