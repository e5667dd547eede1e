package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/fieldbot/internal/cli"
	httpAdapter "github.com/aretw0/fieldbot/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the bot as a JSON API over HTTP. Prometheus metrics are exposed at /metrics.
With --watch a local dataset file is reloaded whenever it changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		addr := app.Config.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}
		logger := cli.NewLogger(app.Config.Log.Level)

		handler := httpAdapter.NewHandler(app.Bot,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetricsHandler(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})),
		)
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			if err := startWatcher(sigCtx, app); err != nil {
				return err
			}
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting fieldbot server", "addr", srv.Addr, "dataset", app.Source.Location())
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-sigCtx.Done():
			timeout := app.Config.Server.ShutdownTimeout
			logger.Info("shutting down", "signal", sigCtx.Signal(), "timeout", timeout)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			logger.Info("fieldbot server stopped gracefully")
			return nil
		}
	},
}

// startWatcher reloads the dataset on file changes until ctx is done.
func startWatcher(ctx context.Context, app *cli.App) error {
	path := app.WatchPath()
	if path == "" {
		return errors.New("--watch needs a local dataset.path")
	}
	w, err := cli.NewDatasetWatcher(path, func(ctx context.Context) error {
		_, err := app.Bot.ReloadDataset(ctx)
		return err
	}, cli.NewLogger(app.Config.Log.Level))
	if err != nil {
		return err
	}
	go w.Run(ctx)
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on (overrides server.addr)")
	serveCmd.Flags().Bool("watch", false, "Reload the dataset file when it changes")
}
