package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/internal/cli"
	"github.com/aretw0/ussdflow/internal/presentation/tui"
	httpAdapter "github.com/aretw0/ussdflow/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the automation and its HTTP API",
	Long: `Starts the automation against the configured host and exposes the control
API over HTTP. The OpenAPI document is served at /openapi.yaml and Prometheus
metrics at /metrics (or on metrics.addr when set).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			app.Config.HTTP.Addr = addr
		}

		opts := []httpAdapter.Option{
			httpAdapter.WithTemplates(app.Templates),
			httpAdapter.WithLedger(app.Ledger),
			httpAdapter.WithLogger(app.Logger),
		}
		if app.Config.Metrics.Addr == "" {
			opts = append(opts, httpAdapter.WithMetrics(app.Metrics.Handler()))
		}
		handler, err := httpAdapter.NewHandler(app.Controller, opts...)
		if err != nil {
			return err
		}

		servers := []*http.Server{{Addr: app.Config.HTTP.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}}
		if app.Config.Metrics.Addr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", app.Metrics.Handler())
			servers = append(servers, &http.Server{Addr: app.Config.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second})
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		tui.PrintBanner(os.Stderr, ussdflow.Version)
		errc := make(chan error, len(servers)+1)
		go func() { errc <- app.Run(ctx) }()
		for _, srv := range servers {
			go func() {
				app.Logger.Info("Listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
			}()
		}

		var runErr error
		select {
		case runErr = <-errc:
		case <-ctx.Done():
			app.Logger.Info("Shutting down", "signal", ctx.Signal())
		}
		ctx.Cancel()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Logger.Warn("Graceful shutdown did not complete", "addr", srv.Addr, "err", err)
				_ = srv.Close()
			}
		}
		if runErr != nil {
			return fmt.Errorf("server stopped: %w", runErr)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Override http.addr")
}
