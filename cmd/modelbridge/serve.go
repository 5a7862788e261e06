package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"modelbridge/internal/httpapi"
)

func newServeCmd(o *options) *cobra.Command {
	var (
		addr            string
		completeTimeout int64
		shutdownTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session over HTTP",
		Example: "  modelbridge serve --addr :8080 --model qwen3-0.6b\n" +
			"  MODELBRIDGE_CATALOG_URL=https://example.com/models.json modelbridge serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := o.cfg
			if addr != "" {
				cfg.Addr = addr
			}
			a, err := newApp(cfg, o.log, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			if shutdownTimeout > 0 {
				a.releaseTimeout = shutdownTimeout
			}
			defer func() {
				if err := a.Close(); err != nil {
					o.log.Error().Err(err).Msg("shutdown cleanup")
				}
			}()

			baseCtx, cancelBase := context.WithCancel(context.Background())
			defer cancelBase()
			httpapi.SetLogger(o.log)
			httpapi.Configure(httpapi.Options{
				BaseContext:     baseCtx,
				MaxBodyBytes:    cfg.MaxBodyBytes,
				CompleteTimeout: time.Duration(completeTimeout) * time.Second,
				LogLevel:        httpLogLevel(cfg.LogLevel),
				CORS: httpapi.CORSOptions{
					Enabled: cfg.CORSEnabled,
					Origins: cfg.CORSAllowedOrigins,
					Methods: cfg.CORSAllowedMethods,
					Headers: cfg.CORSAllowedHeaders,
				},
			})

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           httpapi.NewMux(a.ctrl),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				o.log.Info().Str("addr", cfg.Addr).Str("data_dir", a.store.Root).Str("session", a.ctrl.ID()).Msg("modelbridge listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			// Graceful shutdown (Ctrl+C / SIGTERM)
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(stop)
			select {
			case err, ok := <-errCh:
				if ok {
					return err
				}
				return nil
			case <-stop:
			}
			o.log.Info().Msg("shutting down")
			a.ctrl.Stop()
			cancelBase()
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				o.log.Error().Err(err).Msg("graceful shutdown error")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8080 (defaults MODELBRIDGE_ADDR or :8080)")
	cmd.Flags().Int64Var(&completeTimeout, "complete-timeout", 0, "Per-request completion timeout in seconds (0 disables)")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "Time allowed for in-flight requests on shutdown")
	return cmd
}

// httpLogLevel maps the process log level onto the per-request levels of
// the HTTP layer.
func httpLogLevel(level string) string {
	switch level {
	case "debug", "trace":
		return "debug"
	case "warn", "error", "fatal", "panic":
		return "error"
	case "disabled", "off":
		return "off"
	}
	return "info"
}
