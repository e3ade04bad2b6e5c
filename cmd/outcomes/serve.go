package main

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"outcomes/internal/bootstrap"
	"outcomes/internal/devserver"
	"outcomes/internal/hostapi"
	"outcomes/internal/platform/config"
	"outcomes/internal/platform/logging"
)

const defaultControlAddr = "127.0.0.1:8089"

func newRunCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run as a long-lived host: control API, metrics, the sync job poller and focus checkpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") && cfg.MetricsAddr != "" {
				addr = cfg.MetricsAddr
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			app, err := bootstrap.New(cfg, bootstrap.Options{Logger: logger, Registerer: reg})
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, hostapi.New(app.SessionCLI, app.Outcomes, app.Jobs, reg, logger).Router(), logger,
				func(ctx context.Context) error { return app.Jobs.Poll(ctx, cfg.Sync.PollInterval) },
				func(ctx context.Context) error { return app.Host.Checkpoint(ctx, cfg.Sync.CheckpointInterval) },
			)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultControlAddr, "listen address for the control API and /metrics")
	return cmd
}

func newBackendCmd() *cobra.Command {
	var addr, mode string
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Run a local measurement backend that records what it receives",
		RunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New("info", "text", os.Stderr)
			if err != nil {
				return err
			}
			srv := devserver.New(logger)
			m := devserver.Mode(mode)
			if err := m.Validate(); err != nil {
				return err
			}
			srv.SetMode(m)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, srv.Router(), logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.DefaultBackendAddr, "listen address")
	cmd.Flags().StringVar(&mode, "mode", string(devserver.ModeAccept), "response mode: accept, reject or unavailable")
	return cmd
}

// serve runs handler on addr, plus any background loops, until ctx is
// cancelled or one of them fails.
func serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger, loops ...func(context.Context) error) error {
	server := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	for _, loop := range loops {
		loop := loop
		g.Go(func() error {
			if err := loop(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	err := g.Wait()
	logger.Info("stopped")
	return err
}
