package commands

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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/bookforge/internal/config"
	"git.home.luguber.info/inful/bookforge/internal/daemon"
	apperrors "git.home.luguber.info/inful/bookforge/internal/errors"
	"git.home.luguber.info/inful/bookforge/internal/metrics"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	MetricsAddr string `help:"Listen address for the Prometheus endpoint (daemon.metrics must be enabled)" default:":9090"`
}

// manualTrigger is the daemon surface for operator-initiated runs.
type manualTrigger interface {
	TriggerRelease(ctx context.Context)
	TriggerCheck(ctx context.Context)
}

// watchTriggerSignals dispatches manual runs into a running daemon: SIGUSR1
// starts a release build, SIGUSR2 a check build. Dispatch happens on its own
// goroutine so a run in progress never blocks signal delivery; the daemon
// serializes the runs themselves.
func watchTriggerSignals(ctx context.Context, d manualTrigger) (stop func()) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGUSR1, syscall.SIGUSR2)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				slog.Info("Manual trigger received", "signal", sig.String())
				switch sig {
				case syscall.SIGUSR1:
					go d.TriggerRelease(ctx)
				case syscall.SIGUSR2:
					go d.TriggerCheck(ctx)
				}
			}
		}
	}()
	return func() { signal.Stop(sigCh) }
}

func (cmd *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if cfg.Daemon == nil {
		return apperrors.New(apperrors.CategoryConfig, apperrors.SeverityFatal,
			"daemon section missing from configuration")
	}

	runner, cleanup, err := assembleRunner(cfg, true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var metricsServer *http.Server
	if cfg.Daemon.Metrics {
		registry := prometheus.NewRegistry()
		runner.WithRecorder(metrics.NewPrometheusRecorder(registry))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{
			Addr:              cmd.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("Metrics endpoint listening", "addr", cmd.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	d, err := daemon.NewDaemon(cfg, runner)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	stopTriggers := watchTriggerSignals(ctx, d)
	defer stopTriggers()

	slog.Info("Daemon started, waiting for shutdown signal (SIGUSR1 releases, SIGUSR2 checks)...")
	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping daemon...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(stopCtx); err != nil {
			slog.Warn("Failed to stop metrics server", "error", err)
		}
	}
	if err := d.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	slog.Info("Daemon stopped successfully")
	return nil
}
