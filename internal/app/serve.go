package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"toolbelt/internal/config"
	"toolbelt/internal/mcpserver"
	"toolbelt/pkg/logging"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions overrides the server section of the configuration.
type ServeOptions struct {
	// In and Out carry the stdio transport; nil selects stdin and stdout.
	In  io.Reader
	Out io.Writer

	Transport   string
	Addr        string
	MetricsAddr string
}

// Serve publishes every tool over MCP until ctx is cancelled, the process
// receives SIGINT or SIGTERM, or the stdio peer closes the stream. When a
// metrics address is configured, Prometheus metrics are served on
// /metrics alongside.
func (a *Application) Serve(ctx context.Context, opts ServeOptions) error {
	cfg := a.Config()
	opts = resolveServeOptions(cfg, opts)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.services.Start(ctx); err != nil {
		return err
	}
	defer a.services.Stop()

	srv := mcpserver.New(a.services.Client, mcpserver.Config{
		Name:    cfg.Client.Name,
		Version: a.config.Version,
		Agent:   cfg.Server.Agent,
	})
	srv.Sync()
	a.services.OnReload(func() { srv.Sync() })

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if opts.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.services.Metrics.Handler())
		metricsServer := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logging.Info("Serve", "Serving metrics on %s/metrics", opts.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer cancel()
		switch opts.Transport {
		case config.TransportStreamableHTTP:
			return srv.ServeHTTP(gctx, opts.Addr)
		default:
			return srv.ServeStdio(gctx, opts.In, opts.Out)
		}
	})

	notifyReady()
	return g.Wait()
}

func resolveServeOptions(cfg config.ToolbeltConfig, opts ServeOptions) ServeOptions {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Transport == "" {
		opts.Transport = cfg.Server.Transport
	}
	if opts.Transport == "" {
		opts.Transport = config.TransportStdio
	}
	if opts.Addr == "" {
		opts.Addr = cfg.Server.Addr
	}
	if opts.MetricsAddr == "" && cfg.Metrics.Enabled {
		opts.MetricsAddr = cfg.Metrics.Addr
	}
	return opts
}

// notifyReady tells systemd that start-up has finished. Outside of a
// systemd unit this is a no-op.
func notifyReady() {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	switch {
	case err != nil:
		logging.Warn("Serve", "Failed to notify systemd: %v", err)
	case sent:
		logging.Debug("Serve", "Notified systemd of readiness")
	}
}
