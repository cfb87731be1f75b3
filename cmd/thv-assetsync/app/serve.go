package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	assetapp "github.com/stacklok/toolhive-assetsync/internal/app"
	"github.com/stacklok/toolhive-assetsync/internal/config"
	"github.com/stacklok/toolhive-assetsync/internal/telemetry"
)

const (
	defaultGracefulTimeout   = 30 * time.Second // Kubernetes-friendly shutdown time
	telemetryShutdownTimeout = 5 * time.Second
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the asset sync API server",
		Long: `Start the asset sync API server. Resources listed under watch.resources in the
configuration file are kept current in the background; every downloaded resource is
served read-only over HTTP.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().String("address", "", "Address to listen on (default \":8080\")")
	if err := opts.v.BindPFlag(config.KeyAddress, cmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
	}
	return cmd
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	watched := 0
	if cfg.Watch != nil {
		watched = len(cfg.Watch.Resources)
	}
	slog.Info("Loaded configuration",
		"remote", cfg.Remote,
		"data_dir", cfg.DataDir,
		"watched", watched)

	tel, err := telemetry.New(ctx,
		telemetry.WithTelemetryConfig(cfg.Telemetry),
		telemetry.WithSyncTarget(cfg.Remote, cfg.DataDir))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()

	appOpts := []assetapp.AssetSyncAppOptions{
		assetapp.WithConfig(cfg),
		assetapp.WithAddress(cfg.GetAddress()),
		assetapp.WithMeterProvider(tel.MeterProvider()),
		assetapp.WithTracerProvider(tel.TracerProvider()),
	}
	if h := tel.MetricsHandler(); h != nil {
		appOpts = append(appOpts, assetapp.WithMetricsHandler(h))
	}

	server, err := assetapp.NewAssetSyncApp(ctx, appOpts...)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		// The server stopped on its own; release what it holds
		stopErr := server.Stop(defaultGracefulTimeout)
		return errors.Join(err, stopErr)
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	if err := server.Stop(defaultGracefulTimeout); err != nil {
		return err
	}
	return <-errCh
}
