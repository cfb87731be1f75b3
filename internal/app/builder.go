package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-assetsync/internal/api"
	"github.com/stacklok/toolhive-assetsync/internal/config"
	"github.com/stacklok/toolhive-assetsync/internal/coordinator"
	"github.com/stacklok/toolhive-assetsync/internal/engine"
	"github.com/stacklok/toolhive-assetsync/internal/git"
	"github.com/stacklok/toolhive-assetsync/internal/service"
	"github.com/stacklok/toolhive-assetsync/internal/status"
	"github.com/stacklok/toolhive-assetsync/internal/telemetry"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 60 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	// watchStatusDir is the data directory entry holding the watcher's status files
	watchStatusDir = ".watch"
)

// AssetSyncAppOptions is a function that configures the app builder
type AssetSyncAppOptions func(*assetSyncAppConfig) error

// assetSyncAppConfig collects what NewAssetSyncApp needs to build an AssetSyncApp.
// Component overrides exist for testing; production uses the defaults.
type assetSyncAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	transport       git.Transport
	syncCoordinator coordinator.Coordinator

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...AssetSyncAppOptions) (*assetSyncAppConfig, error) {
	cfg := &assetSyncAppConfig{
		address:        config.DefaultServerAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// NewAssetSyncApp builds the engine, the optional watcher, the service and the HTTP server
func NewAssetSyncApp(
	ctx context.Context,
	opts ...AssetSyncAppOptions,
) (*AssetSyncApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	eng, err := buildEngine(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}

	// Ensure cleanup happens on error
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			_ = eng.Close()
		}
	}()

	syncCoordinator := buildSyncComponents(cfg, eng)

	var statusSource service.StatusSource
	if syncCoordinator != nil {
		statusSource = syncCoordinator
	}
	assetService := service.New(eng, statusSource)

	httpServer, err := buildHTTPServer(cfg, assetService)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	cleanupNeeded = false

	return &AssetSyncApp{
		config: cfg.config,
		components: &AppComponents{
			Engine:          eng,
			SyncCoordinator: syncCoordinator,
			AssetService:    assetService,
		},
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) AssetSyncAppOptions {
	return func(cfg *assetSyncAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) AssetSyncAppOptions {
	return func(cfg *assetSyncAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		_, port, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("address is not valid: %w", err)
		}
		n, err := strconv.ParseUint(port, 10, 16)
		if err != nil || (n == 0 && port != "0") {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) AssetSyncAppOptions {
	return func(cfg *assetSyncAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithTransport allows injecting a custom git transport (for testing)
func WithTransport(t git.Transport) AssetSyncAppOptions {
	return func(cfg *assetSyncAppConfig) error {
		cfg.transport = t
		return nil
	}
}

// WithSyncCoordinator allows injecting a custom sync coordinator (for testing)
func WithSyncCoordinator(c coordinator.Coordinator) AssetSyncAppOptions {
	return func(cfg *assetSyncAppConfig) error {
		cfg.syncCoordinator = c
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for sync and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) AssetSyncAppOptions {
	return func(cfg *assetSyncAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for engine and HTTP spans
func WithTracerProvider(tp trace.TracerProvider) AssetSyncAppOptions {
	return func(cfg *assetSyncAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves h on /metrics
func WithMetricsHandler(h http.Handler) AssetSyncAppOptions {
	return func(cfg *assetSyncAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildEngine opens the sync engine on the configured data directory
func buildEngine(ctx context.Context, b *assetSyncAppConfig) (*engine.Engine, error) {
	slog.Info("Initializing sync engine")

	auth, err := b.config.GitAuth()
	if err != nil {
		return nil, err
	}

	engineOpts := []engine.Option{}
	if b.transport != nil {
		engineOpts = append(engineOpts, engine.WithTransport(b.transport))
	}
	if b.tracerProvider != nil {
		engineOpts = append(engineOpts, engine.WithTracerProvider(b.tracerProvider))
	}
	if b.meterProvider != nil {
		syncMetrics, err := telemetry.NewSyncMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create sync metrics: %w", err)
		}
		if syncMetrics != nil {
			engineOpts = append(engineOpts, engine.WithSyncMetrics(syncMetrics))
			slog.Info("Sync metrics enabled")
		}
	}

	return engine.Open(ctx, engine.Config{
		Remote:    b.config.Remote,
		DataDir:   b.config.DataDir,
		ExportDir: b.config.ExportDir,
		Auth:      auth,
	}, engineOpts...)
}

// buildSyncComponents builds the watcher for the configured resources.
// It returns nil when no resources are watched.
func buildSyncComponents(b *assetSyncAppConfig, eng *engine.Engine) coordinator.Coordinator {
	if b.syncCoordinator != nil {
		return b.syncCoordinator
	}
	if b.config.Watch == nil || len(b.config.Watch.Resources) == 0 {
		slog.Info("No watched resources configured, background sync disabled")
		return nil
	}

	slog.Info("Initializing sync components", "resources", len(b.config.Watch.Resources))
	statusPersistence := status.NewFileStatusPersistence(filepath.Join(b.config.DataDir, watchStatusDir))
	return coordinator.New(eng, b.config.Watch, coordinator.WithStatusPersistence(statusPersistence))
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(
	b *assetSyncAppConfig,
	svc service.AssetService,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	// Use default middlewares if not provided
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Telemetry middleware goes first so rejected and timed out requests are captured too
	var telemetryMiddlewares []func(http.Handler) http.Handler
	if b.tracerProvider != nil {
		telemetryMiddlewares = append(telemetryMiddlewares, telemetry.TracingMiddleware(b.tracerProvider))
	}
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		telemetryMiddlewares = append(telemetryMiddlewares, metricsMiddleware)
		slog.Info("HTTP metrics middleware enabled")
	}
	b.middlewares = append(telemetryMiddlewares, b.middlewares...)

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(b.middlewares...),
	}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}
	router := api.NewServer(svc, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
