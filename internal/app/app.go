// Package app provides application lifecycle management for the asset sync server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/stacklok/toolhive-assetsync/internal/config"
)

// AssetSyncApp encapsulates all components needed to run the asset sync server
// It provides lifecycle management and graceful shutdown capabilities
type AssetSyncApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
	stopOnce   sync.Once
	stopErr    error
}

// Start starts the application components (HTTP server and background sync)
// This method blocks until the HTTP server stops or encounters an error
func (app *AssetSyncApp) Start() error {
	if app.components.SyncCoordinator != nil {
		go func() {
			if err := app.components.SyncCoordinator.Start(app.ctx); err != nil {
				slog.Error("Sync coordinator failed", "error", err)
			}
		}()
	}

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout.
// It stops the sync coordinator, shuts down the HTTP server and closes the engine.
// Calling Stop more than once returns the result of the first call.
func (app *AssetSyncApp) Stop(timeout time.Duration) error {
	app.stopOnce.Do(func() {
		app.stopErr = app.stop(timeout)
	})
	return app.stopErr
}

func (app *AssetSyncApp) stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	// Stop sync coordinator first so no sync is cut off by the engine closing
	if app.components.SyncCoordinator != nil {
		if err := app.components.SyncCoordinator.Stop(); err != nil {
			slog.Error("Failed to stop sync coordinator", "error", err)
		}
	}

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}

	if app.components.Engine != nil {
		if err := app.components.Engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close engine: %w", err))
		}
	}

	if len(errs) == 0 {
		slog.Info("Server shutdown complete")
	}
	return errors.Join(errs...)
}

// GetConfig returns the application configuration
func (app *AssetSyncApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *AssetSyncApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// GetComponents returns the wired application components
func (app *AssetSyncApp) GetComponents() *AppComponents {
	return app.components
}
