// Package app provides application lifecycle management for the federation server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/stacklok/toolhive-federation/internal/config"
	"github.com/stacklok/toolhive-federation/internal/service"
)

// FederationApp encapsulates all components needed to run the federation API server.
// It provides lifecycle management and graceful shutdown capabilities.
type FederationApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the HTTP server. It blocks until the server stops or fails.
func (app *FederationApp) Start() error {
	slog.Info("Server listening", "address", app.httpServer.Addr)
	app.httpServer.BaseContext = func(_ net.Listener) context.Context {
		return app.ctx
	}
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server, then flushes telemetry
func (app *FederationApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	serverErr := app.httpServer.Shutdown(shutdownCtx)

	// In-flight token polls observe the cancellation
	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	if app.components != nil && app.components.Telemetry != nil {
		if err := app.components.Telemetry.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}

	if serverErr != nil {
		return fmt.Errorf("server forced to shutdown: %w", serverErr)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *FederationApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *FederationApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// GetService returns the federation service
func (app *FederationApp) GetService() service.Service {
	return app.components.FederationService
}
