// Package api provides the REST API server of the federation.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/toolhive-federation/internal/api/common"
	v1 "github.com/stacklok/toolhive-federation/internal/api/v1"
	"github.com/stacklok/toolhive-federation/internal/service"
	"github.com/stacklok/toolhive-federation/internal/versions"
)

// ServerOption configures the federation API server
type ServerOption func(*serverConfig)

type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	metricsHandler http.Handler
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMetricsHandler serves h on /metrics. A nil handler is ignored.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// NewServer creates and configures the HTTP router with the given service and options
func NewServer(svc service.Service, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)
	if cfg.metricsHandler != nil {
		r.Handle("/metrics", cfg.metricsHandler)
	}

	r.Mount("/v1", v1.Router(svc))

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// healthHandler handles GET /health
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}

// readinessHandler handles GET /readiness
func readinessHandler(svc service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			common.WriteErrorResponse(w, "Service not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, ReadinessResponse{Status: "ready"}, http.StatusOK)
	}
}

// versionHandler handles GET /version
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	info := versions.GetVersionInfo()
	common.WriteJSONResponse(w, VersionResponse{
		Version:   info.Version,
		Commit:    info.Commit,
		BuildDate: info.BuildDate,
		GoVersion: info.GoVersion,
		Platform:  info.Platform,
	}, http.StatusOK)
}
