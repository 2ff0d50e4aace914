package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/toolhive-federation/internal/api"
	"github.com/stacklok/toolhive-federation/internal/auth"
	"github.com/stacklok/toolhive-federation/internal/config"
	"github.com/stacklok/toolhive-federation/internal/coordination"
	"github.com/stacklok/toolhive-federation/internal/credential"
	"github.com/stacklok/toolhive-federation/internal/httpclient"
	"github.com/stacklok/toolhive-federation/internal/remote"
	"github.com/stacklok/toolhive-federation/internal/repository"
	"github.com/stacklok/toolhive-federation/internal/secret"
	"github.com/stacklok/toolhive-federation/internal/service"
	"github.com/stacklok/toolhive-federation/internal/telemetry"
	"github.com/stacklok/toolhive-federation/internal/token"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 60 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 75 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// FederationAppOptions is a function that configures the federation app builder
type FederationAppOptions func(*federationAppConfig) error

// federationAppConfig collects the builder inputs. Component overrides are
// primarily for testing; production code leaves them nil.
type federationAppConfig struct {
	config *config.Config

	// Optional component overrides
	secretClient        secret.Client
	coordinationClients coordination.ClientFactory
	connectors          remote.ConnectorFactory
	telemetry           *telemetry.Telemetry

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
}

func baseConfig(opts ...FederationAppOptions) (*federationAppConfig, error) {
	cfg := &federationAppConfig{
		address:        defaultHTTPAddress,
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

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return cfg, nil
}

// NewFederationApp builds every component described by the configuration
func NewFederationApp(
	ctx context.Context,
	opts ...FederationAppOptions,
) (*FederationApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	tel := cfg.telemetry
	if tel == nil {
		tel, err = telemetry.New(ctx, cfg.config.Telemetry)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}

	// Ensure telemetry is flushed when the build fails half way
	var cleanupNeeded = true
	defer func() {
		if cleanupNeeded && cfg.telemetry == nil {
			_ = tel.Shutdown(ctx)
		}
	}()

	federationSvc, err := buildServiceComponents(ctx, cfg, tel)
	if err != nil {
		return nil, fmt.Errorf("failed to build service components: %w", err)
	}

	httpServer, err := buildHTTPServer(ctx, cfg, federationSvc, tel)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	cleanupNeeded = false

	return &FederationApp{
		config: cfg.config,
		components: &AppComponents{
			FederationService: federationSvc,
			Telemetry:         tel,
		},
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) FederationAppOptions {
	return func(cfg *federationAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) FederationAppOptions {
	return func(cfg *federationAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) FederationAppOptions {
	return func(cfg *federationAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithRequestTimeout sets the per-request timeout of the default middlewares
func WithRequestTimeout(d time.Duration) FederationAppOptions {
	return func(cfg *federationAppConfig) error {
		if d <= 0 {
			return fmt.Errorf("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithSecretClient allows injecting a custom secret service client (for testing)
func WithSecretClient(c secret.Client) FederationAppOptions {
	return func(cfg *federationAppConfig) error {
		cfg.secretClient = c
		return nil
	}
}

// WithCoordinationClientFactory allows injecting a custom coordination client factory (for testing)
func WithCoordinationClientFactory(f coordination.ClientFactory) FederationAppOptions {
	return func(cfg *federationAppConfig) error {
		cfg.coordinationClients = f
		return nil
	}
}

// WithConnectorFactory allows injecting a custom remote connector factory (for testing)
func WithConnectorFactory(f remote.ConnectorFactory) FederationAppOptions {
	return func(cfg *federationAppConfig) error {
		cfg.connectors = f
		return nil
	}
}

// WithTelemetry sets already initialized telemetry. The caller keeps
// ownership and must shut it down.
func WithTelemetry(t *telemetry.Telemetry) FederationAppOptions {
	return func(cfg *federationAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// buildServiceComponents builds the repository managers and the federation service
func buildServiceComponents(
	_ context.Context,
	b *federationAppConfig,
	tel *telemetry.Telemetry,
) (service.Service, error) {
	slog.Info("Initializing service components", "federation", b.config.GetFederationName())

	metrics, err := telemetry.NewFederationMetrics(tel.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create federation metrics: %w", err)
	}

	repos, err := repository.NewStore(b.config.Repositories...)
	if err != nil {
		return nil, fmt.Errorf("failed to load repositories: %w", err)
	}

	schemas, err := seedSchemas(b.config.Schemas)
	if err != nil {
		return nil, err
	}

	deps := service.ManagerDeps{
		Schemas: schemas,
		Metrics: metrics,
	}

	if b.config.HasRemoteRepositories() {
		deps.Connections = remote.NewBuilder(buildCredentialResolver(b, metrics))

		deps.Connectors = b.connectors
		if deps.Connectors == nil {
			deps.Connectors = remote.NewHTTPConnectorFactory(httpclient.NewDefaultClient(b.config.Remote.GetTimeout()))
		}
	}

	svc, err := service.NewFederationService(repos, deps,
		service.WithTracerProvider(tel.TracerProvider()),
		service.WithFederationMetrics(metrics),
		service.WithListConcurrency(b.config.Remote.GetListConcurrency()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create federation service: %w", err)
	}

	slog.Info("Service components initialized successfully",
		"repositories", len(b.config.Repositories),
		"schemas", len(b.config.Schemas))
	return svc, nil
}

// buildCredentialResolver wires the secret service client and the token
// validator polling the coordination store.
func buildCredentialResolver(b *federationAppConfig, metrics *telemetry.FederationMetrics) *credential.Resolver {
	secrets := b.secretClient
	if secrets == nil {
		secrets = secret.NewHTTPClient(
			b.config.SecretService.Endpoint,
			httpclient.NewDefaultClient(b.config.SecretService.GetTimeout()),
		)
	}

	validatorOpts := []token.Option{token.WithMetrics(metrics)}
	if b.coordinationClients != nil {
		validatorOpts = append(validatorOpts, token.WithClientFactory(b.coordinationClients))
	}
	if polling := b.config.Polling; polling != nil {
		validatorOpts = append(validatorOpts,
			token.WithInterval(polling.GetInterval()),
			token.WithMaxAttempts(polling.MaxAttempts),
		)
		if polling.Unbounded {
			validatorOpts = append(validatorOpts, token.WithUnbounded())
		}
	}

	validator := token.NewValidator(validatorOpts...)
	if b.config.Authority.HasRootTokenInfo() && pollOutlastsRequest(validator, b.requestTimeout) {
		slog.Warn("Root token polling can outlast the request timeout; the request timeout bounds it",
			"max_wait", validator.MaxWait(),
			"request_timeout", b.requestTimeout)
	}

	return credential.NewResolver(b.config.Authority, secrets, validator)
}

// pollOutlastsRequest reports whether a bounded poll can still be waiting
// when the request timeout cancels it.
func pollOutlastsRequest(v *token.Validator, requestTimeout time.Duration) bool {
	return v.MaxWait() >= requestTimeout
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *federationAppConfig,
	svc service.Service,
	tel *telemetry.Telemetry,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Metrics and tracing go first to capture requests rejected by auth
	metricsMiddleware, err := telemetry.MetricsMiddleware(tel.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
	}
	b.middlewares = append([]func(http.Handler) http.Handler{
		telemetry.TracingMiddleware(tel.TracerProvider()),
		metricsMiddleware,
	}, b.middlewares...)

	authMw, err := auth.NewAuthMiddleware(b.config.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to build auth middleware: %w", err)
	}
	b.middlewares = append(b.middlewares, authMw)

	router := api.NewServer(svc,
		api.WithMiddlewares(b.middlewares...),
		api.WithMetricsHandler(tel.MetricsHandler()),
	)

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
