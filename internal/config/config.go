// Package config provides configuration loading and management for the federation server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-federation/internal/credential"
	"github.com/stacklok/toolhive-federation/internal/repository"
	"github.com/stacklok/toolhive-federation/internal/schema"
	"github.com/stacklok/toolhive-federation/internal/telemetry"
	"github.com/stacklok/toolhive-federation/internal/token"
)

// EnvPrefix is the prefix of environment variables read by the federation server
const EnvPrefix = "FEDERATION"

const (
	// AuthModeAnonymous accepts requests without a bearer token. A token, when
	// sent, is still used as the caller's credential.
	AuthModeAnonymous = "anonymous"

	// AuthModeBearer rejects non-public requests without a bearer token
	AuthModeBearer = "bearer"
)

const (
	// DefaultSecretServiceTimeout bounds calls to the secret service
	DefaultSecretServiceTimeout = 10 * time.Second

	// DefaultRemoteTimeout bounds calls to remote repositories
	DefaultRemoteTimeout = 30 * time.Second
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

type loaderConfig struct {
	path      string
	rootToken string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// WithRootToken overrides authority.rootToken. An empty token keeps the file's value.
func WithRootToken(token string) Option {
	return func(cfg *loaderConfig) error {
		cfg.rootToken = token
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// FederationName identifies this federation instance. Defaults to "default".
	FederationName string              `yaml:"federationName,omitempty"`
	Repositories   []repository.Record `yaml:"repositories"`

	// Schemas seeds the stores of local repositories
	Schemas []SchemaSeed `yaml:"schemas,omitempty"`

	Authority     credential.AuthorityConfig `yaml:"authority,omitempty"`
	Polling       *PollingConfig             `yaml:"polling,omitempty"`
	SecretService *SecretServiceConfig       `yaml:"secretService,omitempty"`
	Remote        *RemoteConfig              `yaml:"remote,omitempty"`
	Auth          *AuthConfig                `yaml:"auth,omitempty"`
	Telemetry     *telemetry.Config          `yaml:"telemetry,omitempty"`
}

// SchemaSeed is a schema preloaded into a local repository
type SchemaSeed struct {
	// Repository is the id of the local repository holding the schema
	Repository    string `yaml:"repository"`
	schema.Record `yaml:",inline"`
}

// PollingConfig controls how token descriptors are polled
type PollingConfig struct {
	// Interval between coordination store reads (e.g. "10s")
	Interval string `yaml:"interval,omitempty"`

	// MaxAttempts bounds the number of reads
	MaxAttempts int `yaml:"maxAttempts,omitempty"`

	// Unbounded polls until the token appears or the request is cancelled
	Unbounded bool `yaml:"unbounded,omitempty"`
}

// SecretServiceConfig locates the secret service
type SecretServiceConfig struct {
	// Endpoint is the base URL, e.g. "http://secret:8080"
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds each call (e.g. "10s")
	Timeout string `yaml:"timeout,omitempty"`
}

// RemoteConfig controls calls to remote repositories
type RemoteConfig struct {
	// Timeout bounds each call (e.g. "30s")
	Timeout string `yaml:"timeout,omitempty"`

	// ListConcurrency bounds the repositories queried at once by a federated list
	ListConcurrency int `yaml:"listConcurrency,omitempty"`
}

// AuthConfig controls how callers authenticate
type AuthConfig struct {
	// Mode is "anonymous" (default) or "bearer"
	Mode string `yaml:"mode,omitempty"`

	// Realm is reported in WWW-Authenticate challenges
	Realm string `yaml:"realm,omitempty"`

	// PublicPaths bypass authentication
	PublicPaths []string `yaml:"publicPaths,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if loaderCfg.rootToken != "" {
		config.Authority.RootToken = loaderCfg.rootToken
	}

	// An empty rootTokenInfo means none is configured
	if !config.Authority.HasRootTokenInfo() {
		config.Authority.RootTokenInfo = nil
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetFederationName returns the federation name, using "default" if not specified
func (c *Config) GetFederationName() string {
	if c.FederationName == "" {
		return "default"
	}
	return c.FederationName
}

// HasRemoteRepositories reports whether any repository is delegated to a peer
func (c *Config) HasRemoteRepositories() bool {
	for _, rec := range c.Repositories {
		if rec.IsRemote() {
			return true
		}
	}
	return false
}

// GetInterval returns the poll interval, or zero to keep the validator default
func (p *PollingConfig) GetInterval() time.Duration {
	if p == nil || p.Interval == "" {
		return 0
	}
	d, _ := time.ParseDuration(p.Interval)
	return d
}

// GetTimeout returns the secret service timeout
func (s *SecretServiceConfig) GetTimeout() time.Duration {
	if s == nil {
		return DefaultSecretServiceTimeout
	}
	return durationOr(s.Timeout, DefaultSecretServiceTimeout)
}

// GetTimeout returns the remote call timeout
func (r *RemoteConfig) GetTimeout() time.Duration {
	if r == nil {
		return DefaultRemoteTimeout
	}
	return durationOr(r.Timeout, DefaultRemoteTimeout)
}

// GetListConcurrency returns the federated list concurrency, or zero for the default
func (r *RemoteConfig) GetListConcurrency() int {
	if r == nil {
		return 0
	}
	return r.ListConcurrency
}

// GetMode returns the auth mode, defaulting to anonymous
func (a *AuthConfig) GetMode() string {
	if a == nil || a.Mode == "" {
		return AuthModeAnonymous
	}
	return a.Mode
}

func durationOr(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if len(c.Repositories) == 0 {
		return fmt.Errorf("at least one repository must be configured")
	}

	local := make(map[string]bool)
	seen := make(map[string]bool)
	for i, rec := range c.Repositories {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("repositories[%d]: %w", i, err)
		}
		if seen[rec.RepositoryID] {
			return fmt.Errorf("repositories[%d]: duplicate repository id '%s'", i, rec.RepositoryID)
		}
		seen[rec.RepositoryID] = true
		if !rec.IsRemote() {
			local[rec.RepositoryID] = true
		}
	}

	for i, seed := range c.Schemas {
		if !local[seed.Repository] {
			return fmt.Errorf("schemas[%d]: repository '%s' is not a configured local repository", i, seed.Repository)
		}
		if seed.Name == "" {
			return fmt.Errorf("schemas[%d]: name is required", i)
		}
	}

	if c.HasRemoteRepositories() && (c.SecretService == nil || c.SecretService.Endpoint == "") {
		return fmt.Errorf("secretService.endpoint is required when remote repositories are configured")
	}

	return errors.Join(
		validateAuthority(c.Authority),
		c.validateDurations(),
		validateAuth(c.Auth),
		c.Telemetry.Validate(),
	)
}

func validateAuthority(a credential.AuthorityConfig) error {
	if a.RootToken != "" || !a.HasRootTokenInfo() || a.RootTokenInfo.IsLiteral() {
		return nil
	}
	info := a.RootTokenInfo
	if info.Protocol != token.ProtocolConsul {
		return fmt.Errorf("authority.rootTokenInfo: unsupported protocol %q", info.Protocol)
	}
	if info.URI == "" {
		return fmt.Errorf("authority.rootTokenInfo: uri is required")
	}
	return nil
}

func (c *Config) validateDurations() error {
	var errs []error
	check := func(field, raw string) {
		if raw == "" {
			return
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be a valid duration (e.g., '10s', '1m'): %w", field, err))
			return
		}
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", field))
		}
	}

	if c.Polling != nil {
		check("polling.interval", c.Polling.Interval)
		if c.Polling.MaxAttempts < 0 {
			errs = append(errs, fmt.Errorf("polling.maxAttempts must not be negative"))
		}
	}
	if c.SecretService != nil {
		check("secretService.timeout", c.SecretService.Timeout)
	}
	if c.Remote != nil {
		check("remote.timeout", c.Remote.Timeout)
		if c.Remote.ListConcurrency < 0 {
			errs = append(errs, fmt.Errorf("remote.listConcurrency must not be negative"))
		}
	}
	return errors.Join(errs...)
}

func validateAuth(a *AuthConfig) error {
	switch a.GetMode() {
	case AuthModeAnonymous, AuthModeBearer:
		return nil
	default:
		return fmt.Errorf("auth.mode: unsupported mode %q", a.Mode)
	}
}
