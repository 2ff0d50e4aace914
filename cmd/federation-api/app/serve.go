package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	fedapp "github.com/stacklok/toolhive-federation/internal/app"
	"github.com/stacklok/toolhive-federation/internal/config"
)

const defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time

func newServeCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the federation API server",
		Long: `Start the federation API server.

The server requires a configuration file (--config) that specifies:
- the local and remote repositories
- the root authority used to fetch remote repository secrets
- the secret service endpoint and polling settings

The root token may also be supplied through FEDERATION_ROOT_TOKEN.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	cmd.Flags().String("address", ":8080", "Address to listen on")
	cmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	cmd.Flags().Duration("request-timeout", 60*time.Second, "Per-request timeout")

	for _, name := range []string{"address", "config", "request-timeout"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			slog.Error("Failed to bind flag", "flag", name, "error", err)
		}
	}

	return cmd
}

func loadConfig(v *viper.Viper) (*config.Config, error) {
	configPath := v.GetString("config")
	if configPath == "" {
		return nil, fmt.Errorf("--config (or %s_CONFIG) is required", config.EnvPrefix)
	}

	cfg, err := config.LoadConfig(
		config.WithConfigPath(configPath),
		config.WithRootToken(v.GetString("root-token")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("Loaded configuration",
		"path", configPath,
		"federation", cfg.GetFederationName(),
		"repositories", len(cfg.Repositories))
	return cfg, nil
}

func runServe(ctx context.Context, v *viper.Viper) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	app, err := fedapp.NewFederationApp(ctx,
		fedapp.WithConfig(cfg),
		fedapp.WithAddress(v.GetString("address")),
		fedapp.WithRequestTimeout(v.GetDuration("request-timeout")),
	)
	if err != nil {
		return fmt.Errorf("failed to create federation app: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	select {
	case err := <-errCh:
		if stopErr := app.Stop(defaultGracefulTimeout); stopErr != nil {
			slog.Error("Failed to stop federation app", "error", stopErr)
		}
		return err
	case <-sigCtx.Done():
		slog.Info("Received shutdown signal")
	}

	return app.Stop(defaultGracefulTimeout)
}
