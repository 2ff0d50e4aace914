package auth

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/stacklok/toolhive-federation/internal/config"
)

// NewAuthMiddleware creates the caller middleware described by cfg, wrapped
// so that public paths bypass it. A nil config means anonymous mode with the
// default public paths.
func NewAuthMiddleware(cfg *config.AuthConfig) (func(http.Handler) http.Handler, error) {
	publicPaths := DefaultPublicPaths
	realm := ""
	if cfg != nil {
		realm = cfg.Realm
		if len(cfg.PublicPaths) > 0 {
			publicPaths = cfg.PublicPaths
		}
	}

	var required bool
	switch mode := cfg.GetMode(); mode {
	case config.AuthModeAnonymous:
		slog.Info("auth: anonymous mode, caller tokens are optional")
	case config.AuthModeBearer:
		slog.Info("auth: bearer mode, caller tokens are required")
		required = true
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", mode)
	}

	m := newCallerMiddleware(required, realm)
	return WrapWithPublicPaths(m.Middleware, publicPaths), nil
}
