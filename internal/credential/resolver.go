// Package credential determines which authority token and domain are used
// to fetch a remote repository's secret, and fetches it.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stacklok/toolhive-federation/internal/identity"
	"github.com/stacklok/toolhive-federation/internal/secret"
	"github.com/stacklok/toolhive-federation/internal/token"
)

// ErrNoAuthority is returned when neither a root token nor a caller token is available
var ErrNoAuthority = errors.New("no authority token available")

// AuthorityConfig holds the process-wide root credentials.
type AuthorityConfig struct {
	// RootToken, when set, is used as the authority for every secret fetch
	RootToken string `yaml:"rootToken,omitempty"`

	// RootTokenInfo describes where to find the root token when RootToken is empty
	RootTokenInfo *token.Descriptor `yaml:"rootTokenInfo,omitempty"`
}

// HasRootTokenInfo reports whether a non-empty root token descriptor is configured
func (a AuthorityConfig) HasRootTokenInfo() bool {
	return a.RootTokenInfo != nil && !a.RootTokenInfo.IsEmpty()
}

// TokenSource turns a descriptor into a literal token
type TokenSource interface {
	Resolve(ctx context.Context, d token.Descriptor) (string, error)
}

// Resolver fetches secrets on behalf of remote repositories
type Resolver struct {
	authority AuthorityConfig
	secrets   secret.Client
	tokens    TokenSource
}

// NewResolver returns a Resolver for the given authority configuration
func NewResolver(authority AuthorityConfig, secrets secret.Client, tokens TokenSource) *Resolver {
	return &Resolver{
		authority: authority,
		secrets:   secrets,
		tokens:    tokens,
	}
}

// ResolveSecret returns the data payload of secretID. The authority token is,
// in priority order, the configured root token, the token resolved from the
// root token descriptor, or the caller's token. Root tokens carry their own
// domain; the caller's domain is only used with the caller's token.
func (r *Resolver) ResolveSecret(ctx context.Context, secretID, callerDomainID string) (map[string]any, error) {
	authToken, domainID, err := r.authorityFor(ctx, callerDomainID)
	if err != nil {
		return nil, err
	}

	data, err := r.secrets.GetData(ctx, authToken, secretID, domainID)
	if err != nil {
		return nil, fmt.Errorf("fetching secret %s: %w", secretID, err)
	}
	return data, nil
}

func (r *Resolver) authorityFor(ctx context.Context, callerDomainID string) (string, string, error) {
	switch {
	case r.authority.RootToken != "":
		return withDomain(r.authority.RootToken)

	case r.authority.HasRootTokenInfo():
		rootToken, err := r.tokens.Resolve(ctx, *r.authority.RootTokenInfo)
		if err != nil {
			return "", "", fmt.Errorf("resolving root token: %w", err)
		}
		return withDomain(rootToken)

	default:
		callerToken := CallerToken(ctx)
		if callerToken == "" {
			return "", "", ErrNoAuthority
		}
		slog.Debug("Using caller token as secret authority", "domain_id", callerDomainID)
		return callerToken, callerDomainID, nil
	}
}

// withDomain reads the domain of a configured root token. A root token that
// carries no domain is a server misconfiguration, not a caller error.
func withDomain(rootToken string) (string, string, error) {
	domainID, err := identity.DomainOf(rootToken)
	if err != nil {
		return "", "", fmt.Errorf("%w: root token: %v", token.ErrConfiguration, err)
	}
	return rootToken, domainID, nil
}
