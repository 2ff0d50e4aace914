// Package remote builds connections to peer repository services and calls them.
package remote

import (
	"context"
	"fmt"

	"github.com/stacklok/toolhive-federation/internal/repository"
)

// TokenKey is the secret data key holding the remote repository's access token
const TokenKey = "token"

// Credential authenticates calls to a remote repository
type Credential struct {
	Token string
}

// Connection is everything needed to call one remote repository
type Connection struct {
	Endpoint   string
	Version    string
	Credential Credential
}

// SecretResolver fetches a repository secret on behalf of a caller's domain
//
//go:generate mockgen -destination=mocks/mock_remote.go -package=mocks -source=connection.go SecretResolver
type SecretResolver interface {
	ResolveSecret(ctx context.Context, secretID, callerDomainID string) (map[string]any, error)
}

// Builder assembles connections from repository records
type Builder struct {
	secrets SecretResolver
}

// NewBuilder returns a Builder resolving credentials through secrets
func NewBuilder(secrets SecretResolver) *Builder {
	return &Builder{secrets: secrets}
}

// Build returns the connection for a remote repository record
func (b *Builder) Build(ctx context.Context, rec repository.Record, callerDomainID string) (Connection, error) {
	data, err := b.secrets.ResolveSecret(ctx, rec.SecretID, callerDomainID)
	if err != nil {
		return Connection{}, err
	}

	tok, ok := data[TokenKey].(string)
	if !ok || tok == "" {
		return Connection{}, fmt.Errorf("%w: secret %s of repository %s", ErrInvalidCredential, rec.SecretID, rec.Name)
	}

	return Connection{
		Endpoint:   rec.Endpoint,
		Version:    rec.Version,
		Credential: Credential{Token: tok},
	}, nil
}
