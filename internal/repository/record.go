// Package repository holds the repository records the federation serves.
package repository

import (
	"errors"
	"fmt"

	"github.com/stacklok/toolhive-federation/internal/versions"
)

// Type distinguishes locally stored repositories from delegated ones
type Type string

const (
	// TypeLocal repositories are served from the local schema store
	TypeLocal Type = "local"
	// TypeRemote repositories are delegated to a peer repository service
	TypeRemote Type = "remote"
)

// ErrInvalidRecord is returned by Record.Validate
var ErrInvalidRecord = errors.New("invalid repository record")

// Record describes one repository known to the federation
type Record struct {
	RepositoryID   string `yaml:"id" json:"repository_id"`
	Name           string `yaml:"name" json:"name"`
	RepositoryType Type   `yaml:"type" json:"repository_type"`

	// Endpoint, Version and SecretID are only meaningful for remote repositories
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Version  string `yaml:"version,omitempty" json:"version,omitempty"`
	SecretID string `yaml:"secretId,omitempty" json:"-"`

	DomainID string `yaml:"domainId,omitempty" json:"domain_id,omitempty"`
}

// IsRemote reports whether the repository is delegated to a peer
func (r Record) IsRemote() bool {
	return r.RepositoryType == TypeRemote
}

// Validate checks the record's invariants
func (r Record) Validate() error {
	var errs []error
	if r.RepositoryID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if r.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	switch r.RepositoryType {
	case TypeLocal:
	case TypeRemote:
		if r.Endpoint == "" {
			errs = append(errs, errors.New("endpoint is required for remote repositories"))
		}
		if r.SecretID == "" {
			errs = append(errs, errors.New("secretId is required for remote repositories"))
		}
		if r.Version != "" {
			if _, err := versions.NormalizeAPIVersion(r.Version); err != nil {
				errs = append(errs, err)
			}
		}
	default:
		errs = append(errs, fmt.Errorf("type must be %q or %q, got %q", TypeLocal, TypeRemote, r.RepositoryType))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %w", ErrInvalidRecord, r.RepositoryID, errors.Join(errs...))
	}
	return nil
}
