// Package service provides the business logic of the federation API: it
// routes schema operations to local or remote repository managers.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/stacklok/toolhive-federation/internal/repository"
	"github.com/stacklok/toolhive-federation/internal/schema"
)

var (
	// ErrUnsupportedOperation is returned for operations a repository cannot serve
	ErrUnsupportedOperation = errors.New("operation not supported by repository")
	// ErrInvalidRequest is returned when required options are missing or invalid
	ErrInvalidRequest = errors.New("invalid request")
	// ErrSchemaNotFound is returned when no repository has the requested schema
	ErrSchemaNotFound = schema.ErrNotFound
	// ErrRepositoryNotFound is returned when the requested repository is not configured
	ErrRepositoryNotFound = repository.ErrNotFound
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go Service

// Service defines the federation operations exposed over HTTP
type Service interface {
	// CheckReadiness reports whether the service can serve requests
	CheckReadiness(ctx context.Context) error

	// ListRepositories returns the configured repositories, local ones first
	ListRepositories(ctx context.Context) ([]repository.Record, error)

	// GetSchema returns one schema from the given repository, or from the
	// first repository holding it when none is given
	GetSchema(ctx context.Context, opts ...Option[GetSchemaOptions]) (schema.Record, error)

	// ListSchemas lists schemas of one repository, or of all of them when none is given
	ListSchemas(ctx context.Context, opts ...Option[ListSchemasOptions]) (schema.ListResult, error)

	// StatSchemas computes aggregates over the schemas of one repository
	StatSchemas(ctx context.Context, opts ...Option[StatSchemasOptions]) (schema.StatResult, error)
}

// Option is a function that sets an option for the GetSchema, ListSchemas or
// StatSchemas operation
type Option[T GetSchemaOptions | ListSchemasOptions | StatSchemasOptions] func(*T) error

// GetSchemaOptions is the options for the GetSchema operation
type GetSchemaOptions struct {
	RepositoryID *string
	SchemaID     string
	DomainID     string
	Only         []string
}

// ListSchemasOptions is the options for the ListSchemas operation
type ListSchemasOptions struct {
	RepositoryID *string
	DomainID     string
	Query        schema.Query
}

// StatSchemasOptions is the options for the StatSchemas operation
type StatSchemasOptions struct {
	RepositoryID string
	DomainID     string
	Query        schema.StatQuery
}

func applyOptions[T GetSchemaOptions | ListSchemasOptions | StatSchemasOptions](opts []Option[T]) (*T, error) {
	o := new(T)
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	return o, nil
}

// WithRepositoryID restricts the operation to one repository
func WithRepositoryID[T GetSchemaOptions | ListSchemasOptions | StatSchemasOptions](id string) Option[T] {
	return func(o *T) error {
		if id == "" {
			return fmt.Errorf("invalid repository id: %s", id)
		}
		switch o := any(o).(type) {
		case *GetSchemaOptions:
			o.RepositoryID = &id
		case *ListSchemasOptions:
			o.RepositoryID = &id
		case *StatSchemasOptions:
			o.RepositoryID = id
		default:
			return fmt.Errorf("invalid option type: %T", o)
		}
		return nil
	}
}

// WithDomainID sets the caller's domain. An empty domain leaves the option unset.
func WithDomainID[T GetSchemaOptions | ListSchemasOptions | StatSchemasOptions](domainID string) Option[T] {
	return func(o *T) error {
		switch o := any(o).(type) {
		case *GetSchemaOptions:
			o.DomainID = domainID
		case *ListSchemasOptions:
			o.DomainID = domainID
		case *StatSchemasOptions:
			o.DomainID = domainID
		default:
			return fmt.Errorf("invalid option type: %T", o)
		}
		return nil
	}
}

// WithSchemaID sets the schema to fetch
func WithSchemaID(id string) Option[GetSchemaOptions] {
	return func(o *GetSchemaOptions) error {
		if id == "" {
			return fmt.Errorf("invalid schema id: %s", id)
		}
		o.SchemaID = id
		return nil
	}
}

// WithOnly restricts the returned fields
func WithOnly(fields []string) Option[GetSchemaOptions] {
	return func(o *GetSchemaOptions) error {
		o.Only = fields
		return nil
	}
}

// WithQuery sets the list query
func WithQuery(q schema.Query) Option[ListSchemasOptions] {
	return func(o *ListSchemasOptions) error {
		if err := q.Validate(); err != nil {
			return err
		}
		o.Query = q
		return nil
	}
}

// WithStatQuery sets the aggregate query
func WithStatQuery(q schema.StatQuery) Option[StatSchemasOptions] {
	return func(o *StatSchemasOptions) error {
		if err := q.Validate(); err != nil {
			return err
		}
		o.Query = q
		return nil
	}
}
