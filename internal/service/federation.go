package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/toolhive-federation/internal/otel"
	"github.com/stacklok/toolhive-federation/internal/repository"
	"github.com/stacklok/toolhive-federation/internal/schema"
	"github.com/stacklok/toolhive-federation/internal/telemetry"
)

// TracerName is the name of the tracer used by the federation service
const TracerName = "github.com/stacklok/toolhive-federation/service"

// DefaultListConcurrency bounds the number of repositories queried at once by a federated list
const DefaultListConcurrency = 8

type federationService struct {
	repositories *repository.Store
	managers     map[string]Manager
	tracer       trace.Tracer
	metrics      *telemetry.FederationMetrics
	concurrency  int
}

// FederationOption configures the federation service
type FederationOption func(*federationService)

// WithTracerProvider enables tracing of service operations
func WithTracerProvider(tp trace.TracerProvider) FederationOption {
	return func(s *federationService) {
		if tp != nil {
			s.tracer = tp.Tracer(TracerName)
		}
	}
}

// WithFederationMetrics sets the metrics recorded by federated operations
func WithFederationMetrics(m *telemetry.FederationMetrics) FederationOption {
	return func(s *federationService) {
		s.metrics = m
	}
}

// WithListConcurrency bounds the repositories queried in parallel by a federated list
func WithListConcurrency(n int) FederationOption {
	return func(s *federationService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewFederationService builds one manager per repository in repos
func NewFederationService(repos *repository.Store, deps ManagerDeps, opts ...FederationOption) (Service, error) {
	s := &federationService{
		repositories: repos,
		managers:     make(map[string]Manager),
		concurrency:  DefaultListConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if deps.Metrics == nil {
		deps.Metrics = s.metrics
	}

	for _, rec := range repos.List() {
		m, err := NewManager(rec, deps)
		if err != nil {
			return nil, err
		}
		s.managers[rec.RepositoryID] = m
	}
	return s, nil
}

// CheckReadiness implements Service
func (s *federationService) CheckReadiness(_ context.Context) error {
	if len(s.managers) == 0 {
		return errors.New("no repositories configured")
	}
	return nil
}

// ListRepositories implements Service
func (s *federationService) ListRepositories(_ context.Context) ([]repository.Record, error) {
	return s.repositories.List(), nil
}

func (s *federationService) manager(id string) (Manager, error) {
	m, ok := s.managers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, id)
	}
	return m, nil
}

// GetSchema implements Service
func (s *federationService) GetSchema(ctx context.Context, opts ...Option[GetSchemaOptions]) (schema.Record, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return schema.Record{}, err
	}
	if o.SchemaID == "" {
		return schema.Record{}, fmt.Errorf("%w: schema id is required", ErrInvalidRequest)
	}

	ctx, span := otel.StartSpan(ctx, s.tracer, "federation.GetSchema",
		trace.WithAttributes(otel.AttrSchemaID.String(o.SchemaID)))
	defer span.End()

	if o.RepositoryID != nil {
		m, err := s.manager(*o.RepositoryID)
		if err != nil {
			otel.RecordError(span, err)
			return schema.Record{}, err
		}
		span.SetAttributes(repositoryAttributes(m.Repository())...)

		rec, err := m.GetSchema(ctx, o.SchemaID, o.DomainID, o.Only)
		otel.RecordError(span, err)
		return rec, err
	}

	rec, err := s.findSchema(ctx, o)
	otel.RecordError(span, err)
	return rec, err
}

// findSchema asks every repository in turn, local ones first. A repository
// that fails is skipped; if none has the schema the last failure is
// returned, or ErrSchemaNotFound when none failed.
func (s *federationService) findSchema(ctx context.Context, o *GetSchemaOptions) (schema.Record, error) {
	var lastErr error
	for _, repo := range s.repositories.List() {
		m := s.managers[repo.RepositoryID]
		rec, err := m.GetSchema(ctx, o.SchemaID, o.DomainID, o.Only)
		switch {
		case err == nil:
			return rec, nil
		case ctx.Err() != nil:
			return schema.Record{}, ctx.Err()
		case errors.Is(err, schema.ErrNotFound):
			continue
		default:
			slog.Warn("Repository failed while searching for schema",
				"repository", repo.Name,
				"schema_id", o.SchemaID,
				"error", err)
			lastErr = err
		}
	}
	if lastErr != nil {
		return schema.Record{}, lastErr
	}
	return schema.Record{}, fmt.Errorf("%w: %s", ErrSchemaNotFound, o.SchemaID)
}

// ListSchemas implements Service
func (s *federationService) ListSchemas(ctx context.Context, opts ...Option[ListSchemasOptions]) (schema.ListResult, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return schema.ListResult{}, err
	}

	ctx, span := otel.StartSpan(ctx, s.tracer, "federation.ListSchemas")
	defer span.End()

	var res schema.ListResult
	if o.RepositoryID != nil {
		var m Manager
		m, err = s.manager(*o.RepositoryID)
		if err == nil {
			span.SetAttributes(repositoryAttributes(m.Repository())...)
			res, err = m.ListSchemas(ctx, o.Query, o.DomainID)
		}
	} else {
		res, err = s.federatedList(ctx, o)
	}
	if err != nil {
		otel.RecordError(span, err)
		return schema.ListResult{}, err
	}

	span.SetAttributes(
		otel.AttrResultCount.Int(len(res.Results)),
		otel.AttrTotalCount.Int(res.TotalCount),
	)
	return res, nil
}

// federatedList lists every repository concurrently without paging, then
// concatenates results in repository order, sorts and pages the whole.
// Failing repositories are logged and skipped unless all of them fail.
func (s *federationService) federatedList(ctx context.Context, o *ListSchemasOptions) (schema.ListResult, error) {
	repos := s.repositories.List()
	if len(repos) == 0 {
		return schema.ListResult{Results: []schema.Record{}}, nil
	}

	perRepo := o.Query
	perRepo.Page = nil

	results := make([]schema.ListResult, len(repos))
	errs := make([]error, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, repo := range repos {
		m := s.managers[repo.RepositoryID]
		g.Go(func() error {
			results[i], errs[i] = m.ListSchemas(gctx, perRepo, o.DomainID)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return schema.ListResult{}, err
	}

	merged := schema.ListResult{Results: []schema.Record{}}
	failed := 0
	var firstErr error
	for i, repo := range repos {
		if errs[i] != nil {
			failed++
			if firstErr == nil {
				firstErr = errs[i]
			}
			s.metrics.RecordRepositoryFailure(ctx, repo.Name)
			slog.Warn("Skipping repository in federated list",
				"repository", repo.Name,
				"repository_type", repo.RepositoryType,
				"error", errs[i])
			continue
		}
		merged.Results = append(merged.Results, results[i].Results...)
	}
	if failed == len(repos) {
		return schema.ListResult{}, firstErr
	}
	trace.SpanFromContext(ctx).SetAttributes(otel.AttrFailedCount.Int(failed))

	if err := schema.SortRecords(merged.Results, o.Query.Sort); err != nil {
		return schema.ListResult{}, err
	}
	merged.TotalCount = len(merged.Results)
	merged.Results = schema.PageRecords(merged.Results, o.Query.Page)
	return merged, nil
}

// StatSchemas implements Service
func (s *federationService) StatSchemas(ctx context.Context, opts ...Option[StatSchemasOptions]) (schema.StatResult, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return schema.StatResult{}, err
	}
	if o.RepositoryID == "" {
		return schema.StatResult{}, fmt.Errorf("%w: repository id is required", ErrInvalidRequest)
	}

	ctx, span := otel.StartSpan(ctx, s.tracer, "federation.StatSchemas")
	defer span.End()

	m, err := s.manager(o.RepositoryID)
	if err != nil {
		otel.RecordError(span, err)
		return schema.StatResult{}, err
	}
	span.SetAttributes(repositoryAttributes(m.Repository())...)

	res, err := m.StatSchemas(ctx, o.Query, o.DomainID)
	otel.RecordError(span, err)
	return res, err
}

func repositoryAttributes(rec repository.Record) []attribute.KeyValue {
	return otel.RepositoryAttributes(rec.RepositoryID, rec.Name, string(rec.RepositoryType))
}
