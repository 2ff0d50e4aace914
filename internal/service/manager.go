package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stacklok/toolhive-federation/internal/remote"
	"github.com/stacklok/toolhive-federation/internal/repository"
	"github.com/stacklok/toolhive-federation/internal/schema"
	"github.com/stacklok/toolhive-federation/internal/telemetry"
)

// Manager serves the schemas of one repository. NewManager returns the local
// or remote variant according to the repository type.
type Manager interface {
	Repository() repository.Record
	GetSchema(ctx context.Context, schemaID, domainID string, only []string) (schema.Record, error)
	ListSchemas(ctx context.Context, q schema.Query, domainID string) (schema.ListResult, error)
	StatSchemas(ctx context.Context, q schema.StatQuery, domainID string) (schema.StatResult, error)
}

// ConnectionBuilder builds the connection to a remote repository
type ConnectionBuilder interface {
	Build(ctx context.Context, rec repository.Record, callerDomainID string) (remote.Connection, error)
}

// ManagerDeps are the collaborators managers are built from
type ManagerDeps struct {
	// Schemas backs local repositories
	Schemas *schema.Store
	// Connections and Connectors back remote repositories
	Connections ConnectionBuilder
	Connectors  remote.ConnectorFactory
	Metrics     *telemetry.FederationMetrics
}

// NewManager returns the manager for rec
func NewManager(rec repository.Record, deps ManagerDeps) (Manager, error) {
	switch rec.RepositoryType {
	case repository.TypeLocal:
		if deps.Schemas == nil {
			return nil, fmt.Errorf("local repository %s needs a schema store", rec.Name)
		}
		return &localManager{rec: rec, info: schema.InfoFor(rec), store: deps.Schemas}, nil
	case repository.TypeRemote:
		if deps.Connections == nil || deps.Connectors == nil {
			return nil, fmt.Errorf("remote repository %s needs a connection builder and connector factory", rec.Name)
		}
		return &remoteManager{
			rec:         rec,
			info:        schema.InfoFor(rec),
			connections: deps.Connections,
			connectors:  deps.Connectors,
			metrics:     deps.Metrics,
		}, nil
	default:
		return nil, fmt.Errorf("unknown repository type %q for %s", rec.RepositoryType, rec.Name)
	}
}

type localManager struct {
	rec   repository.Record
	info  schema.RepositoryInfo
	store *schema.Store
}

func (m *localManager) Repository() repository.Record {
	return m.rec
}

func (m *localManager) GetSchema(_ context.Context, schemaID, domainID string, only []string) (schema.Record, error) {
	rec, err := m.store.Get(m.rec.RepositoryID, schemaID, domainID, only)
	if err != nil {
		return schema.Record{}, err
	}
	return rec.Attribute(m.info, only), nil
}

func (m *localManager) ListSchemas(_ context.Context, q schema.Query, domainID string) (schema.ListResult, error) {
	res, err := m.store.List(m.rec.RepositoryID, q, domainID)
	if err != nil {
		return schema.ListResult{}, err
	}
	for i := range res.Results {
		res.Results[i] = res.Results[i].Attribute(m.info, q.Only)
	}
	return res, nil
}

func (m *localManager) StatSchemas(_ context.Context, q schema.StatQuery, domainID string) (schema.StatResult, error) {
	return m.store.Stat(m.rec.RepositoryID, q, domainID)
}

type remoteManager struct {
	rec         repository.Record
	info        schema.RepositoryInfo
	connections ConnectionBuilder
	connectors  remote.ConnectorFactory
	metrics     *telemetry.FederationMetrics
}

func (m *remoteManager) Repository() repository.Record {
	return m.rec
}

func (m *remoteManager) connect(ctx context.Context, domainID string) (remote.Connector, error) {
	conn, err := m.connections.Build(ctx, m.rec, domainID)
	if err != nil {
		return nil, fmt.Errorf("connecting to repository %s: %w", m.rec.Name, err)
	}
	connector, err := m.connectors.NewConnector(conn)
	if err != nil {
		return nil, fmt.Errorf("connecting to repository %s: %w", m.rec.Name, err)
	}
	return connector, nil
}

// GetSchema fetches the schema from the remote repository and returns a copy
// attributed to this repository, following the same projection as local schemas.
func (m *remoteManager) GetSchema(ctx context.Context, schemaID, domainID string, only []string) (schema.Record, error) {
	connector, err := m.connect(ctx, domainID)
	if err != nil {
		return schema.Record{}, err
	}

	start := time.Now()
	rec, err := connector.GetSchema(ctx, schemaID, only)
	m.metrics.RecordRemoteCall(ctx, m.rec.Name, "get_schema", time.Since(start), err == nil)
	if err != nil {
		return schema.Record{}, err
	}
	return rec.Attribute(m.info, only), nil
}

// ListSchemas lists schemas on the remote repository. Every returned record
// is a copy attributed to this repository; the total is the remote's.
func (m *remoteManager) ListSchemas(ctx context.Context, q schema.Query, domainID string) (schema.ListResult, error) {
	connector, err := m.connect(ctx, domainID)
	if err != nil {
		return schema.ListResult{}, err
	}

	start := time.Now()
	res, err := connector.ListSchemas(ctx, q)
	m.metrics.RecordRemoteCall(ctx, m.rec.Name, "list_schemas", time.Since(start), err == nil)
	if err != nil {
		return schema.ListResult{}, err
	}

	results := make([]schema.Record, 0, len(res.Results))
	for _, rec := range res.Results {
		results = append(results, rec.Attribute(m.info, q.Only))
	}
	return schema.ListResult{Results: results, TotalCount: res.TotalCount}, nil
}

// StatSchemas is not offered by remote repositories
func (*remoteManager) StatSchemas(context.Context, schema.StatQuery, string) (schema.StatResult, error) {
	return schema.StatResult{}, fmt.Errorf("%w: stat on a remote repository", ErrUnsupportedOperation)
}
