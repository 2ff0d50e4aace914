package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/stacklok/toolhive-federation/internal/httpclient"
	"github.com/stacklok/toolhive-federation/internal/schema"
)

// DefaultVersion is used when a repository record has no API version
const DefaultVersion = "v1"

// Connector is a client for one remote repository
//
//go:generate mockgen -destination=mocks/mock_connector.go -package=mocks -source=connector.go Connector,ConnectorFactory
type Connector interface {
	GetSchema(ctx context.Context, schemaID string, only []string) (schema.Record, error)
	ListSchemas(ctx context.Context, q schema.Query) (schema.ListResult, error)
}

// ConnectorFactory creates a Connector for a connection
type ConnectorFactory interface {
	NewConnector(conn Connection) (Connector, error)
}

// ConnectorFactoryFunc adapts a function to ConnectorFactory
type ConnectorFactoryFunc func(conn Connection) (Connector, error)

// NewConnector implements ConnectorFactory
func (f ConnectorFactoryFunc) NewConnector(conn Connection) (Connector, error) {
	return f(conn)
}

// NewHTTPConnectorFactory returns a factory of HTTP connectors sharing client
func NewHTTPConnectorFactory(client httpclient.Client) ConnectorFactory {
	return ConnectorFactoryFunc(func(conn Connection) (Connector, error) {
		return NewHTTPConnector(conn, client)
	})
}

type listRequest struct {
	Query schema.Query `json:"query"`
}

// HTTPConnector calls a remote repository's JSON API
type HTTPConnector struct {
	base     string
	endpoint string
	token    string
	client   httpclient.Client
}

// NewHTTPConnector returns a connector for conn
func NewHTTPConnector(conn Connection, client httpclient.Client) (*HTTPConnector, error) {
	base, err := BaseURL(conn.Endpoint)
	if err != nil {
		return nil, err
	}
	version := conn.Version
	if version == "" {
		version = DefaultVersion
	}
	return &HTTPConnector{
		base:     base + "/repository/" + url.PathEscape(version),
		endpoint: conn.Endpoint,
		token:    conn.Credential.Token,
		client:   client,
	}, nil
}

// GetSchema fetches one schema, projected to only when non-empty
func (c *HTTPConnector) GetSchema(ctx context.Context, schemaID string, only []string) (schema.Record, error) {
	target := c.base + "/schemas/" + url.PathEscape(schemaID)
	if len(only) > 0 {
		target += "?" + url.Values{"only": {strings.Join(only, ",")}}.Encode()
	}

	body, err := c.client.Get(ctx, target, httpclient.WithBearerToken(c.token))
	if err != nil {
		return schema.Record{}, newError(c.endpoint, "get schema", err)
	}

	var rec schema.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return schema.Record{}, newError(c.endpoint, "get schema", fmt.Errorf("decoding response: %w", err))
	}
	return rec, nil
}

// ListSchemas evaluates q on the remote repository
func (c *HTTPConnector) ListSchemas(ctx context.Context, q schema.Query) (schema.ListResult, error) {
	body, err := c.client.PostJSON(ctx, c.base+"/schemas/list", listRequest{Query: q},
		httpclient.WithBearerToken(c.token))
	if err != nil {
		return schema.ListResult{}, newError(c.endpoint, "list schemas", err)
	}

	var res schema.ListResult
	if err := json.Unmarshal(body, &res); err != nil {
		return schema.ListResult{}, newError(c.endpoint, "list schemas", fmt.Errorf("decoding response: %w", err))
	}
	return res, nil
}

// BaseURL turns a repository endpoint into an HTTP base URL. grpc and grpcs
// endpoints are served over plain and TLS HTTP respectively; a bare
// "host:port" is treated as plain HTTP.
func BaseURL(endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("%w: empty endpoint", ErrRemoteRepository)
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: invalid endpoint %q: %w", ErrRemoteRepository, endpoint, err)
	}

	switch u.Scheme {
	case "grpc", "http":
		u.Scheme = "http"
	case "grpcs", "https":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("%w: unsupported endpoint scheme %q", ErrRemoteRepository, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: endpoint %q has no host", ErrRemoteRepository, endpoint)
	}

	return strings.TrimSuffix(u.String(), "/"), nil
}
