// Package secret reads secret payloads from the secret management service.
package secret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stacklok/toolhive-federation/internal/httpclient"
)

// GetDataPath is the secret service endpoint returning a secret's payload
const GetDataPath = "/secret/v1/secret/get-data"

var (
	// ErrSecretNotFound is returned when the secret does not exist in the domain
	ErrSecretNotFound = errors.New("secret not found")

	// ErrUnauthorized is returned when the secret service rejects the authority token
	ErrUnauthorized = errors.New("secret service rejected credentials")

	// ErrUpstreamUnavailable is returned when the secret service cannot be reached
	// or answers with a server error
	ErrUpstreamUnavailable = errors.New("secret service unavailable")
)

// Client fetches secret payloads
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client
type Client interface {
	// GetData returns the data payload of secretID in domainID, authenticated with authToken
	GetData(ctx context.Context, authToken, secretID, domainID string) (map[string]any, error)
}

type getDataRequest struct {
	SecretID string `json:"secret_id"`
	DomainID string `json:"domain_id"`
}

type getDataResponse struct {
	Data map[string]any `json:"data"`
}

// HTTPClient is the Client backed by the secret service's HTTP API
type HTTPClient struct {
	endpoint string
	http     httpclient.Client
}

// NewHTTPClient returns a Client calling the secret service at endpoint
func NewHTTPClient(endpoint string, client httpclient.Client) *HTTPClient {
	return &HTTPClient{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		http:     client,
	}
}

// GetData implements Client
func (c *HTTPClient) GetData(ctx context.Context, authToken, secretID, domainID string) (map[string]any, error) {
	body, err := c.http.PostJSON(ctx, c.endpoint+GetDataPath,
		getDataRequest{SecretID: secretID, DomainID: domainID},
		httpclient.WithBearerToken(authToken),
	)
	if err != nil {
		return nil, classify(err, secretID)
	}

	var resp getDataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: invalid response for secret %s: %w", ErrUpstreamUnavailable, secretID, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: response for secret %s has no data", ErrUpstreamUnavailable, secretID)
	}
	return resp.Data, nil
}

func classify(err error, secretID string) error {
	switch httpclient.StatusCode(err) {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrSecretNotFound, secretID)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	default:
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
}
