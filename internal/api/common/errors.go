package common

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/stacklok/toolhive-federation/internal/credential"
	"github.com/stacklok/toolhive-federation/internal/identity"
	"github.com/stacklok/toolhive-federation/internal/remote"
	"github.com/stacklok/toolhive-federation/internal/schema"
	"github.com/stacklok/toolhive-federation/internal/secret"
	"github.com/stacklok/toolhive-federation/internal/service"
	"github.com/stacklok/toolhive-federation/internal/token"
)

// statusMapping is checked in order; the first matching error wins.
// Not-found comes before remote errors so a remote 404 stays a 404.
var statusMapping = []struct {
	target error
	status int
}{
	{service.ErrInvalidRequest, http.StatusBadRequest},
	{schema.ErrInvalidQuery, http.StatusBadRequest},
	{identity.ErrMalformedToken, http.StatusBadRequest},
	{credential.ErrNoAuthority, http.StatusUnauthorized},
	{secret.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrSchemaNotFound, http.StatusNotFound},
	{service.ErrRepositoryNotFound, http.StatusNotFound},
	{service.ErrUnsupportedOperation, http.StatusNotImplemented},
	{remote.ErrRemoteRepository, http.StatusBadGateway},
	{remote.ErrInvalidCredential, http.StatusBadGateway},
	{secret.ErrSecretNotFound, http.StatusBadGateway},
	{secret.ErrUpstreamUnavailable, http.StatusServiceUnavailable},
	{token.ErrTokenUnavailable, http.StatusServiceUnavailable},
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
	{token.ErrConfiguration, http.StatusInternalServerError},
}

// StatusFor returns the HTTP status reported for err
func StatusFor(err error) int {
	for _, m := range statusMapping {
		if errors.Is(err, m.target) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// WriteServiceError writes err with the status StatusFor assigns to it.
// Server-side failures are logged.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err)
	}
	WriteErrorResponse(w, err.Error(), status)
}
