// Package v1 provides the federation API v1 endpoints for repositories and schemas.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/toolhive-federation/internal/api/common"
	"github.com/stacklok/toolhive-federation/internal/credential"
	"github.com/stacklok/toolhive-federation/internal/repository"
	"github.com/stacklok/toolhive-federation/internal/schema"
	"github.com/stacklok/toolhive-federation/internal/service"
)

// MaxRequestBodySize bounds the size of query bodies
const MaxRequestBodySize = 1 << 20

// ListRequest is the body of the list endpoints
type ListRequest struct {
	Query schema.Query `json:"query"`
}

// StatRequest is the body of the stat endpoint
type StatRequest struct {
	Query schema.StatQuery `json:"query"`
}

// RepositoryListResponse is the reply of GET /v1/repositories
type RepositoryListResponse struct {
	Results    []repository.Record `json:"results"`
	TotalCount int                 `json:"total_count"`
}

// Routes handles HTTP requests for the v1 endpoints.
type Routes struct {
	service service.Service
}

// NewRoutes creates a new Routes instance with the given service.
func NewRoutes(svc service.Service) *Routes {
	return &Routes{service: svc}
}

// Router creates and configures the HTTP router for the v1 endpoints.
func Router(svc service.Service) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()

	r.Get("/repositories", routes.listRepositories)
	r.Route("/repositories/{repositoryID}/schemas", func(r chi.Router) {
		r.Post("/list", routes.listRepositorySchemas)
		r.Post("/stat", routes.statRepositorySchemas)
		r.Get("/{schemaID}", routes.getRepositorySchema)
	})

	r.Post("/schemas/list", routes.listSchemas)
	r.Get("/schemas/{schemaID}", routes.getSchema)

	return r
}

// listRepositories handles GET /v1/repositories
func (routes *Routes) listRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := routes.service.ListRepositories(r.Context())
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	common.WriteJSONResponse(w, RepositoryListResponse{
		Results:    repos,
		TotalCount: len(repos),
	}, http.StatusOK)
}

// getRepositorySchema handles GET /v1/repositories/{repositoryID}/schemas/{schemaID}
func (routes *Routes) getRepositorySchema(w http.ResponseWriter, r *http.Request) {
	repositoryID, err := common.PathParam(r, "repositoryID")
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	routes.handleGetSchema(w, r, service.WithRepositoryID[service.GetSchemaOptions](repositoryID))
}

// getSchema handles GET /v1/schemas/{schemaID}, searching every repository
func (routes *Routes) getSchema(w http.ResponseWriter, r *http.Request) {
	routes.handleGetSchema(w, r)
}

func (routes *Routes) handleGetSchema(
	w http.ResponseWriter,
	r *http.Request,
	opts ...service.Option[service.GetSchemaOptions],
) {
	schemaID, err := common.PathParam(r, "schemaID")
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	opts = append(opts,
		service.WithSchemaID(schemaID),
		service.WithDomainID[service.GetSchemaOptions](callerDomain(r)),
	)
	if only := common.SplitFields(r.URL.Query().Get("only")); len(only) > 0 {
		opts = append(opts, service.WithOnly(only))
	}

	rec, err := routes.service.GetSchema(r.Context(), opts...)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	common.WriteJSONResponse(w, rec, http.StatusOK)
}

// listRepositorySchemas handles POST /v1/repositories/{repositoryID}/schemas/list
func (routes *Routes) listRepositorySchemas(w http.ResponseWriter, r *http.Request) {
	repositoryID, err := common.PathParam(r, "repositoryID")
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	routes.handleListSchemas(w, r, service.WithRepositoryID[service.ListSchemasOptions](repositoryID))
}

// listSchemas handles POST /v1/schemas/list, merging every repository
func (routes *Routes) listSchemas(w http.ResponseWriter, r *http.Request) {
	routes.handleListSchemas(w, r)
}

func (routes *Routes) handleListSchemas(
	w http.ResponseWriter,
	r *http.Request,
	opts ...service.Option[service.ListSchemasOptions],
) {
	var req ListRequest
	if err := decodeBody(w, r, &req); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	opts = append(opts,
		service.WithQuery(req.Query),
		service.WithDomainID[service.ListSchemasOptions](callerDomain(r)),
	)

	result, err := routes.service.ListSchemas(r.Context(), opts...)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	if result.Results == nil {
		result.Results = []schema.Record{}
	}

	common.WriteJSONResponse(w, result, http.StatusOK)
}

// statRepositorySchemas handles POST /v1/repositories/{repositoryID}/schemas/stat
func (routes *Routes) statRepositorySchemas(w http.ResponseWriter, r *http.Request) {
	repositoryID, err := common.PathParam(r, "repositoryID")
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	var req StatRequest
	if err := decodeBody(w, r, &req); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	result, err := routes.service.StatSchemas(r.Context(),
		service.WithRepositoryID[service.StatSchemasOptions](repositoryID),
		service.WithStatQuery(req.Query),
		service.WithDomainID[service.StatSchemasOptions](callerDomain(r)),
	)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	common.WriteJSONResponse(w, result, http.StatusOK)
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBodySize))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid request body: %w", service.ErrInvalidRequest, err)
	}
	return nil
}

func callerDomain(r *http.Request) string {
	caller, _ := credential.CallerFrom(r.Context())
	return caller.DomainID
}
