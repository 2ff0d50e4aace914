package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/toolhive-federation/internal/httpclient"
	"github.com/stacklok/toolhive-federation/internal/remote"
	"github.com/stacklok/toolhive-federation/internal/schema"
)

type seenRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

var _ = Describe("HTTPConnector", func() {
	var (
		ctx        context.Context
		mockServer *httptest.Server
		requests   chan seenRequest
		connector  remote.Connector
		status     int
		response   string
	)

	JustBeforeEach(func() {
		requests = make(chan seenRequest, 1)
		mockServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			var body map[string]any
			_ = json.Unmarshal(raw, &body)
			requests <- seenRequest{
				method: r.Method,
				path:   r.URL.Path,
				query:  r.URL.RawQuery,
				auth:   r.Header.Get("Authorization"),
				body:   body,
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte(response))
		}))

		// The test server speaks plain HTTP, reached through a grpc:// endpoint
		endpoint := strings.Replace(mockServer.URL, "http://", "grpc://", 1)
		factory := remote.NewHTTPConnectorFactory(httpclient.NewDefaultClient(5 * time.Second))

		var err error
		connector, err = factory.NewConnector(remote.Connection{
			Endpoint:   endpoint,
			Version:    "v1",
			Credential: remote.Credential{Token: "abc123"},
		})
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	AfterEach(func() {
		mockServer.Close()
	})

	Describe("GetSchema", func() {
		Context("when the remote has the schema", func() {
			BeforeEach(func() {
				status = http.StatusOK
				response = `{
					"schema_id": "abc",
					"name": "postgres-sink",
					"repository_info": {"name": "upstream-central", "repository_type": "local"}
				}`
			})

			It("returns the remote record as sent", func() {
				rec, err := connector.GetSchema(ctx, "abc", []string{"name", "schema"})
				Expect(err).NotTo(HaveOccurred())
				Expect(rec.SchemaID).To(Equal("abc"))
				Expect(rec.Name).To(Equal("postgres-sink"))
				Expect(rec.RepositoryInfo.Name).To(Equal("upstream-central"))

				req := <-requests
				Expect(req.method).To(Equal(http.MethodGet))
				Expect(req.path).To(Equal("/repository/v1/schemas/abc"))
				Expect(req.query).To(Equal("only=name%2Cschema"))
				Expect(req.auth).To(Equal("Bearer abc123"))
			})
		})

		Context("when the remote reports an error", func() {
			BeforeEach(func() {
				status = http.StatusNotFound
				response = `{"error": "schema abc does not exist"}`
			})

			It("returns a remote repository error carrying the detail", func() {
				_, err := connector.GetSchema(ctx, "abc", nil)
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, remote.ErrRemoteRepository)).To(BeTrue())
				Expect(errors.Is(err, schema.ErrNotFound)).To(BeTrue())

				var rerr *remote.Error
				Expect(errors.As(err, &rerr)).To(BeTrue())
				Expect(rerr.StatusCode).To(Equal(http.StatusNotFound))
				Expect(rerr.Detail).To(Equal("schema abc does not exist"))
				Expect(rerr.Operation).To(Equal("get schema"))
			})
		})

		Context("when the remote answers with invalid json", func() {
			BeforeEach(func() {
				status = http.StatusOK
				response = `<html>`
			})

			It("returns a remote repository error", func() {
				_, err := connector.GetSchema(ctx, "abc", nil)
				Expect(errors.Is(err, remote.ErrRemoteRepository)).To(BeTrue())
				Expect(errors.Is(err, schema.ErrNotFound)).To(BeFalse())
			})
		})
	})

	Describe("ListSchemas", func() {
		Context("when the remote lists schemas", func() {
			BeforeEach(func() {
				status = http.StatusOK
				response = `{
					"results": [{"schema_id": "a"}, {"schema_id": "b"}],
					"total_count": 42
				}`
			})

			It("posts the query and returns results with the remote total", func() {
				res, err := connector.ListSchemas(ctx, schema.Query{
					Keyword: "sink",
					Page:    &schema.Page{Start: 0, Limit: 2},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Results).To(HaveLen(2))
				Expect(res.TotalCount).To(Equal(42))

				req := <-requests
				Expect(req.method).To(Equal(http.MethodPost))
				Expect(req.path).To(Equal("/repository/v1/schemas/list"))
				Expect(req.auth).To(Equal("Bearer abc123"))
				Expect(req.body).To(HaveKey("query"))
				Expect(req.body["query"]).To(HaveKeyWithValue("keyword", "sink"))
			})
		})

		Context("when the remote fails", func() {
			BeforeEach(func() {
				status = http.StatusServiceUnavailable
				response = `{"error": {"message": "maintenance"}}`
			})

			It("returns the nested error message as detail", func() {
				_, err := connector.ListSchemas(ctx, schema.Query{})
				var rerr *remote.Error
				Expect(errors.As(err, &rerr)).To(BeTrue())
				Expect(rerr.StatusCode).To(Equal(http.StatusServiceUnavailable))
				Expect(rerr.Detail).To(Equal("maintenance"))
				Expect(err.Error()).To(ContainSubstring("maintenance"))
			})
		})
	})

	Describe("transport failures", func() {
		BeforeEach(func() {
			status = http.StatusOK
		})

		It("reports unreachable repositories as remote repository errors", func() {
			conn, err := remote.NewHTTPConnector(remote.Connection{Endpoint: "grpc://127.0.0.1:1"},
				httpclient.NewDefaultClient(time.Second))
			Expect(err).NotTo(HaveOccurred())

			_, err = conn.ListSchemas(ctx, schema.Query{})
			Expect(errors.Is(err, remote.ErrRemoteRepository)).To(BeTrue())

			var rerr *remote.Error
			Expect(errors.As(err, &rerr)).To(BeTrue())
			Expect(rerr.StatusCode).To(BeZero())
		})
	})
})
