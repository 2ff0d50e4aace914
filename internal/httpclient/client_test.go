package httpclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-federation/internal/httpclient"
)

// newTestServer creates a new test server with keep-alives disabled.
// This prevents flaky tests when running in parallel, as closing a server
// with keep-alives enabled can affect other tests sharing the HTTP transport.
func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

func TestDefaultClient_Get(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		_, _ = w.Write([]byte(`{"message": "success"}`))
	}))
	defer server.Close()

	client := httpclient.NewDefaultClient(30 * time.Second)
	data, err := client.Get(context.Background(), server.URL, httpclient.WithBearerToken("tok"))

	require.NoError(t, err)
	assert.JSONEq(t, `{"message": "success"}`, string(data))

	got := <-headers
	assert.Equal(t, httpclient.UserAgent, got.Get("User-Agent"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
}

func TestDefaultClient_PostJSON(t *testing.T) {
	t.Parallel()

	type received struct {
		method      string
		contentType string
		auth        string
		body        map[string]any
	}
	requests := make(chan received, 1)

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		requests <- received{
			method:      r.Method,
			contentType: r.Header.Get("Content-Type"),
			auth:        r.Header.Get("Authorization"),
			body:        body,
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := httpclient.NewDefaultClient(0)
	data, err := client.PostJSON(context.Background(), server.URL, map[string]string{"secret_id": "s1"},
		httpclient.WithBearerToken(""))

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(data))

	got := <-requests
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "application/json", got.contentType)
	assert.Empty(t, got.auth, "empty bearer token must not set the header")
	assert.Equal(t, map[string]any{"secret_id": "s1"}, got.body)
}

func TestDefaultClient_HTTPErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		body       string
	}{
		{name: "404 Not Found", statusCode: http.StatusNotFound, body: `{"error": "no such schema"}`},
		{name: "401 Unauthorized", statusCode: http.StatusUnauthorized, body: "Unauthorized"},
		{name: "502 Bad Gateway", statusCode: http.StatusBadGateway, body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := httpclient.NewDefaultClient(time.Second).Get(context.Background(), server.URL)
			require.Error(t, err)

			var httpErr *httpclient.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.statusCode, httpErr.StatusCode)
			assert.Equal(t, tt.body, string(httpErr.Body))
			assert.Equal(t, tt.statusCode, httpclient.StatusCode(err))
			assert.Contains(t, err.Error(), fmt.Sprintf("HTTP %d", tt.statusCode))
		})
	}
}

func TestDefaultClient_NetworkErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		url           string
		errorContains string
	}{
		{name: "invalid URL scheme", url: "://invalid-url", errorContains: "failed to create request"},
		{name: "unreachable host", url: "http://127.0.0.1:1", errorContains: "failed to execute request"},
		{name: "empty URL", url: "", errorContains: "failed to execute request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := httpclient.NewDefaultClient(time.Second).Get(context.Background(), tt.url)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
			assert.Zero(t, httpclient.StatusCode(err))
		})
	}
}

func TestDefaultClient_ContextCancellation(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := httpclient.NewDefaultClient(30*time.Second).Get(ctx, server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestDefaultClient_SizeLimitExceeded(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", httpclient.MaxResponseSize+1))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := httpclient.NewDefaultClient(time.Second).Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum allowed size")
}
