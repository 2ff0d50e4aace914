package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-federation/internal/credential"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{name: "bearer token", header: "Bearer abc", want: "abc"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "missing", header: "", wantErr: errMissingToken},
		{name: "basic auth", header: "Basic xyz", wantErr: errMalformedHeader},
		{name: "empty token", header: "Bearer ", wantErr: errMalformedHeader},
		{name: "no separator", header: "Bearer", wantErr: errMalformedHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			got, err := ExtractBearerToken(req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallerMiddleware(t *testing.T) {
	t.Parallel()

	domainToken := mintToken(t, jwt.MapClaims{"did": "d-1", "sub": "user"})
	noDomainToken := mintToken(t, jwt.MapClaims{"sub": "user"})

	tests := []struct {
		name       string
		required   bool
		authHeader string
		wantStatus int
		wantCaller *credential.Caller
		wantChalg  string
	}{
		{
			name:       "anonymous without token",
			wantStatus: http.StatusOK,
		},
		{
			name:       "required without token",
			required:   true,
			wantStatus: http.StatusUnauthorized,
			wantChalg:  `Bearer realm="toolhive-federation"`,
		},
		{
			name:       "basic auth rejected",
			authHeader: "Basic xyz",
			wantStatus: http.StatusUnauthorized,
			wantChalg:  `Bearer realm="toolhive-federation", error="invalid_request", error_description="authorization header must be a bearer token"`,
		},
		{
			name:       "token without domain",
			authHeader: "Bearer " + noDomainToken,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not a jwt",
			authHeader: "Bearer opaque",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "caller recorded",
			required:   true,
			authHeader: "Bearer " + domainToken,
			wantStatus: http.StatusOK,
			wantCaller: &credential.Caller{Token: domainToken, DomainID: "d-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var (
				called    bool
				gotCaller credential.Caller
				hasCaller bool
			)
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotCaller, hasCaller = credential.CallerFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/v1/repositories", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			newCallerMiddleware(tt.required, "").Middleware(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
			if tt.wantChalg != "" {
				assert.Equal(t, tt.wantChalg, rr.Header().Get("WWW-Authenticate"))
			}
			if tt.wantCaller != nil {
				require.True(t, hasCaller)
				assert.Equal(t, *tt.wantCaller, gotCaller)
			} else {
				assert.False(t, hasCaller)
			}
		})
	}
}

func TestSanitizeHeaderValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain", sanitizeHeaderValue("plain"))
	assert.Equal(t, `a\"b`, sanitizeHeaderValue("a\r\n\"b"))
}

func TestWrapWithPublicPaths(t *testing.T) {
	t.Parallel()

	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := WrapWithPublicPaths(deny, []string{"/health"})(ok)

	tests := []struct {
		path string
		want int
	}{
		{path: "/health", want: http.StatusOK},
		{path: "/healthz", want: http.StatusUnauthorized},
		{path: "/v1/schemas/list", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.want, rr.Code, tt.path)
	}
}
