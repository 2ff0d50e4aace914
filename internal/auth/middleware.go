// Package auth provides the caller authentication middleware of the federation API.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stacklok/toolhive-federation/internal/credential"
	"github.com/stacklok/toolhive-federation/internal/identity"
)

var (
	// errMissingToken is returned when the request carries no Authorization header
	errMissingToken = errors.New("authorization header is missing")

	// errMalformedHeader is returned when the Authorization header is not a bearer token
	errMalformedHeader = errors.New("authorization header must be a bearer token")
)

// RFC 6750 Section 3 error codes
const (
	errorCodeInvalidRequest = "invalid_request"
	errorCodeInvalidToken   = "invalid_token"
)

// defaultRealm is the default protection space identifier
const defaultRealm = "toolhive-federation"

// callerMiddleware stores the caller's bearer token and domain in the request context.
type callerMiddleware struct {
	required bool
	realm    string
}

func newCallerMiddleware(required bool, realm string) *callerMiddleware {
	if realm == "" {
		realm = defaultRealm
	}
	return &callerMiddleware{required: required, realm: realm}
}

// ExtractBearerToken returns the token of an "Authorization: Bearer" header
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingToken
	}
	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errMalformedHeader
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", errMalformedHeader
	}
	return tok, nil
}

// Middleware returns an HTTP middleware function that records the caller.
func (m *callerMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := ExtractBearerToken(r)
		switch {
		case errors.Is(err, errMissingToken) && !m.required:
			next.ServeHTTP(w, r)
			return
		case errors.Is(err, errMissingToken):
			m.writeError(w, http.StatusUnauthorized, "", "missing authorization header")
			return
		case err != nil:
			slog.Warn("Token extraction failed",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path)
			m.writeError(w, http.StatusUnauthorized, errorCodeInvalidRequest, err.Error())
			return
		}

		domainID, err := identity.DomainOf(tok)
		if err != nil {
			slog.Warn("Caller token rejected",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path)
			m.writeError(w, http.StatusBadRequest, errorCodeInvalidToken, "token does not carry a domain")
			return
		}

		slog.Debug("Caller identified", "domain_id", domainID, "path", r.URL.Path)
		ctx := credential.WithCaller(r.Context(), credential.Caller{Token: tok, DomainID: domainID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sanitizeHeaderValue removes characters that could enable header injection attacks.
func sanitizeHeaderValue(s string) string {
	if !strings.ContainsAny(s, "\r\n\"") {
		return s
	}
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.ReplaceAll(s, `"`, `\"`)
}

// writeError writes a JSON error response with an RFC 6750 WWW-Authenticate header.
// An empty errCode sends a bare challenge, as required when no credentials were presented.
func (m *callerMiddleware) writeError(w http.ResponseWriter, status int, errCode, description string) {
	w.Header().Set("Content-Type", "application/json")

	wwwAuth := fmt.Sprintf(`Bearer realm="%s"`, sanitizeHeaderValue(m.realm))
	if errCode != "" {
		wwwAuth += fmt.Sprintf(`, error="%s", error_description="%s"`, errCode, sanitizeHeaderValue(description))
	}
	w.Header().Set("WWW-Authenticate", wwwAuth)
	w.WriteHeader(status)

	resp := struct {
		Error string `json:"error"`
	}{
		Error: description,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// WrapWithPublicPaths wraps an auth middleware to bypass authentication for public paths.
func WrapWithPublicPaths(
	authMw func(http.Handler) http.Handler,
	publicPaths []string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// Pre-wrap the handler once during initialization, not per-request
		authWrappedNext := authMw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicPath(r.URL.Path, publicPaths) {
				next.ServeHTTP(w, r)
				return
			}
			authWrappedNext.ServeHTTP(w, r)
		})
	}
}
