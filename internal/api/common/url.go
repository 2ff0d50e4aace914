// Package common provides shared HTTP helpers for the federation API handlers.
package common

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/toolhive-federation/internal/service"
)

// PathParam extracts and decodes a chi URL parameter. Empty values and
// values containing whitespace are rejected with service.ErrInvalidRequest.
func PathParam(r *http.Request, name string) (string, error) {
	decoded, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		return "", fmt.Errorf("%w: invalid URL encoding in %s", service.ErrInvalidRequest, name)
	}
	if strings.TrimSpace(decoded) == "" {
		return "", fmt.Errorf("%w: %s cannot be empty", service.ErrInvalidRequest, name)
	}
	if strings.ContainsAny(decoded, " \t\n\r") {
		return "", fmt.Errorf("%w: %s cannot contain whitespace", service.ErrInvalidRequest, name)
	}
	return decoded, nil
}

// SplitFields parses a comma separated field list such as "?only=name,content".
// Blank entries are dropped; an empty input yields nil.
func SplitFields(raw string) []string {
	var fields []string
	for f := range strings.SplitSeq(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
