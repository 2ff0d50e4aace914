package remote

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/stacklok/toolhive-federation/internal/httpclient"
	"github.com/stacklok/toolhive-federation/internal/schema"
)

var (
	// ErrRemoteRepository matches every failure of a remote repository call
	ErrRemoteRepository = errors.New("remote repository error")

	// ErrInvalidCredential is returned when a secret holds no usable token
	ErrInvalidCredential = errors.New("secret does not hold a remote repository token")
)

// Error describes a failed call to a remote repository
type Error struct {
	Endpoint  string
	Operation string
	// StatusCode is the remote HTTP status, 0 for transport failures
	StatusCode int
	// Detail is the remote's error message, when it sent one
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("remote repository %s: %s failed", e.Endpoint, e.Operation)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes ErrRemoteRepository, the cause, and schema.ErrNotFound for
// remote 404s.
func (e *Error) Unwrap() []error {
	errs := []error{ErrRemoteRepository}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.StatusCode == http.StatusNotFound {
		errs = append(errs, schema.ErrNotFound)
	}
	return errs
}

func newError(endpoint, operation string, err error) *Error {
	rerr := &Error{Endpoint: endpoint, Operation: operation, Err: err}

	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		rerr.StatusCode = httpErr.StatusCode
		rerr.Detail = errorDetail(httpErr.Body)
	}
	return rerr
}

// errorDetail extracts a message from {"error": ...}, {"message": ...} or
// {"error": {"message": ...}} bodies.
func errorDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{"error.message", "error", "message", "detail"} {
		if res := gjson.GetBytes(body, path); res.Exists() && res.Type == gjson.String && res.Str != "" {
			return res.Str
		}
	}
	return ""
}
