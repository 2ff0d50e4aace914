package httpclient

import (
	"errors"
	"fmt"
)

// HTTPError represents a non-2xx HTTP response
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
	// Body is the raw response body, kept for error-detail extraction
	Body []byte
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, url, message string, body []byte) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
		Body:       body,
	}
}

// StatusCode returns the status code of an *HTTPError in err's chain, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
