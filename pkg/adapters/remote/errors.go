package remote

import (
	"fmt"
	"net/http"

	"github.com/aretw0/sparti/pkg/core"
)

// StatusError reports a non-2xx response. It is recoverable: callers keep
// their previous state and may retry.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap maps well-known statuses onto the domain errors.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return core.ErrUnsupported
	case http.StatusForbidden:
		return core.ErrReadOnly
	}
	return nil
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
