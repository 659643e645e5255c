package catalog

import (
	"fmt"
	"net/http"

	"release_tracker/internal/domain"
)

// HTTPError is a non-200 response from the catalog.
type HTTPError struct {
	StatusCode int
	Path       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("catalog %s: unexpected status %d", e.Path, e.StatusCode)
}

// Unwrap maps the status code onto the domain error taxonomy.
func (e *HTTPError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case e.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return domain.ErrUpstreamUnavailable
	}
}
