package tomtom

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnreachable wraps transport-level failures (DNS, refused connections,
// timeouts). Upstream treats these the same as provider 5xx: serve cache.
var ErrUnreachable = errors.New("tomtom: provider unreachable")

// APIError is a non-2xx response from the provider, classified by status
// code. RetryAfter carries the provider's throttling hint when present.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tomtom: api error %d: %s", e.StatusCode, e.Message)
}

// IsUnavailable reports whether the error means the provider is down,
// throttled or timing out. The interactive path degrades to cached data on
// these; sweeps skip the iteration and retry on the next schedule.
func IsUnavailable(err error) bool {
	if errors.Is(err, ErrUnreachable) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}

// IsAuthFailure reports a rejected API key. Never retried; a config problem.
func IsAuthFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}
