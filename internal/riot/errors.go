package riot

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// API key error types
var (
	ErrUnauthorized  = errors.New("api key unauthorized (401)")
	ErrForbidden     = errors.New("api key forbidden (403)")
	ErrInvalidAPIKey = errors.New("api key rejected by Riot")
	ErrRateLimited   = errors.New("rate limited (429)")
	ErrNotFound      = errors.New("not found (404)")
)

// StatusError is returned when the API answers with a non-200 status
type StatusError struct {
	StatusCode int
	Path       string
	RetryAfter time.Duration // only set on 429
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d for %s", e.StatusCode, e.Path)
}

// Is maps well-known status codes onto the sentinel errors above
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsAPIKeyError checks if an error indicates a rejected API key (401 or 403)
func IsAPIKeyError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrInvalidAPIKey)
}

// StatusCode extracts the HTTP status from err, or 0 if it is not a StatusError
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

func newStatusError(resp *http.Response, endpoint string) *StatusError {
	se := &StatusError{
		StatusCode: resp.StatusCode,
		Path:       redactPath(endpoint),
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			se.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return se
}

// redactPath drops the host and query so errors never carry more than the route
func redactPath(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	return u.Path
}
