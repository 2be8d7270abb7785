package llm

import (
	"errors"
	"fmt"
)

// Sentinel kinds for provider errors.
var (
	ErrMalformedResponse = errors.New("malformed provider response")
	ErrEmptyOutput       = errors.New("empty provider output")
	ErrUnavailable       = errors.New("provider unavailable")
	ErrMissingAPIKey     = errors.New("provider api key not configured")
)

const maxErrorBody = 200

// HTTPError is a non-2xx provider answer.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	body := []rune(e.Body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return fmt.Sprintf("%s: status %d: %s", e.URL, e.StatusCode, string(body))
}
