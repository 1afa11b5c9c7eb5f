package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDecode wraps failures to parse a successful response body.
var ErrDecode = errors.New("api: decoding response")

// RequestError means the server answered with a non-2xx status.
type RequestError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *RequestError) Error() string {
	body := string(e.Body)
	if len(body) > 200 {
		body = body[:200] + "…"
	}
	if body == "" {
		return fmt.Sprintf("api: %s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("api: %s %s: status %d: %s", e.Method, e.Path, e.Status, body)
}

// Unauthorized reports a 401 or 403, usually an expired session or a missing CSRF token.
func (e *RequestError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// NetworkError means no response was received at all.
type NetworkError struct {
	Method  string
	Path    string
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("api: %s %s: %s", e.Method, e.Path, e.Message)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsRequestError reports whether err carries a server response, returning it.
func IsRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsNetworkError reports whether err means the backend was unreachable.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
