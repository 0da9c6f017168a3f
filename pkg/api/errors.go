package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a request that reached the backend and was refused, either by
// status code or by a success:false body.
type Error struct {
	Endpoint   string
	StatusCode int
	Message    string // backend-provided, may be empty
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s: %s (status %d)", e.Endpoint, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("api: %s: status %d", e.Endpoint, e.StatusCode)
}

// Unauthorized reports whether the backend rejected the credentials.
func (e *Error) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsUnauthorized reports whether err carries a 401 or 403 response.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}

// Message returns the backend's message carried by err, or "".
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
