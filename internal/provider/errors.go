package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Error wraps a failed provider API call. StatusCode carries the HTTP
// status when the provider answered with one; zero means the request never
// produced a response (transport failure).
type Error struct {
	Provider   string
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed with status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TokenInvalid reports whether the provider rejected the access token.
func (e *Error) TokenInvalid() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// NotFound reports whether the provider no longer recognizes the resource.
func (e *Error) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// RateLimited reports whether the provider asked the caller to back off.
func (e *Error) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsNotFound reports whether err is a provider Error with a 404 status.
func IsNotFound(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.NotFound()
}
