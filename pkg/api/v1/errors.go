package v1

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors matched by *Error according to its HTTP status.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("resource not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrUpstream       = errors.New("news provider unavailable")
)

// Error is a failed API response.
type Error struct {
	StatusCode int
	Envelope
}

func (e *Error) Error() string {
	msg := e.Envelope.Error
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s (%d): %s", msg, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (%d)", msg, e.StatusCode)
}

// Is matches the sentinel for the response status.
func (e *Error) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return target == ErrInvalidRequest
	case http.StatusUnauthorized:
		return target == ErrUnauthorized
	case http.StatusNotFound:
		return target == ErrNotFound
	case http.StatusTooManyRequests:
		return target == ErrRateLimited
	case http.StatusBadGateway:
		return target == ErrUpstream
	}
	return false
}
