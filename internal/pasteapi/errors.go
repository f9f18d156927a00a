package pasteapi

import (
	"errors"
	"fmt"
)

// ErrorCode represents the type of error that occurred.
type ErrorCode int

const (
	// ErrUnknown is an unknown error.
	ErrUnknown ErrorCode = iota
	// ErrNotFound is returned when a paste doesn't exist or has expired.
	ErrNotFound
	// ErrPayloadTooLarge is returned when the server rejects the body size.
	ErrPayloadTooLarge
	// ErrRateLimited is returned when the server throttles the caller.
	ErrRateLimited
	// ErrRejected is returned when the server refuses the content itself.
	ErrRejected
	// ErrBadRequest is returned for malformed requests.
	ErrBadRequest
	// ErrServer is returned for server-side failures and unexpected statuses.
	ErrServer
)

// Error is a non-success answer from the paste API.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("hashpaste: %s", e.Message)
}

func codeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}

// IsNotFound reports whether err indicates the paste was not found.
func IsNotFound(err error) bool { return codeOf(err) == ErrNotFound }

// IsRateLimited reports whether err indicates rate limiting.
func IsRateLimited(err error) bool { return codeOf(err) == ErrRateLimited }

// IsPayloadTooLarge reports whether err indicates the paste was too large.
func IsPayloadTooLarge(err error) bool { return codeOf(err) == ErrPayloadTooLarge }
