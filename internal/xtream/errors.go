package xtream

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrAuthFailed       = errors.New("xtream: authentication failed")
	ErrNotAuthenticated = errors.New("xtream: client not authenticated")
	ErrUnavailable      = errors.New("xtream: host unreachable or transport failure")
	ErrBadResponse      = errors.New("xtream: invalid response format or malformed data")
)

// Error wraps the sentinel errors with operation context.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Err       error // Nested lower-level error (e.g. net.Error)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("xtream: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}
