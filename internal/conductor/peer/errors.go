package peer

import (
	"errors"
	"fmt"
)

var (
	// ErrPeerUnreachable matches every UnreachableError through errors.Is.
	ErrPeerUnreachable = errors.New("peer unreachable")
	ErrUnauthorized    = errors.New("peer rejected credential")
	ErrAlreadyClaimed  = errors.New("peer already claimed")
	ErrInvalidClaim    = errors.New("peer returned an invalid claim")
	ErrEmptyStatus     = errors.New("peer returned no status")
	ErrClosed          = errors.New("peer client closed")
)

// UnreachableError reports a network-level failure talking to a peer. It is
// never returned for a response the peer actually sent.
type UnreachableError struct {
	Address string
	Cause   error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("peer unreachable at %s: %v", e.Address, e.Cause)
}

func (e *UnreachableError) Is(target error) bool { return target == ErrPeerUnreachable }

func (e *UnreachableError) Unwrap() error { return e.Cause }

// StatusError is an unexpected non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("peer returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("peer returned HTTP %d: %s", e.Code, e.Body)
}
