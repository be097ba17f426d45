package conductorsdk

import (
	"errors"
	"fmt"
)

// Error codes written by the server.
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeNotFound          = "not_found"
	ErrorCodeConflict          = "conflict"
	ErrorCodePeerUnreachable   = "peer_unreachable"
	ErrorCodePeerUnauthorized  = "peer_unauthorized"
	ErrorCodeBadPeerResponse   = "bad_peer_response"
	ErrorCodeNoPeers           = "no_peers_available"
	ErrorCodeNoEligiblePeer    = "no_eligible_peer"
	ErrorCodeServerError       = "server_error"
	ErrorCodeInsufficientScope = "insufficient_scope"
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
