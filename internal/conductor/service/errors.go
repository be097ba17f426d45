package service

import "errors"

var (
	ErrNotFound          = errors.New("peer not found")
	ErrInvalidKind       = errors.New("unknown peer kind")
	ErrInvalidAddress    = errors.New("invalid peer address")
	ErrInvalidName       = errors.New("invalid peer name")
	ErrInvalidManager    = errors.New("invalid manager")
	ErrAlreadyRegistered = errors.New("peer address already registered")
	ErrNameTaken         = errors.New("peer name already taken")
	ErrNotReachable      = errors.New("peer not reachable")
	ErrAlreadyEnabled    = errors.New("peer already enabled")
	ErrAlreadyDisabled   = errors.New("peer already disabled")
	ErrNoPeersAvailable  = errors.New("no peers available")
	ErrNoEligiblePeer    = errors.New("no eligible peer")

	// ErrCredentialManaged is returned when replacing the credential of a
	// peer whose credential was issued by a claim.
	ErrCredentialManaged = errors.New("peer credential is issued by claim")
)

// SoftFailure records a per-candidate error that was tolerated rather than
// returned.
type SoftFailure struct {
	PeerID  string
	Name    string
	Address string
	Err     error
}
