package domain

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// PeerKind distinguishes the remote processes the conductor talks to.
type PeerKind string

const (
	KindRunner  PeerKind = "runner"
	KindGateway PeerKind = "gateway"
	KindManager PeerKind = "manager"
)

// Valid reports whether k is a known kind.
func (k PeerKind) Valid() bool {
	switch k {
	case KindRunner, KindGateway, KindManager:
		return true
	}
	return false
}

// RemoteIdentity reports whether peers of this kind are named by the peer
// itself during the claim handshake. Other kinds are named locally.
func (k PeerKind) RemoteIdentity() bool { return k == KindRunner }

// Peer is the persisted record of a remote runner, gateway or manager.
type Peer struct {
	ID         string // ULID
	Kind       PeerKind
	Name       string // unique per kind among non-deleted peers
	Address    string // unique per kind among non-deleted peers
	Credential string // bearer token; sealed at rest
	ManagerID  string // gateways only, optional

	// CredentialUnreadable is set when the stored credential could not be
	// opened with the current master key. Credential is empty in that case.
	CredentialUnreadable bool

	IsInitial  bool // provisioned from configuration, may be pruned
	LastSeenAt *time.Time
	DisabledAt *time.Time
	DeletedAt  *time.Time

	CreatedBy  string
	UpdatedBy  string
	DisabledBy string
	DeletedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Enabled reports whether the peer may be selected.
func (p *Peer) Enabled() bool {
	return p.DisabledAt == nil && p.DeletedAt == nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// SlugAddress derives a default peer name from its address:
// "http://gw-1.internal:8080/" becomes "gw-1-internal-8080".
func SlugAddress(address string) string {
	s := strings.ToLower(strings.TrimSpace(address))
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		s = u.Host + u.Path
	}
	return strings.Trim(slugInvalid.ReplaceAllString(s, "-"), "-")
}

// NormalizeAddress trims whitespace and trailing slashes so the same peer is
// not registered twice under cosmetically different addresses.
func NormalizeAddress(address string) string {
	return strings.TrimRight(strings.TrimSpace(address), "/")
}
