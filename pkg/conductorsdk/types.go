package conductorsdk

import (
	"encoding/json"
	"time"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Peer kinds as they appear in URL paths.
const (
	Runners  = "runners"
	Gateways = "gateways"
	Managers = "managers"
)

// RegisterPeerRequest is the body of POST /v1/{kind}. Name and Credential
// are ignored for runners, which are named and issued a credential by the
// claim handshake.
type RegisterPeerRequest struct {
	Address    string `json:"address"`
	Name       string `json:"name,omitempty"`
	Credential string `json:"credential,omitempty"`
	ManagerID  string `json:"manager_id,omitempty"`
}

// UpdatePeerRequest is the body of PATCH /v1/{kind}/{id}. Omitted fields are
// left unchanged.
type UpdatePeerRequest struct {
	Name       *string `json:"name,omitempty"`
	Address    *string `json:"address,omitempty"`
	Credential *string `json:"credential,omitempty"`
}

// PeerResponse never carries the credential.
type PeerResponse struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	Name          string     `json:"name"`
	Address       string     `json:"address"`
	ManagerID     string     `json:"manager_id,omitempty"`
	IsInitial     bool       `json:"is_initial"`
	Enabled       bool       `json:"enabled"`
	HasCredential bool       `json:"has_credential"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`
	DisabledAt    *time.Time `json:"disabled_at,omitempty"`
	CreatedBy     string     `json:"created_by,omitempty"`
	UpdatedBy     string     `json:"updated_by,omitempty"`
	DisabledBy    string     `json:"disabled_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// CredentialUnreadable marks a stored credential the server can no longer
	// decrypt. Release and re-register runners; update the credential of
	// gateways and managers.
	CredentialUnreadable bool `json:"credential_unreadable,omitempty"`
}

type ListPeersResponse struct {
	Peers []PeerResponse `json:"peers"`
}

type SelectRunnerResponse struct {
	Peer PeerResponse `json:"peer"`
	Load float64      `json:"load"`
}

// SkippedPeer is a candidate whose status check failed during selection.
type SkippedPeer struct {
	PeerID  string `json:"peer_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
	Error   string `json:"error"`
}

type SelectManagerResponse struct {
	Peer    PeerResponse  `json:"peer"`
	Gateway PeerResponse  `json:"gateway"`
	Skipped []SkippedPeer `json:"skipped,omitempty"`
}

// StatusMessage is one frame of the status websocket. Type is "status" for
// poll ticks and "event" for lifecycle events of the watched peer.
type StatusMessage struct {
	Type    string          `json:"type"`
	PeerID  string          `json:"peer_id"`
	Address string          `json:"address,omitempty"`
	OK      bool            `json:"ok"`
	Status  json.RawMessage `json:"status,omitempty"`
	Error   string          `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	At      time.Time       `json:"at"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Events   string `json:"events,omitempty"`
	Clients  int    `json:"clients"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
