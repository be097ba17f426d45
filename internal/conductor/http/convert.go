package http

import (
	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
	"github.com/aussiebroadwan/conductor/internal/conductor/service"
	"github.com/aussiebroadwan/conductor/pkg/conductorsdk"
)

func toPeerResponse(p domain.Peer) conductorsdk.PeerResponse {
	return conductorsdk.PeerResponse{
		ID:            p.ID,
		Kind:          string(p.Kind),
		Name:          p.Name,
		Address:       p.Address,
		ManagerID:     p.ManagerID,
		IsInitial:     p.IsInitial,
		Enabled:       p.Enabled(),
		HasCredential: p.Credential != "",
		LastSeenAt:    p.LastSeenAt,
		DisabledAt:    p.DisabledAt,
		CreatedBy:     p.CreatedBy,
		UpdatedBy:     p.UpdatedBy,
		DisabledBy:    p.DisabledBy,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,

		CredentialUnreadable: p.CredentialUnreadable,
	}
}

func toSkipped(failures []service.SoftFailure) []conductorsdk.SkippedPeer {
	if len(failures) == 0 {
		return nil
	}
	out := make([]conductorsdk.SkippedPeer, 0, len(failures))
	for _, f := range failures {
		out = append(out, conductorsdk.SkippedPeer{
			PeerID:  f.PeerID,
			Name:    f.Name,
			Address: f.Address,
			Error:   f.Err.Error(),
		})
	}
	return out
}

// kindFromPath maps the URL segment to a peer kind.
func kindFromPath(segment string) domain.PeerKind {
	switch segment {
	case conductorsdk.Runners:
		return domain.KindRunner
	case conductorsdk.Gateways:
		return domain.KindGateway
	case conductorsdk.Managers:
		return domain.KindManager
	}
	return ""
}
