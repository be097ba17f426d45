package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/conductor/internal/conductor/peer"
	"github.com/aussiebroadwan/conductor/internal/conductor/service"
	"github.com/aussiebroadwan/conductor/pkg/conductorsdk"
	"github.com/aussiebroadwan/conductor/pkg/httpx"
	"github.com/aussiebroadwan/conductor/pkg/slogx"
)

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// writeServiceError maps service and peer errors to API responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var statusErr *peer.StatusError

	switch {
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, conductorsdk.ErrorCodeNotFound, err.Error())

	case isAny(err,
		service.ErrInvalidKind,
		service.ErrInvalidAddress,
		service.ErrInvalidName,
		service.ErrInvalidManager,
		service.ErrCredentialManaged,
	):
		httpx.WriteError(w, http.StatusBadRequest, conductorsdk.ErrorCodeInvalidRequest, err.Error())

	case isAny(err,
		service.ErrAlreadyRegistered,
		service.ErrNameTaken,
		service.ErrAlreadyEnabled,
		service.ErrAlreadyDisabled,
		peer.ErrAlreadyClaimed,
	):
		httpx.WriteError(w, http.StatusConflict, conductorsdk.ErrorCodeConflict, err.Error())

	case errors.Is(err, service.ErrNoPeersAvailable):
		httpx.WriteError(w, http.StatusServiceUnavailable, conductorsdk.ErrorCodeNoPeers, err.Error())

	case errors.Is(err, service.ErrNoEligiblePeer):
		httpx.WriteError(w, http.StatusServiceUnavailable, conductorsdk.ErrorCodeNoEligiblePeer, err.Error())

	case isAny(err, service.ErrNotReachable, peer.ErrPeerUnreachable):
		httpx.WriteError(w, http.StatusServiceUnavailable, conductorsdk.ErrorCodePeerUnreachable, err.Error())

	case errors.Is(err, peer.ErrUnauthorized):
		httpx.WriteError(w, http.StatusBadGateway, conductorsdk.ErrorCodePeerUnauthorized, err.Error())

	case errors.As(err, &statusErr), isAny(err, peer.ErrEmptyStatus, peer.ErrInvalidClaim):
		httpx.WriteError(w, http.StatusBadGateway, conductorsdk.ErrorCodeBadPeerResponse, err.Error())

	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, conductorsdk.ErrorCodeServerError, "internal error")
	}
}
