package http

import (
	"net/http"

	"github.com/aussiebroadwan/conductor/internal/conductor/service"
	"github.com/aussiebroadwan/conductor/pkg/conductorsdk"
	"github.com/aussiebroadwan/conductor/pkg/httpx"
)

type SelectionHandler struct {
	Peers *service.PeerService
}

// HandleSelectRunner handles POST /v1/runners/select
//
//	@Summary		Select Runner
//	@Description	Returns the enabled runner owning the least loaded worker. Fails if any runner cannot be queried.
//	@Tags			Selection
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	conductorsdk.SelectRunnerResponse
//	@Failure		503	{object}	conductorsdk.ErrorResponse	"no runners, or a runner is unreachable"
//	@Router			/v1/runners/select [post].
func (h *SelectionHandler) HandleSelectRunner(w http.ResponseWriter, r *http.Request) {
	sel, err := h.Peers.SelectRunner(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, conductorsdk.SelectRunnerResponse{
		Peer: toPeerResponse(sel.Peer),
		Load: sel.Load,
	})
}

// HandleSelectManager handles POST /v1/managers/select
//
//	@Summary		Select Manager
//	@Description	Returns the newest reachable manager with a reachable gateway. Unreachable candidates are listed in skipped.
//	@Tags			Selection
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	conductorsdk.SelectManagerResponse
//	@Failure		503	{object}	conductorsdk.ErrorResponse	"no eligible manager"
//	@Router			/v1/managers/select [post].
func (h *SelectionHandler) HandleSelectManager(w http.ResponseWriter, r *http.Request) {
	sel, err := h.Peers.SelectManager(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, conductorsdk.SelectManagerResponse{
		Peer:    toPeerResponse(sel.Peer),
		Gateway: toPeerResponse(sel.Gateway),
		Skipped: toSkipped(sel.Skipped),
	})
}
