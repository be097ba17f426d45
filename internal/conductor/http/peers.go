package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/conductor/internal/conductor/domain"
	"github.com/aussiebroadwan/conductor/internal/conductor/service"
	"github.com/aussiebroadwan/conductor/internal/conductor/store"
	"github.com/aussiebroadwan/conductor/pkg/conductorsdk"
	"github.com/aussiebroadwan/conductor/pkg/httpx"
	"github.com/aussiebroadwan/conductor/pkg/slogx"
)

// PeersHandler serves the CRUD routes of one peer kind.
type PeersHandler struct {
	Peers *service.PeerService
	Kind  domain.PeerKind
}

// HandleRegister handles POST /v1/{kind}
//
//	@Summary		Register Peer
//	@Description	Claims (runners) or checks the status of (gateways, managers) the peer at address and persists it.
//	@Tags			Peers
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			kind	path		string								true	"runners, gateways or managers"
//	@Param			request	body		conductorsdk.RegisterPeerRequest	true	"Peer address and optional name"
//	@Success		201		{object}	conductorsdk.PeerResponse
//	@Failure		400		{object}	conductorsdk.ErrorResponse
//	@Failure		409		{object}	conductorsdk.ErrorResponse	"address or name already registered"
//	@Failure		503		{object}	conductorsdk.ErrorResponse	"peer unreachable"
//	@Router			/v1/{kind} [post].
func (h *PeersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req conductorsdk.RegisterPeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, conductorsdk.ErrorCodeInvalidRequest, "Invalid JSON in request body")
		return
	}

	rec, err := h.Peers.Register(ctx, h.Kind, service.RegisterRequest{
		Address:    req.Address,
		Name:       req.Name,
		Credential: req.Credential,
		ManagerID:  req.ManagerID,
		Actor:      httpx.ActorFromContext(ctx),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toPeerResponse(rec))
}

// HandleList handles GET /v1/{kind}
//
//	@Summary		List Peers
//	@Tags			Peers
//	@Produce		json
//	@Security		BearerAuth
//	@Param			kind				path		string	true	"runners, gateways or managers"
//	@Param			include_disabled	query		bool	false	"Include disabled peers"
//	@Param			manager_id			query		string	false	"Only gateways of this manager"
//	@Success		200					{object}	conductorsdk.ListPeersResponse
//	@Router			/v1/{kind} [get].
func (h *PeersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeDisabled, _ := strconv.ParseBool(q.Get("include_disabled"))

	peers, err := h.Peers.List(r.Context(), h.Kind, store.ListFilter{
		IncludeDisabled: includeDisabled,
		ManagerID:       q.Get("manager_id"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := conductorsdk.ListPeersResponse{Peers: make([]conductorsdk.PeerResponse, 0, len(peers))}
	for _, p := range peers {
		out.Peers = append(out.Peers, toPeerResponse(p))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /v1/{kind}/{id}
//
//	@Summary		Get Peer
//	@Tags			Peers
//	@Produce		json
//	@Security		BearerAuth
//	@Param			kind	path		string	true	"runners, gateways or managers"
//	@Param			id		path		string	true	"Peer ID"
//	@Success		200		{object}	conductorsdk.PeerResponse
//	@Failure		404		{object}	conductorsdk.ErrorResponse
//	@Router			/v1/{kind}/{id} [get].
func (h *PeersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Peers.Get(r.Context(), h.Kind, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPeerResponse(rec))
}

// HandleUpdate handles PATCH /v1/{kind}/{id}. Fields are applied in the
// order name, address, credential; a failure leaves earlier changes in place.
//
//	@Summary		Update Peer
//	@Tags			Peers
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			kind	path		string							true	"runners, gateways or managers"
//	@Param			id		path		string							true	"Peer ID"
//	@Param			request	body		conductorsdk.UpdatePeerRequest	true	"Fields to change"
//	@Success		200		{object}	conductorsdk.PeerResponse
//	@Failure		400		{object}	conductorsdk.ErrorResponse
//	@Failure		404		{object}	conductorsdk.ErrorResponse
//	@Failure		409		{object}	conductorsdk.ErrorResponse
//	@Router			/v1/{kind}/{id} [patch].
func (h *PeersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	actor := httpx.ActorFromContext(ctx)

	var req conductorsdk.UpdatePeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, conductorsdk.ErrorCodeInvalidRequest, "Invalid JSON in request body")
		return
	}
	if req.Name == nil && req.Address == nil && req.Credential == nil {
		httpx.WriteError(w, http.StatusBadRequest, conductorsdk.ErrorCodeInvalidRequest, "Nothing to update")
		return
	}

	rec, err := h.Peers.Get(ctx, h.Kind, id)
	if req.Name != nil && err == nil {
		rec, err = h.Peers.Rename(ctx, h.Kind, id, *req.Name, actor)
	}
	if req.Address != nil && err == nil {
		rec, err = h.Peers.UpdateAddress(ctx, h.Kind, id, *req.Address, actor)
	}
	if req.Credential != nil && err == nil {
		rec, err = h.Peers.UpdateCredential(ctx, h.Kind, id, *req.Credential, actor)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toPeerResponse(rec))
}

// HandleEnable handles POST /v1/{kind}/{id}/enable
//
//	@Summary		Enable Peer
//	@Tags			Peers
//	@Produce		json
//	@Security		BearerAuth
//	@Param			kind	path		string	true	"runners, gateways or managers"
//	@Param			id		path		string	true	"Peer ID"
//	@Success		200		{object}	conductorsdk.PeerResponse
//	@Failure		409		{object}	conductorsdk.ErrorResponse	"already enabled"
//	@Router			/v1/{kind}/{id}/enable [post].
func (h *PeersHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.Peers.Enable(ctx, h.Kind, r.PathValue("id"), httpx.ActorFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPeerResponse(rec))
}

// HandleDisable handles POST /v1/{kind}/{id}/disable
//
//	@Summary		Disable Peer
//	@Tags			Peers
//	@Produce		json
//	@Security		BearerAuth
//	@Param			kind	path		string	true	"runners, gateways or managers"
//	@Param			id		path		string	true	"Peer ID"
//	@Success		200		{object}	conductorsdk.PeerResponse
//	@Failure		409		{object}	conductorsdk.ErrorResponse	"already disabled"
//	@Router			/v1/{kind}/{id}/disable [post].
func (h *PeersHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.Peers.Disable(ctx, h.Kind, r.PathValue("id"), httpx.ActorFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPeerResponse(rec))
}

// HandleRelease handles DELETE /v1/{kind}/{id}
//
//	@Summary		Release Peer
//	@Description	Releases the claim on the remote peer (best effort) and removes the record.
//	@Tags			Peers
//	@Security		BearerAuth
//	@Param			kind	path	string	true	"runners, gateways or managers"
//	@Param			id		path	string	true	"Peer ID"
//	@Success		204
//	@Failure		404	{object}	conductorsdk.ErrorResponse
//	@Router			/v1/{kind}/{id} [delete].
func (h *PeersHandler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if err := h.Peers.Release(ctx, h.Kind, id, httpx.ActorFromContext(ctx)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("peer released via api", "peer_id", id, "kind", h.Kind)
	w.WriteHeader(http.StatusNoContent)
}
