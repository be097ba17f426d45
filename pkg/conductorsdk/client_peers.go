package conductorsdk

import (
	"context"
	"net/http"
	"net/url"
)

func peerPath(kind, id string) string {
	return "/v1/" + kind + "/" + url.PathEscape(id)
}

func (c *Client) RegisterPeer(ctx context.Context, kind string, req RegisterPeerRequest) (*PeerResponse, error) {
	var p PeerResponse
	if err := c.do(ctx, http.MethodPost, "/v1/"+kind, req, &p, http.StatusCreated); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ListPeers(ctx context.Context, kind string, includeDisabled bool) ([]PeerResponse, error) {
	path := "/v1/" + kind
	if includeDisabled {
		path += "?include_disabled=true"
	}
	var out ListPeersResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Peers, nil
}

func (c *Client) GetPeer(ctx context.Context, kind, id string) (*PeerResponse, error) {
	var p PeerResponse
	if err := c.do(ctx, http.MethodGet, peerPath(kind, id), nil, &p, http.StatusOK); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdatePeer(ctx context.Context, kind, id string, req UpdatePeerRequest) (*PeerResponse, error) {
	var p PeerResponse
	if err := c.do(ctx, http.MethodPatch, peerPath(kind, id), req, &p, http.StatusOK); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) EnablePeer(ctx context.Context, kind, id string) (*PeerResponse, error) {
	var p PeerResponse
	if err := c.do(ctx, http.MethodPost, peerPath(kind, id)+"/enable", nil, &p, http.StatusOK); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DisablePeer(ctx context.Context, kind, id string) (*PeerResponse, error) {
	var p PeerResponse
	if err := c.do(ctx, http.MethodPost, peerPath(kind, id)+"/disable", nil, &p, http.StatusOK); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ReleasePeer(ctx context.Context, kind, id string) error {
	return c.do(ctx, http.MethodDelete, peerPath(kind, id), nil, nil, http.StatusNoContent)
}

func (c *Client) SelectRunner(ctx context.Context) (*SelectRunnerResponse, error) {
	var out SelectRunnerResponse
	if err := c.do(ctx, http.MethodPost, "/v1/runners/select", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SelectManager(ctx context.Context) (*SelectManagerResponse, error) {
	var out SelectManagerResponse
	if err := c.do(ctx, http.MethodPost, "/v1/managers/select", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
