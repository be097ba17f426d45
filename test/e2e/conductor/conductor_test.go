package conductor_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/conductor/pkg/conductorsdk"
)

func TestHealthEndpoints(t *testing.T) {
	baseURL := setupConductor(t)
	client := conductorsdk.NewClient(baseURL, "")

	live, err := client.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Zero(t, ready.Checks.Clients)
}

func TestAPIRequiresToken(t *testing.T) {
	baseURL := setupConductor(t)

	_, err := conductorsdk.NewClient(baseURL, "").ListPeers(t.Context(), conductorsdk.Runners, false)
	var apiErr *conductorsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	reader := operator(t, baseURL, "peers:read")
	peers, err := reader.ListPeers(t.Context(), conductorsdk.Runners, false)
	require.NoError(t, err)
	require.Empty(t, peers)

	_, err = reader.SelectRunner(t.Context())
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestSelectionWithoutPeers(t *testing.T) {
	baseURL := setupConductor(t)
	client := operator(t, baseURL, "peers:write")

	_, err := client.SelectRunner(t.Context())
	require.True(t, conductorsdk.IsCode(err, conductorsdk.ErrorCodeNoPeers), "got %v", err)

	_, err = client.SelectManager(t.Context())
	require.True(t, conductorsdk.IsCode(err, conductorsdk.ErrorCodeNoEligiblePeer), "got %v", err)
}

func TestRegisterRejectsBadPeers(t *testing.T) {
	baseURL := setupConductor(t)
	client := operator(t, baseURL, "peers:write")

	// Nothing listens on this port inside the container.
	_, err := client.RegisterPeer(t.Context(), conductorsdk.Gateways, conductorsdk.RegisterPeerRequest{
		Address: "http://127.0.0.1:1",
	})
	require.True(t, conductorsdk.IsCode(err, conductorsdk.ErrorCodePeerUnreachable), "got %v", err)

	// The conductor itself answers, but not with a peer status document.
	_, err = client.RegisterPeer(t.Context(), conductorsdk.Gateways, conductorsdk.RegisterPeerRequest{
		Address: "http://127.0.0.1:8080",
	})
	require.Error(t, err)

	_, err = client.RegisterPeer(t.Context(), conductorsdk.Gateways, conductorsdk.RegisterPeerRequest{
		Address: "not a url",
	})
	require.True(t, conductorsdk.IsCode(err, conductorsdk.ErrorCodeInvalidRequest), "got %v", err)

	peers, err := client.ListPeers(t.Context(), conductorsdk.Gateways, true)
	require.NoError(t, err)
	require.Empty(t, peers)
}

func TestSwaggerServed(t *testing.T) {
	baseURL := setupConductor(t)

	resp, err := http.Get(baseURL + "/swagger/doc.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
