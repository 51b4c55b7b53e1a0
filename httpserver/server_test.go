package httpserver

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hushh-labs/consent-core/api"
	"github.com/hushh-labs/consent-core/api/consentclient"
	"github.com/hushh-labs/consent-core/consent"
	"github.com/hushh-labs/consent-core/identity"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	signer, err := consent.NewSigner(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	idp, err := identity.NewLocalIssuer(bytes.Repeat([]byte{0x24}, 32), "consent-devstub")
	require.NoError(t, err)
	stub, err := consentclient.NewStubService(consent.NewIssuer(signer), idp, log)
	require.NoError(t, err)

	srv, err := New(&HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      log,
		DrainDuration:            10 * time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}, stub)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.getRouter())
	t.Cleanup(ts.Close)
	return ts
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServerHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status, body := getBody(t, ts.URL+"/livez")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"status":"alive"}`, body)

	status, body = getBody(t, ts.URL+"/readyz")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"status":"ready"}`, body)
}

func TestServerDrainUndrainCycle(t *testing.T) {
	ts := newTestServer(t)

	status, body := getBody(t, ts.URL+"/drain")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"status":"draining"}`, body)

	status, _ = getBody(t, ts.URL+"/readyz")
	require.Equal(t, http.StatusServiceUnavailable, status)

	status, body = getBody(t, ts.URL+"/drain")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"status":"already draining"}`, body)

	status, _ = getBody(t, ts.URL+"/undrain")
	require.Equal(t, http.StatusOK, status)

	status, _ = getBody(t, ts.URL+"/readyz")
	require.Equal(t, http.StatusOK, status)
}

func TestServerRoutesConsentAPI(t *testing.T) {
	ts := newTestServer(t)

	client := consentclient.NewClient(ts.URL)

	grant, err := client.RequestGrant(context.Background(), "did:hushh:u1", "did:hushh:agent1", "attr.food.dietary", 0)
	require.NoError(t, err)
	require.Equal(t, api.GrantStatusPending, grant.Status)

	approved, err := client.ApproveGrant(context.Background(), grant.ID)
	require.NoError(t, err)
	require.Equal(t, api.GrantStatusApproved, approved.Status)
	require.True(t, strings.HasPrefix(approved.Token, "HCT:"))
}
